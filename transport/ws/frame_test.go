package ws

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecoder_Decode(t *testing.T) {
	id := domain.NewConnectionID()
	d := newDecoder()

	tests := []struct {
		name    string
		raw     string
		want    domain.Command
		wantErr error
	}{
		{
			name: "set nickname",
			raw:  `{"event":"set nickname","data":"alice"}`,
			want: domain.SetNicknameCommand{ConnectionID: id, Nickname: "alice"},
		},
		{
			name: "reconnect nickname",
			raw:  `{"event":"reconnect nickname","data":"alice"}`,
			want: domain.ReconnectNicknameCommand{ConnectionID: id, Nickname: "alice"},
		},
		{
			name: "chat message keeps text verbatim",
			raw:  `{"event":"chat message","data":{"message":"  <b>hi</b> ","timestamp":"12:00"}}`,
			want: domain.PostMessageCommand{ConnectionID: id, Content: "  <b>hi</b> ", Timestamp: "12:00"},
		},
		{
			name:    "not json",
			raw:     `hello`,
			wantErr: errors.ErrInvalidPayload,
		},
		{
			name:    "missing event",
			raw:     `{"data":"alice"}`,
			wantErr: errors.ErrInvalidPayload,
		},
		{
			name:    "unknown event",
			raw:     `{"event":"typing","data":"alice"}`,
			wantErr: errors.ErrUnknownEvent,
		},
		{
			name:    "nickname is not a string",
			raw:     `{"event":"set nickname","data":{"name":"alice"}}`,
			wantErr: errors.ErrInvalidPayload,
		},
		{
			name:    "chat message without data",
			raw:     `{"event":"chat message"}`,
			wantErr: errors.ErrInvalidPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			got, err := d.decode(id, []byte(tt.raw))
			if tt.wantErr != nil {
				req.ErrorIs(err, tt.wantErr)
				return
			}
			req.NoError(err)
			req.Equal(tt.want, got)
		})
	}
}

func TestEncodeFrame(t *testing.T) {
	req := require.New(t)

	// When a join is encoded
	raw, err := EncodeFrame(string(event.UserJoinedName), event.UserJoined{Nickname: "alice"})
	req.NoError(err)

	// Then it reads back as the same event
	var frame Frame
	req.NoError(json.Unmarshal(raw, &frame))
	req.Equal("user joined", frame.Event)
	var joined event.UserJoined
	req.NoError(frame.DecodeData(&joined))
	req.Equal(domain.Nickname("alice"), joined.Nickname)
	req.JSONEq(`{"nickname":"alice"}`, string(frame.Data))
}

func TestEncodeFrame_Failed_Claim_Omits_Nickname(t *testing.T) {
	req := require.New(t)

	raw, err := EncodeFrame(string(event.NicknameResponseName),
		event.NicknameResponse{Success: false, Message: "nickname already in use"})

	req.NoError(err)
	req.JSONEq(`{"event":"nickname response","data":{"success":false,"message":"nickname already in use"}}`, string(raw))
}
