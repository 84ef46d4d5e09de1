package ws

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Inbound event names.
const (
	SetNicknameEvent       = "set nickname"
	ReconnectNicknameEvent = "reconnect nickname"
	ChatMessageEvent       = "chat message"
)

// Frame is the JSON envelope of every WebSocket text message, in both directions.
type Frame struct {
	Event string          `json:"event" validate:"required"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ChatPayload is the data of an inbound chat message.
type ChatPayload struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func EncodeFrame(name string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding %q data: %w", name, err)
	}
	return json.Marshal(Frame{Event: name, Data: raw})
}

// DecodeData unmarshals the frame data into v.
func (f Frame) DecodeData(v any) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("%w: %q has no data", errors.ErrInvalidPayload, f.Event)
	}
	if err := json.Unmarshal(f.Data, v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return nil
}

type decoder struct {
	validate *validator.Validate
}

func newDecoder() decoder {
	return decoder{validate: validator.New()}
}

// decode turns a raw text message into a command for the connection.
func (d decoder) decode(id domain.ConnectionID, raw []byte) (domain.Command, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	if err := d.validate.Struct(frame); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}

	switch frame.Event {
	case SetNicknameEvent:
		var name string
		if err := frame.DecodeData(&name); err != nil {
			return nil, err
		}
		return domain.SetNicknameCommand{ConnectionID: id, Nickname: domain.Nickname(name)}, nil
	case ReconnectNicknameEvent:
		var name string
		if err := frame.DecodeData(&name); err != nil {
			return nil, err
		}
		return domain.ReconnectNicknameCommand{ConnectionID: id, Nickname: domain.Nickname(name)}, nil
	case ChatMessageEvent:
		var payload ChatPayload
		if err := frame.DecodeData(&payload); err != nil {
			return nil, err
		}
		return domain.PostMessageCommand{
			ConnectionID: id,
			Content:      payload.Message,
			Timestamp:    payload.Timestamp,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, frame.Event)
	}
}
