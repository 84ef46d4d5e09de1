package main

import (
	"bufio"
	"chat-relay/client"
	"chat-relay/domain/event"
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

func watchCmd(addr *string) *cobra.Command {
	var reconnect bool

	cmd := &cobra.Command{
		Use:   "watch <nickname>",
		Short: "Join under a nickname, print every event and send stdin lines as messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runWatch(ctx, *addr, args[0], reconnect)
		},
	}

	cmd.Flags().BoolVar(&reconnect, "reconnect", false, "Claim with a reconnect instead of a first-time claim")
	return cmd
}

func runWatch(ctx context.Context, addr, nickname string, reconnect bool) error {
	c, err := client.Dial(ctx, addr)
	if err != nil {
		return err
	}
	defer c.Close()

	if reconnect {
		err = c.ReconnectNickname(nickname)
	} else {
		err = c.SetNickname(nickname)
	}
	if err != nil {
		return err
	}

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if err := c.SendMessage(scanner.Text(), time.Now().Format("15:04")); err != nil {
				errorMsg("send failed: %s", err)
				return
			}
		}
	}()

	for {
		frame, err := c.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		switch event.Name(frame.Event) {
		case event.NicknameResponseName:
			var reply event.NicknameResponse
			if err := frame.DecodeData(&reply); err == nil && !reply.Success {
				errorMsg("%s", reply.Message)
				continue
			}
			success("joined as %s", nickname)
		case event.UserJoinedName:
			var joined event.UserJoined
			_ = frame.DecodeData(&joined)
			color.Cyan.Printf("→ %s joined\n", joined.Nickname)
		case event.UserLeftName:
			var left event.UserLeft
			_ = frame.DecodeData(&left)
			color.Yellow.Printf("← %s left\n", left.Nickname)
		case event.ChatMessageName:
			var posted event.MessagePosted
			_ = frame.DecodeData(&posted)
			info("[%s] %s: %s", posted.Timestamp, color.Bold.Sprint(posted.Nickname), posted.Message)
		default:
			info("%s %s", frame.Event, frame.Data)
		}
	}
}
