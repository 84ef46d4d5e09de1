package main

import (
	"chat-relay/client"
	"chat-relay/domain/event"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func scenarioCmd(addr *string) *cobra.Command {
	var (
		grace   time.Duration
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Run the join, reject, relay, reconnect and leave flows",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runScenario(ctx, *addr, grace)
		},
	}

	cmd.Flags().DurationVar(&grace, "grace", 3*time.Second, "Grace window configured on the relay")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall deadline")
	return cmd
}

func runScenario(ctx context.Context, addr string, grace time.Duration) error {
	// Random names keep runs independent on a shared relay
	alice := "alice-" + uuid.NewString()[:8]
	step := 500 * time.Millisecond

	a, err := client.Dial(ctx, addr)
	if err != nil {
		return err
	}
	defer a.Close()
	b, err := client.Dial(ctx, addr)
	if err != nil {
		return err
	}
	defer b.Close()

	var reply event.NicknameResponse
	if err := a.SetNickname(alice); err != nil {
		return err
	}
	if err := a.Expect(ctx, event.NicknameResponseName, &reply); err != nil {
		return err
	}
	if !reply.Success {
		return fmt.Errorf("claim of %s refused: %s", alice, reply.Message)
	}
	var joined event.UserJoined
	if err := b.Expect(ctx, event.UserJoinedName, &joined); err != nil {
		return err
	}
	success("%s joined, peer notified", joined.Nickname)

	if err := b.SetNickname(alice); err != nil {
		return err
	}
	if err := b.Expect(ctx, event.NicknameResponseName, &reply); err != nil {
		return err
	}
	if reply.Success {
		return fmt.Errorf("second claim of %s accepted", alice)
	}
	if err := a.ExpectNothing(ctx, step); err != nil {
		return err
	}
	success("duplicate claim refused: %s", reply.Message)

	if err := a.SendMessage("hi", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	var posted event.MessagePosted
	if err := b.Expect(ctx, event.ChatMessageName, &posted); err != nil {
		return err
	}
	if err := a.ExpectNothing(ctx, step); err != nil {
		return err
	}
	success("message relayed from %s: %q", posted.Nickname, posted.Message)

	// Quick reconnect: no leave, no join
	if err := a.Drop(); err != nil {
		return err
	}
	a, err = client.Dial(ctx, addr)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.ReconnectNickname(alice); err != nil {
		return err
	}
	if err := a.Expect(ctx, event.NicknameResponseName, &reply); err != nil {
		return err
	}
	if err := b.ExpectNothing(ctx, grace+step); err != nil {
		return err
	}
	success("quick reconnect of %s stayed silent", alice)

	// Slow departure: exactly one leave, then the name is free
	if err := a.Drop(); err != nil {
		return err
	}
	var left event.UserLeft
	if err := b.Expect(ctx, event.UserLeftName, &left); err != nil {
		return err
	}
	if err := b.ExpectNothing(ctx, step); err != nil {
		return err
	}
	success("%s left after the grace window", left.Nickname)

	c, err := client.Dial(ctx, addr)
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.SetNickname(alice); err != nil {
		return err
	}
	if err := c.Expect(ctx, event.NicknameResponseName, &reply); err != nil {
		return err
	}
	if !reply.Success {
		return fmt.Errorf("released name %s refused: %s", alice, reply.Message)
	}
	success("%s claimable again", alice)
	info("all flows passed against %s", addr)
	return nil
}
