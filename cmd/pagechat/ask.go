package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/csheth/pagechat/internal/session"
)

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question...>",
		Short: "Print the assistant's reply to a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return errors.New("question must not be blank")
			}
			ctl := newChat(session.New(), pslog.Ctx(cmd.Context()), 0)
			messages, err := ctl.SendAndWait(cmd.Context(), question)
			if err != nil {
				return err
			}
			for _, msg := range messages {
				if msg.Sender != session.SenderAssistant {
					continue
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), msg.Text); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
