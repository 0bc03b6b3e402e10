package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRunCmd(deps Dependencies, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run <message...>",
		Short: "Run a single agent turn in a new session",
		Long:  "Start a new session, send the message and run the agent until it answers.\nThe session id is printed so the conversation can be resumed with chat --session.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			message := strings.Join(args, " ")

			a, err := newApp(ctx, deps, flags)
			if err != nil {
				return err
			}
			defer a.close()

			sess, conv, err := a.newSession(ctx, message)
			if err != nil {
				return err
			}
			resp, err := a.turn(ctx, sess, conv, message)
			if resp != nil {
				fmt.Fprintln(deps.Stderr, usageLine(sess.ID, resp.Rounds, resp.Usage.InputTokens, resp.Usage.OutputTokens))
			}
			return err
		},
	}
}

func usageLine(sessionID string, rounds, in, out int) string {
	return fmt.Sprintf("session %s  rounds %d  tokens %d in / %d out", sessionID, rounds, in, out)
}
