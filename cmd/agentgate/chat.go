package main

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Cyclone1070/agentgate/internal/session"
)

func newChatCmd(deps Dependencies, flags *rootFlags) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long: "Read messages from stdin and run an agent turn for each.\n" +
			"Type exit or quit, or send end of input, to leave.\n\n" +
			"Commands:\n" +
			"  /permissions   list decisions remembered in this session\n" +
			"  /revoke KEY    forget one remembered decision\n" +
			"  /forget        forget every remembered decision",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, deps, flags)
			if err != nil {
				return err
			}
			defer a.close()

			var (
				sess *session.Session
				conv *session.Conversation
			)
			if sessionID != "" {
				if sess, conv, err = a.resumeSession(ctx, sessionID); err != nil {
					return err
				}
				a.console.Println(fmt.Sprintf("Resumed session %s (%d messages)", sess.ID, conv.Len()))
			}

			for {
				fmt.Fprint(deps.Stdout, "> ")
				line, err := a.lines.ReadLine(ctx)
				if errors.Is(err, io.EOF) {
					fmt.Fprintln(deps.Stdout)
					return nil
				}
				if err != nil {
					return err
				}

				text := strings.TrimSpace(line)
				switch text {
				case "":
					continue
				case "exit", "quit":
					return nil
				}

				if strings.HasPrefix(text, "/") {
					a.permissionCommand(sess, text)
					continue
				}

				if sess == nil {
					if sess, conv, err = a.newSession(ctx, text); err != nil {
						return err
					}
					a.console.Println("Session " + sess.ID)
				}

				// Errors are already shown by the console; only
				// cancellation and persistence failures end the chat.
				if _, err := a.turn(ctx, sess, conv, text); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					if errors.Is(err, errPersist) {
						return err
					}
				}
			}
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "resume the session with this id")
	return cmd
}

// permissionCommand handles the chat commands that manage remembered
// permission decisions.
func (a *app) permissionCommand(sess *session.Session, text string) {
	fields := strings.Fields(text)
	if sess == nil {
		a.console.Println("No session yet.")
		return
	}
	switch fields[0] {
	case "/permissions":
		remembered := a.gate.Remembered(sess.ID)
		if len(remembered) == 0 {
			a.console.Println("No remembered decisions.")
			return
		}
		keys := slices.Sorted(maps.Keys(remembered))
		for _, k := range keys {
			a.console.Println(fmt.Sprintf("%s  %s", remembered[k], k))
		}
	case "/revoke":
		if len(fields) != 2 {
			a.console.Println("usage: /revoke KEY")
			return
		}
		if a.gate.Revoke(sess.ID, fields[1]) {
			a.console.Println("Revoked " + fields[1])
		} else {
			a.console.Println("Nothing remembered for " + fields[1])
		}
	case "/forget":
		a.gate.Forget(sess.ID)
		a.console.Println("Forgot remembered decisions.")
	default:
		a.console.Println("unknown command " + fields[0])
	}
}
