package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/x/exp/ordered"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	claude "github.com/AshwinPathi/claude-api-go"
	"github.com/AshwinPathi/claude-api-go/internal/config"
	"github.com/AshwinPathi/claude-api-go/stream"
	"github.com/AshwinPathi/claude-api-go/transport"
)

var errNothingToSend = errors.New("no message given")

// answerFlags are shared by the commands that get an answer back.
type answerFlags struct {
	attach []string
	json   bool
	copy   bool
}

func (f *answerFlags) register(flags *flag.FlagSet) {
	flags.StringArrayVarP(&f.attach, "attach", "a", nil, config.Help["attach"])
	flags.BoolVar(&f.json, "json", false, config.Help["json"])
	flags.BoolVar(&f.copy, "copy", false, config.Help["copy"])
}

// prompt joins args, loads it when it names a file or URL, and appends
// whatever was piped in.
func (a *app) prompt(ctx context.Context, args []string) (string, error) {
	text, err := loadMsg(ctx, transport.New(transport.WithLogger(a.logger)), strings.Join(args, " "))
	if err != nil {
		return "", cliError{err, "Could not load the message."}
	}
	if a.piped {
		bts, err := io.ReadAll(a.in)
		if err != nil {
			return "", cliError{err, "Could not read standard input."}
		}
		if in := strings.TrimSpace(string(bts)); in != "" {
			text = strings.TrimSpace(text + "\n\n" + in)
		}
	}
	return strings.TrimSpace(text), nil
}

func (a *app) message(ctx context.Context, session *claude.Session, text string, attach []string) (claude.Message, error) {
	msg := claude.Message{Text: text}
	if len(attach) == 0 {
		return msg, nil
	}
	done := a.status("Attaching files...")
	defer done()
	for _, path := range attach {
		att, err := session.Attachment(ctx, path)
		if err != nil {
			return msg, cliError{err, fmt.Sprintf("Could not attach %s.", path)}
		}
		a.logger.Debug("attached", "file", att.FileName, "type", att.FileType, "size", att.FileSize)
		msg.Attachments = append(msg.Attachments, att)
	}
	return msg, nil
}

func (a *app) printAnswer(msg stream.Message, f answerFlags) error {
	if f.json {
		if _, err := a.out.Write(append(msg.Raw(), '\n')); err != nil {
			return err //nolint:wrapcheck
		}
	} else {
		fmt.Fprintln(a.out, a.render(msg.Text()))
	}
	if !msg.Complete {
		a.logger.Warn("answer ended before its stop reason", "events", msg.Events)
	}
	if f.copy {
		a.copy(msg.Text())
	}
	return nil
}

func (a *app) copy(text string) {
	if err := clipboard.WriteAll(text); err != nil {
		a.logger.Warn("could not copy to clipboard", "err", err)
		return
	}
	a.logger.Debug("copied answer to clipboard")
}

// live prints the fragments of an answer as they arrive and returns the
// whole text.
func (a *app) live(ctx context.Context, session *claude.Session, convo string, msg claude.Message, asJSON bool) (string, error) {
	st, err := session.StreamMessage(ctx, convo, msg)
	if err != nil {
		return "", err //nolint:wrapcheck
	}
	defer st.Close() //nolint:errcheck

	var (
		sb     strings.Builder
		events int
	)
	for st.Next() {
		ev := st.Current()
		events++
		if asJSON {
			_, _ = a.out.Write(append(ev.Raw(), '\n'))
		}
		if fragment, ok := ev.Completion(); ok {
			sb.WriteString(fragment)
			if !asJSON {
				fmt.Fprint(a.out, fragment)
			}
		}
		if reason, ok := ev.StopReason(); ok && reason == stream.TerminalStopReason {
			break
		}
	}
	if !asJSON && sb.Len() > 0 {
		fmt.Fprintln(a.out)
	}
	if err := st.Err(); err != nil {
		return sb.String(), err //nolint:wrapcheck
	}
	if events == 0 {
		return "", stream.ErrEmptyStream
	}
	return sb.String(), nil
}

func newSendCmd(a *app) *cobra.Command {
	var (
		convo string
		last  bool
		live  bool
		f     answerFlags
	)
	cmd := &cobra.Command{
		Use:   "send [MESSAGE...]",
		Short: "Send a message to a conversation and print the answer.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			text, err := a.prompt(ctx, args)
			if err != nil {
				return err
			}
			if text == "" {
				return cliError{errNothingToSend, "Pass a message or pipe one in."}
			}
			session, err := a.getSession(ctx)
			if err != nil {
				return err
			}
			org := session.Organization()

			var id string
			switch {
			case convo != "":
				id, err = a.resolve(org, convo)
			case last:
				id, err = a.last(org)
			}
			if err != nil {
				return err
			}

			msg, err := a.message(ctx, session, text, f.attach)
			if err != nil {
				return err
			}

			if live {
				answer, err := a.live(ctx, session, id, msg, f.json)
				if err != nil {
					return err
				}
				a.remember(org, id, "", a.cfg.Model)
				if f.copy {
					a.copy(answer)
				}
				return nil
			}

			done := a.status("Waiting for Claude...")
			resp, err := session.SendMessage(ctx, id, msg)
			done()
			if resp.Events > 0 {
				a.remember(org, id, "", a.cfg.Model)
				if perr := a.printAnswer(resp, f); perr != nil {
					return perr
				}
			}
			return err //nolint:wrapcheck
		},
	}
	cmd.Flags().StringVarP(&convo, "continue", "c", "", config.Help["continue"])
	cmd.Flags().BoolVarP(&last, "continue-last", "C", false, config.Help["continue-last"])
	cmd.Flags().BoolVarP(&live, "stream", "s", false, config.Help["stream"])
	cmd.MarkFlagsMutuallyExclusive("continue", "continue-last")
	f.register(cmd.Flags())
	return cmd
}

func newNewCmd(a *app) *cobra.Command {
	var (
		title string
		f     answerFlags
	)
	cmd := &cobra.Command{
		Use:   "new [MESSAGE...]",
		Short: "Start a conversation, optionally with a first message.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			text, err := a.prompt(ctx, args)
			if err != nil {
				return err
			}
			session, err := a.getSession(ctx)
			if err != nil {
				return err
			}
			msg, err := a.message(ctx, session, text, f.attach)
			if err != nil {
				return err
			}

			name := ordered.First(title, firstLine(text), "New conversation")

			done := a.status("Starting conversation...")
			created, err := session.StartConversation(ctx, name, msg)
			done()
			if created.UUID != "" {
				a.remember(session.Organization(), created.UUID, ordered.First(created.Title, name), a.cfg.Model)
			}
			if err != nil {
				return err //nolint:wrapcheck
			}

			if !f.json {
				s := stdoutStyles()
				fmt.Fprintf(a.out, "%s %s\n\n", s.UUID.Render(created.UUID), s.Title.Render(created.Title))
			}
			if created.Response == nil {
				return nil
			}
			return a.printAnswer(*created.Response, f)
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", config.Help["title"])
	f.register(cmd.Flags())
	return cmd
}

func newUploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE",
		Short: "Turn a file into an attachment and print it as JSON.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := a.getSession(ctx)
			if err != nil {
				return err
			}
			done := a.status("Uploading...")
			att, err := session.Attachment(ctx, args[0])
			done()
			if err != nil {
				return cliError{err, fmt.Sprintf("Could not attach %s.", args[0])}
			}
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(att) //nolint:wrapcheck
		},
	}
}
