package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	timea "github.com/caarlos0/timea.go"
	"github.com/charmbracelet/huh"
	xstrings "github.com/charmbracelet/x/exp/strings"
	"github.com/spf13/cobra"

	claude "github.com/AshwinPathi/claude-api-go"
	"github.com/AshwinPathi/claude-api-go/internal/config"
	"github.com/AshwinPathi/claude-api-go/internal/transcript"
)

var errNotDeleted = errors.New("some conversations were not deleted")

func newListCmd(a *app) *cobra.Command {
	var cached bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the conversations of the organization.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			session, err := a.getSession(ctx)
			if err != nil {
				return err
			}
			org := session.Organization()

			var convos []claude.Conversation
			if cached {
				index := a.getIndex()
				if index == nil {
					return newUserErrorf("--cached needs the conversation index, which --no-cache disables")
				}
				indexed, err := index.List(org)
				if err != nil {
					return err //nolint:wrapcheck
				}
				for _, c := range indexed {
					convos = append(convos, claude.Conversation{
						UUID:      c.ID,
						Name:      c.Title,
						Model:     c.Model,
						UpdatedAt: c.UpdatedAt,
					})
				}
			} else {
				done := a.status("Listing conversations...")
				convos, err = session.Conversations(ctx)
				done()
				if err != nil {
					return err //nolint:wrapcheck
				}
				a.sync(org, convos)
			}

			if len(convos) == 0 {
				fmt.Fprintln(a.errOut, "No conversations found.")
				return nil
			}
			slices.SortStableFunc(convos, func(x, y claude.Conversation) int {
				return y.UpdatedAt.Compare(x.UpdatedAt)
			})
			s := stdoutStyles()
			for _, c := range convos {
				name := c.Name
				if name == "" {
					name = "(untitled)"
				}
				fmt.Fprintf(
					a.out,
					"%s %s %s\n",
					s.UUID.Render(shortID(c.UUID)),
					s.Title.Render(firstLine(name)),
					s.Timestamp.Render(timea.Of(c.UpdatedAt)),
				)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&cached, "cached", false, "List the local conversation index without asking the server.")
	return cmd
}

// target resolves the conversation named by args, or the last one used.
func (a *app) target(org string, args []string) (string, error) {
	if len(args) > 0 {
		return a.resolve(org, args[0])
	}
	return a.last(org)
}

func newShowCmd(a *app) *cobra.Command {
	var (
		cached bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "show [CONVERSATION]",
		Short: "Print the history of a conversation, or of the last one used.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := a.getSession(ctx)
			if err != nil {
				return err
			}
			org := session.Organization()
			id, err := a.target(org, args)
			if err != nil {
				return err
			}

			if cached {
				transcripts := a.transcriptCache()
				if transcripts == nil {
					return newUserErrorf("--cached needs the transcript cache, which --no-cache disables")
				}
				cc, err := transcripts.Read(id)
				if errors.Is(err, os.ErrNotExist) {
					return cliError{err, "No cached transcript for this conversation. Run without --cached first."}
				}
				if err != nil {
					return err //nolint:wrapcheck
				}
				fmt.Fprint(a.out, a.render(cc.String()))
				return nil
			}

			done := a.status("Fetching conversation...")
			info, err := session.ConversationInfo(ctx, id)
			done()
			if err != nil {
				return err //nolint:wrapcheck
			}
			a.remember(org, info.UUID, info.Name, info.Model)
			cc := transcript.FromInfo(info)
			a.cacheTranscript(cc)

			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(info) //nolint:wrapcheck
			}
			fmt.Fprint(a.out, a.render(cc.String()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&cached, "cached", false, config.Help["cached"])
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the conversation as returned by the server.")
	cmd.MarkFlagsMutuallyExclusive("cached", "json")
	return cmd
}

func newRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename CONVERSATION TITLE...",
		Short: "Rename a conversation.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := a.getSession(ctx)
			if err != nil {
				return err
			}
			org := session.Organization()
			id, err := a.resolve(org, args[0])
			if err != nil {
				return err
			}
			title := strings.Join(args[1:], " ")
			convo, err := session.RenameConversation(ctx, id, title)
			if err != nil {
				return err //nolint:wrapcheck
			}
			if convo.Name != "" {
				title = convo.Name
			}
			a.remember(org, id, title, convo.Model)
			s := stdoutStyles()
			fmt.Fprintf(a.out, "Renamed %s to %s\n", s.UUID.Render(shortID(id)), s.Title.Render(title))
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	var all, yes bool
	cmd := &cobra.Command{
		Use:     "delete [CONVERSATION...]",
		Aliases: []string{"rm"},
		Short:   "Delete conversations.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if all && len(args) > 0 {
				return newUserErrorf("--all does not take conversations")
			}
			if !all && len(args) == 0 {
				return newUserErrorf("no conversation given, name one or use --all")
			}
			session, err := a.getSession(ctx)
			if err != nil {
				return err
			}
			org := session.Organization()
			s := stdoutStyles()

			if all {
				if !yes && a.interactive() {
					var ok bool
					if err := huh.NewConfirm().
						Title("Delete every conversation of the organization?").
						Affirmative("Delete").
						Negative("Cancel").
						Value(&ok).
						Run(); err != nil {
						return err //nolint:wrapcheck
					}
					if !ok {
						return nil
					}
				}
				done := a.status("Deleting conversations...")
				failed, err := session.DeleteAllConversations(ctx)
				done()
				if err != nil {
					return err //nolint:wrapcheck
				}
				a.forgetAll(org, failed)
				if len(failed) > 0 {
					short := make([]string, 0, len(failed))
					for _, id := range failed {
						fmt.Fprintf(a.errOut, "could not delete %s\n", id)
						short = append(short, shortID(id))
					}
					return cliError{
						fmt.Errorf("%w: %d", errNotDeleted, len(failed)),
						fmt.Sprintf("Could not delete %s.", xstrings.EnglishJoin(short, true)),
					}
				}
				fmt.Fprintln(a.out, "Deleted every conversation.")
				return nil
			}

			for _, in := range args {
				id, err := a.resolve(org, in)
				if err != nil {
					return err
				}
				if err := session.DeleteConversation(ctx, id); err != nil {
					return err //nolint:wrapcheck
				}
				a.forget(id)
				fmt.Fprintf(a.out, "Deleted %s\n", s.UUID.Render(shortID(id)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, config.Help["all"])
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, config.Help["yes"])
	return cmd
}
