package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	claude "github.com/AshwinPathi/claude-api-go"
)

const countConcurrency = 4

func newOrgsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "orgs",
		Short: "List the organizations of the session and their conversation counts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			done := a.status("Listing organizations...")
			defer done()
			orgs, err := a.organizations(ctx, true)
			if err != nil {
				return err
			}
			client, err := a.getClient()
			if err != nil {
				return err
			}

			counts := make([]int, len(orgs))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(countConcurrency)
			for i, org := range orgs {
				g.Go(func() error {
					convos, err := client.Conversations(gctx, org.UUID)
					if err != nil {
						return fmt.Errorf("%s: %w", org.UUID, err)
					}
					counts[i] = len(convos)
					return nil
				})
			}
			err = g.Wait()
			done()
			if err != nil {
				return err //nolint:wrapcheck
			}

			s := stdoutStyles()
			for i, org := range orgs {
				marker := " "
				if org.UUID == a.cfg.Organization || (a.cfg.Organization == "" && i == 0) {
					marker = "*"
				}
				fmt.Fprintf(
					a.out,
					"%s %s %s %s\n",
					marker,
					s.UUID.Render(org.UUID),
					s.Title.Render(org.Name),
					s.Comment.Render(fmt.Sprintf("(%d conversations)", counts[i])),
				)
			}
			return nil
		},
	}
}

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models a message can be answered with.",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			s := stdoutStyles()
			for _, m := range claude.Models {
				marker := " "
				if string(m) == a.cfg.Model {
					marker = "*"
				}
				fmt.Fprintf(a.out, "%s %s\n", marker, s.Flag.Render(m.String()))
			}
			return nil
		},
	}
}
