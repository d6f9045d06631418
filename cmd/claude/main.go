package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/charmbracelet/x/editor"
	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/AshwinPathi/claude-api-go/internal/config"
)

// Build vars.
var (
	//nolint: gochecknoglobals
	Version   = ""
	CommitSHA = ""
)

func buildVersion() string {
	if Version != "" {
		if len(CommitSHA) >= 7 {
			return Version + " (" + CommitSHA[:7] + ")"
		}
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Sum != "" {
		return info.Main.Version
	}
	return "unknown (built from source)"
}

func newRootCmd(a *app) *cobra.Command {
	var showSettings bool
	cmd := &cobra.Command{
		Use:           "claude",
		Short:         "Chat with Claude from the command line.",
		Version:       buildVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cmd.SetContext(a.setup(cmd.Context()))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showSettings {
				return a.editSettings()
			}
			return cmd.Usage()
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&a.cfg.Raw, "raw", "r", a.cfg.Raw, config.Help["raw"])
	flags.BoolVarP(&a.cfg.Quiet, "quiet", "q", a.cfg.Quiet, config.Help["quiet"])
	flags.BoolVar(&a.cfg.Verbose, "verbose", a.cfg.Verbose, config.Help["verbose"])
	flags.BoolVar(&a.cfg.NoCache, "no-cache", a.cfg.NoCache, config.Help["no-cache"])
	flags.StringVarP(&a.cfg.Organization, "organization", "o", a.cfg.Organization, config.Help["organization"])
	flags.StringVarP(&a.cfg.Model, "model", "m", a.cfg.Model, config.Help["model"])
	flags.StringVar(&a.cfg.Timezone, "timezone", a.cfg.Timezone, config.Help["timezone"])
	flags.Var(newDurationFlag(a.cfg.Timeout, &a.cfg.Timeout), "timeout", config.Help["timeout"])
	flags.IntVar(&a.cfg.WordWrap, "word-wrap", a.cfg.WordWrap, config.Help["word-wrap"])
	cmd.Flags().BoolVar(&showSettings, "settings", false, config.Help["settings"])
	cmd.Flags().BoolP("version", "v", false, config.Help["version"])
	cmd.Flags().BoolP("help", "h", false, config.Help["help"])

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return newFlagParseError(err)
	})
	cmd.SetUsageFunc(usageFunc)

	cmd.AddCommand(
		newOrgsCmd(a),
		newModelsCmd(a),
		newListCmd(a),
		newNewCmd(a),
		newSendCmd(a),
		newShowCmd(a),
		newRenameCmd(a),
		newDeleteCmd(a),
		newUploadCmd(a),
		newManCmd(cmd),
	)
	return cmd
}

func newManCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:                   "man",
		Short:                 "Generates manpages",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Hidden:                true,
		Args:                  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manPage, err := mcobra.NewManPage(1, root)
			if err != nil {
				return err //nolint:wrapcheck
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), manPage.Build(roff.NewDocument()))
			return err //nolint:wrapcheck
		},
	}
}

// isCompletionCmd and isManCmd tell whether the command line only asks for
// shell completions or the manpage, which work without a settings file.
func isCompletionCmd(args []string) bool {
	if len(args) <= 1 {
		return false
	}
	if args[1] == "__complete" {
		return true
	}
	if args[1] != "completion" {
		return false
	}
	switch len(args) {
	case 3:
		_, ok := map[string]any{
			"bash":       nil,
			"fish":       nil,
			"zsh":        nil,
			"powershell": nil,
			"-h":         nil,
			"--help":     nil,
			"help":       nil,
		}[args[2]]
		return ok
	case 4:
		return args[3] == "-h" || args[3] == "--help"
	}
	return false
}

func isManCmd(args []string) bool {
	switch len(args) {
	case 2:
		return args[1] == "man"
	case 3:
		return args[1] == "man" && (args[2] == "-h" || args[2] == "--help")
	}
	return false
}

// editSettings opens the settings file in $EDITOR, or prints its path when
// not on a terminal.
func (a *app) editSettings() error {
	if !a.interactive() {
		fmt.Fprintln(a.out, a.cfg.SettingsPath)
		return nil
	}
	c, err := editor.Cmd("claude", a.cfg.SettingsPath)
	if err != nil {
		return cliError{err, "Could not edit your settings file."}
	}
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return cliError{err, fmt.Sprintf("Missing %s.", stderrStyles().InlineCode.Render("$EDITOR"))}
	}
	if !a.cfg.Quiet {
		fmt.Fprintln(a.errOut, "Wrote config file to:", a.cfg.SettingsPath)
	}
	return nil
}

func useLine(cmd *cobra.Command) string {
	name := cmd.CommandPath()
	if !cmd.HasParent() {
		name = filepath.Base(os.Args[0])
	}
	if stdoutRenderer().ColorProfile() == termenv.TrueColor {
		name = makeGradientText(stdoutStyles().AppName, name)
	} else {
		name = stdoutStyles().AppName.Render(name)
	}
	args := "[OPTIONS]"
	if cmd.HasAvailableSubCommands() {
		args = "COMMAND [OPTIONS]"
	} else if _, rest, ok := strings.Cut(cmd.Use, " "); ok {
		args = rest + " [OPTIONS]"
	}
	return fmt.Sprintf("%s %s", name, stdoutStyles().CliArgs.Render(args))
}

func usageFunc(cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	s := stdoutStyles()
	fmt.Fprintf(w, "%s\n\nUsage:\n  %s\n", cmd.Short, useLine(cmd))

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintln(w, "\nCommands:")
		for _, sub := range cmd.Commands() {
			if !sub.IsAvailableCommand() {
				continue
			}
			fmt.Fprintf(w, "  %-26s %s\n", s.Flag.Render(sub.Name()), s.Comment.Render(sub.Short))
		}
	}

	fmt.Fprintln(w, "\nOptions:")
	printFlag := func(f *flag.Flag) {
		if f.Hidden {
			return
		}
		if f.Shorthand == "" {
			fmt.Fprintf(w, "  %-44s %s\n", s.Flag.Render("--"+f.Name), s.Comment.Render(f.Usage))
			return
		}
		fmt.Fprintf(
			w,
			"  %s, %-40s %s\n",
			s.Flag.Render("-"+f.Shorthand),
			s.Flag.Render("--"+f.Name),
			s.Comment.Render(f.Usage),
		)
	}
	cmd.LocalFlags().VisitAll(printFlag)
	cmd.InheritedFlags().VisitAll(printFlag)

	desc, example := randomExample()
	fmt.Fprintf(
		w,
		"\nExample:\n  %s\n  %s\n",
		s.Comment.Render("# "+desc),
		s.InlineCode.Render(example),
	)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cfg, err := config.Ensure()
	if err != nil && !isCompletionCmd(os.Args) && !isManCmd(os.Args) {
		stop()
		handleError(os.Stderr, err)
		os.Exit(1)
	}

	a := newApp(cfg)
	err = newRootCmd(a).ExecuteContext(ctx)
	a.close(err)
	stop()
	if err != nil {
		handleError(os.Stderr, err)
		os.Exit(1)
	}
}

func handleError(w io.Writer, err error) {
	// exhaust stdin
	if !isInputTTY() {
		_, _ = io.Copy(io.Discard, os.Stdin)
	}
	fmt.Fprint(w, formatError(err))
}

func formatError(err error) string {
	s := stderrStyles()
	format := "\n%s\n\n"
	var args []any

	var ferr flagParseError
	if errors.As(err, &ferr) {
		reason := ferr.ReasonFormat()
		if ferr.Flag() != "" {
			reason = fmt.Sprintf(reason, s.InlineCode.Render(ferr.Flag()))
		}
		format += "%s\n\n"
		args = []any{
			fmt.Sprintf(
				"Check out %s %s",
				s.InlineCode.Render("claude -h"),
				s.Comment.Render("for help."),
			),
			reason,
		}
		return fmt.Sprintf(format, args...)
	}

	var cerr cliError
	if errors.As(explain(err), &cerr) {
		format += "%s\n\n"
		args = []any{
			s.ErrPadding.Render(s.ErrorHeader.String(), cerr.Reason()),
			s.ErrPadding.Render(s.ErrorDetails.Render(err.Error())),
		}
	}
	return fmt.Sprintf(format, args...)
}
