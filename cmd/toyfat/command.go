package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// errUsage is returned after help has been printed for a malformed call.
var errUsage = errors.New("usage")

// command is a CLI command or a group of subcommands.
type command struct {
	Name    string
	Summary string
	// Usage is the argument synopsis shown after the command path.
	Usage string

	// Flags registers the command's flags on fs.
	Flags func(fs *pflag.FlagSet)

	Subcommands []*command

	// Run executes the command with the positional args left after flag parsing.
	Run func(ctx context.Context, app *app, fs *pflag.FlagSet, args []string) error

	// Args is the exact number of positional args, or -1 for any.
	Args int

	parent *command
}

func (c *command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

func (c *command) flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(c.fullName(), pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if c.Flags != nil {
		c.Flags(fs)
	}
	return fs
}

// execute dispatches args to a subcommand or parses flags and runs c.
func (c *command) execute(ctx context.Context, a *app, args []string) error {
	if len(c.Subcommands) > 0 {
		if len(args) == 0 || isHelpFlag(args[0]) {
			c.printHelp(a.stderr)
			if len(args) == 0 {
				return errUsage
			}
			return nil
		}
		for _, sub := range c.Subcommands {
			if sub.Name == args[0] {
				sub.parent = c
				return sub.execute(ctx, a, args[1:])
			}
		}
		return fmt.Errorf("unknown command %q\n\nRun '%s --help' for usage", args[0], c.fullName())
	}

	fs := c.flagSet()
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			c.printHelp(a.stderr)
			return nil
		}
		return fmt.Errorf("%w\n\nRun '%s --help' for usage", err, c.fullName())
	}
	if c.Args >= 0 && fs.NArg() != c.Args {
		c.printHelp(a.stderr)
		return errUsage
	}
	return c.Run(ctx, a, fs, fs.Args())
}

func (c *command) printHelp(w io.Writer) {
	if c.Summary != "" {
		fmt.Fprintf(w, "%s\n\n", c.Summary)
	}

	switch {
	case len(c.Subcommands) > 0:
		fmt.Fprintf(w, "Usage:\n  %s <command> [flags]\n", c.fullName())
	case c.Usage != "":
		fmt.Fprintf(w, "Usage:\n  %s [flags] %s\n", c.fullName(), c.Usage)
	default:
		fmt.Fprintf(w, "Usage:\n  %s [flags]\n", c.fullName())
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nCommands:\n")
		tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			fmt.Fprintf(tw, "  %s\t%s\n", sub.Name, sub.Summary)
		}
		_ = tw.Flush()
		return
	}

	var help strings.Builder
	fs := c.flagSet()
	fs.SetOutput(&help)
	fs.PrintDefaults()
	if help.Len() > 0 {
		fmt.Fprintf(w, "\nFlags:\n%s", help.String())
	}
}

func isHelpFlag(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}
