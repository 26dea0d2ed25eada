package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matzehuels/topoedit/internal/cli"
	"github.com/matzehuels/topoedit/pkg/errors"
)

// Exit codes. Validation findings exit with 2 so scripts can tell them
// apart from operational failures.
const (
	exitError       = 1
	exitFindings    = 2
	exitInterrupted = 130
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		switch {
		case stderrors.Is(err, context.Canceled):
			os.Exit(exitInterrupted)
		case errors.Is(err, errors.ErrCodeValidationFailed):
			fmt.Fprintln(os.Stderr, errors.UserMessage(err))
			os.Exit(exitFindings)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
	}
}

func run(ctx context.Context) error {
	var verbose bool

	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	inner := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if verbose {
			c.SetLogLevel(cli.LogDebug)
		}
		if inner != nil {
			return inner(cmd, args)
		}
		return nil
	}

	return root.ExecuteContext(ctx)
}
