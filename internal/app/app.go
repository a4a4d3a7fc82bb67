// Package app wires gosha application execution.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gosha/internal/cli"
	apperrors "gosha/internal/errors"
)

// App wires CLI execution.
type App struct{}

// New creates an App.
func New() App {
	return App{}
}

// Run executes the application and returns a process exit code. An interrupt
// cancels in-flight hashing, which lets checkpointed files save their progress.
func (a App) Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewOSRootCommand()
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return apperrors.ExitCode(err)
	}

	return 0
}
