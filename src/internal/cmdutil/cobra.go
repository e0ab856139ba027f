package cmdutil

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
)

// PrintErrorStacks should be set to true if you want to print out a stack for errors that are
// returned by the run commands.
var PrintErrorStacks bool

// Main populates appEnv from the environment (and decoders), then runs do.  Any error is printed to
// stderr and the process exits with status 1; otherwise it exits with status 0.
func Main[T any](ctx context.Context, do func(context.Context, T) error, appEnv T, decoders ...Decoder) {
	if err := Populate(appEnv, decoders...); err != nil {
		ErrorAndExit("%v", err)
	}
	if err := do(ctx, appEnv); err != nil {
		ErrorAndExit("%v", err)
	}
	os.Exit(0)
}

// RunFixedArgs wraps a function in a function that checks its exact argument count.
func RunFixedArgs(numArgs int, run func([]string) error) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		if len(args) != numArgs {
			fmt.Fprintf(os.Stderr, "expected %d arguments, got %d\n\n", numArgs, len(args))
			cmd.Usage() //nolint:errcheck
			os.Exit(2)
		}
		if err := run(args); err != nil {
			ErrorAndExit("%v", err)
		}
	}
}

// RunMinimumArgs wraps a function in a function that checks its argument count is above a minimum
// amount.
func RunMinimumArgs(min int, run func([]string) error) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		if len(args) < min {
			fmt.Fprintf(os.Stderr, "expected at least %d arguments, got %d\n\n", min, len(args))
			cmd.Usage() //nolint:errcheck
			os.Exit(2)
		}
		if err := run(args); err != nil {
			ErrorAndExit("%v", err)
		}
	}
}

// ErrorAndExit errors with the given format and args, and then exits.
func ErrorAndExit(format string, args ...interface{}) {
	if errString := strings.TrimSpace(fmt.Sprintf(format, args...)); errString != "" {
		fmt.Fprintf(os.Stderr, "%s\n", errString)
	}
	if len(args) > 0 && PrintErrorStacks {
		if err, ok := args[0].(error); ok {
			errors.ForEachStackFrame(err, func(frame errors.Frame) {
				fmt.Fprintf(os.Stderr, "%+v\n", frame)
			})
		}
	}
	os.Exit(1)
}
