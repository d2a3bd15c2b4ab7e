// Command fieldviz loads HCL scene files and builds their graphics.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	if err := run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run executes the command line in args, writing results to out and
// logs to logOut.
func run(out, logOut io.Writer, args []string) error {
	cmd := newRootCmd(out, logOut)
	cmd.SetArgs(args)
	return cmd.Execute()
}
