// Command ergo compiles nested cluster definitions into flat causal graphs
// and runs them.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/ergo/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}
	// Commands report their own failures; only flag and argument errors
	// reach here unprinted.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
