package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/golovatskygroup/hookbase-mcp/internal/cli"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	rootCmd := cli.NewRootCmd(version)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
