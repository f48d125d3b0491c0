// Package main is the entry point for the swarm CLI.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/runoshun/swarm-factory/internal/app"
	"github.com/runoshun/swarm-factory/internal/cli"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cwd, err := os.Getwd()
	if err != nil {
		return fail(os.Stdout, os.Stderr, fmt.Errorf("failed to get current directory: %w", err))
	}

	container, err := app.New(cwd)
	if err != nil {
		return fail(os.Stdout, os.Stderr, fmt.Errorf("failed to initialize: %w", err))
	}
	defer func() { _ = container.Close() }()

	rootCmd := cli.NewRootCommand(container, version)
	if err := rootCmd.Execute(); err != nil {
		return fail(os.Stdout, os.Stderr, err)
	}
	return cli.ExitOK
}

// fail prints the error envelope on stdout and the message on stderr.
func fail(stdout, stderr io.Writer, err error) int {
	cli.WriteError(stdout, err)
	_, _ = fmt.Fprintln(stderr, err)
	return cli.ExitCode(err)
}
