package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/runoshun/swarm-factory/internal/domain"
)

// Exit codes returned by the swarm binary.
const (
	ExitOK         = 0
	ExitValidation = 1
	ExitNotFound   = 2
	ExitFailure    = 3
)

// envelope is the JSON shape every command prints on stdout.
type envelope struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
	OK    bool   `json:"ok"`
}

// writeResult prints a successful result.
func writeResult(w io.Writer, data any) error {
	return writeEnvelope(w, envelope{OK: true, Data: data})
}

// WriteError prints a failed result.
func WriteError(w io.Writer, err error) {
	_ = writeEnvelope(w, envelope{Error: err.Error()})
}

func writeEnvelope(w io.Writer, e envelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, domain.ErrValidation), errors.Is(err, errUsage):
		return ExitValidation
	case errors.Is(err, domain.ErrNotFound):
		return ExitNotFound
	default:
		return ExitFailure
	}
}

// errUsage marks command-line misuse such as a missing argument.
var errUsage = errors.New("invalid usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), errUsage)
}

// usageArgs marks positional argument errors as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		return nil
	}
}
