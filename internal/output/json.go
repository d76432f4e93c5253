// Package output holds the CLI's shared output conventions: the JSON
// envelope, exit codes and paging.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klytics/docconv/internal/formats/convert"
)

// Exit codes for consistent error reporting.
const (
	ExitOK          = 0 // success
	ExitUserError   = 1 // bad flags, missing file, invalid or unsupported input
	ExitSystemError = 2 // engine unavailable, resource limits, timeouts, unknown failures
)

// Version is reported in every JSON envelope. Set by the version command.
var Version = "dev"

// Stdout is where JSON envelopes are written.
var Stdout io.Writer = os.Stdout

// JSONResult is the standard JSON output envelope for all commands.
type JSONResult struct {
	OK      bool   `json:"ok"`
	Command string `json:"command"`
	Version string `json:"version"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// ExitCode maps an error onto the process exit code. Conversion failures
// use their kind; any other command error is the caller's.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ce *convert.Error
	if errors.As(err, &ce) && !ce.Kind.UserFault() {
		return ExitSystemError
	}
	return ExitUserError
}

// Message returns the text shown to the user for err. A bare conversion
// error shows its user message; wrapped errors keep their context.
func Message(err error) string {
	if ce, ok := err.(*convert.Error); ok {
		return ce.UserMessage()
	}
	return err.Error()
}

// PrintJSON writes a standard success JSON result.
func PrintJSON(cmd string, data any) error {
	return encode(JSONResult{
		OK:      true,
		Command: cmd,
		Version: Version,
		Data:    data,
	})
}

// PrintJSONError writes a standard error JSON result.
func PrintJSONError(cmd string, err error) error {
	result := JSONResult{
		OK:      false,
		Command: cmd,
		Version: Version,
		Error:   Message(err),
		Code:    ExitCode(err),
	}
	var ce *convert.Error
	if errors.As(err, &ce) {
		result.Kind = ce.Kind.String()
	}
	if encErr := encode(result); encErr != nil {
		return fmt.Errorf("could not encode JSON error: %w", encErr)
	}
	return nil
}

func encode(v any) error {
	enc := json.NewEncoder(Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
