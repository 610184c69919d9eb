package cli

import (
	"errors"
	"fmt"

	"github.com/golovatskygroup/hookbase-mcp/internal/config"
)

// Process exit codes.
const (
	exitRuntime = 1
	exitConfig  = 2
	exitAuth    = 3
	exitNetwork = 4
)

// ExitError is an error that carries a specific process exit code.
// Cobra's RunE returns this to signal the desired exit code to main.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// exitError creates a new ExitError with the given code and formatted message.
func exitError(code int, format string, args ...any) *ExitError {
	return &ExitError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// resolveExitCode maps a resolution failure to its exit code.
func resolveExitCode(err error) int {
	var re *config.ResolveError
	if !errors.As(err, &re) {
		return exitRuntime
	}
	switch re.Kind {
	case config.KindAuthenticationFailed:
		return exitAuth
	case config.KindNetworkError:
		return exitNetwork
	default:
		return exitConfig
	}
}
