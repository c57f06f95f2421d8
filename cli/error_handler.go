package cli

import (
	"fmt"
	"io"

	"github.com/grovetools/hermes/errors"
)

// ErrorHandler turns structured errors into actionable messages.
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates an error handler writing to out.
func NewErrorHandler(verbose bool, out io.Writer) *ErrorHandler {
	return &ErrorHandler{Verbose: verbose, Out: out}
}

// Handle prints err and returns it unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	he, _ := errors.As(err)

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(h.Out, "Configuration not found: %v\n", err)
		fmt.Fprintf(h.Out, "Create hermes.yml or pass --config.\n")

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintf(h.Out, "Invalid configuration: %v\n", err)
		fmt.Fprintf(h.Out, "Run 'hermes config schema' to see the accepted keys.\n")

	case errors.ErrCodeTransport, errors.ErrCodeTimeout:
		fmt.Fprintf(h.Out, "Backend unreachable: %v\n", err)
		if he != nil && he.Details["url"] != nil {
			fmt.Fprintf(h.Out, "Check that the backend is running at %v, or start 'hermes mock-server'.\n", he.Details["url"])
		}

	case errors.ErrCodeNotFound:
		fmt.Fprintf(h.Out, "Not found: %v\n", err)

	case errors.ErrCodeHTTPStatus:
		if he != nil {
			fmt.Fprintf(h.Out, "Backend answered with status %v\n", he.Details["status"])
		} else {
			fmt.Fprintf(h.Out, "Backend error: %v\n", err)
		}

	case errors.ErrCodeInvalidInput:
		fmt.Fprintf(h.Out, "Invalid input: %v\n", err)

	default:
		fmt.Fprintf(h.Out, "Error: %v\n", err)
	}

	if h.Verbose && he != nil {
		fmt.Fprintf(h.Out, "\nError details:\n%s\n", he.ToJSON())
	}
	return err
}
