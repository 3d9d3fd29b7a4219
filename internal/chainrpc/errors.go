package chainrpc

import (
	"errors"
	"fmt"
)

// Errors mapped from well-known node error codes. Anything else surfaces as
// the raw rpcError.
var (
	ErrHealthCheck   = errors.New("node: health check refused loss report")
	ErrLossAboveMax  = errors.New("node: withdrawal loss exceeds max loss")
	ErrEmptyPosition = errors.New("node: destination refuses empty position")
)

func mapNodeError(e *rpcError) error {
	switch e.Code {
	case codeHealthCheck:
		return fmt.Errorf("%w: %s", ErrHealthCheck, e.Message)
	case codeLossAboveMax:
		return fmt.Errorf("%w: %s", ErrLossAboveMax, e.Message)
	case codeEmptyPosition:
		return fmt.Errorf("%w: %s", ErrEmptyPosition, e.Message)
	default:
		return e
	}
}
