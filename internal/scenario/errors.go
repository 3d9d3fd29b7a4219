package scenario

import "errors"

// Runner errors
var (
	ErrScenarioUnknown     = errors.New("no script registered for scenario")
	ErrScenarioUnsupported = errors.New("scenario is not supported by the available backends")
)
