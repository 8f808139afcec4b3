package engine

import (
	"errors"
	"fmt"
)

// ErrNoSource is returned by New when no frame source is supplied
var ErrNoSource = errors.New("engine: no frame source")

// AcquisitionError reports that the frame source could not be started,
// e.g. capture permission denied or device unavailable. The engine stays Idle.
type AcquisitionError struct {
	Source string
	Err    error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("engine: acquire %s: %v", e.Source, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}
