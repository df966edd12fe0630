package converter

import (
	"errors"
	"fmt"
)

type Stage string

const (
	StageOpen   Stage = "open"
	StageExport Stage = "export"
)

// ConversionError is the one error kind reported to the user. Stage tells
// which library call failed; Cause keeps the library error.
type ConversionError struct {
	Stage Stage
	Path  string
	Cause error
}

func (e *ConversionError) Error() string {
	switch e.Stage {
	case StageOpen:
		return fmt.Sprintf("Failed to open '%s': %v", e.Path, e.Cause)
	default:
		return fmt.Sprintf("Failed to save DZI: %v", e.Cause)
	}
}

func (e *ConversionError) Unwrap() error {
	return e.Cause
}

// IsStage reports whether err is a ConversionError raised at stage.
func IsStage(err error, stage Stage) bool {
	var ce *ConversionError
	return errors.As(err, &ce) && ce.Stage == stage
}
