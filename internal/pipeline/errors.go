package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoData matches every NoDataError via errors.Is.
var ErrNoData = errors.New("no data")

// NoDataError is returned when a stage that needs at least one row received none.
type NoDataError struct {
	Stage string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("%s: no data", e.Stage)
}

func (e *NoDataError) Is(target error) bool {
	return target == ErrNoData
}

func noData(stage string) error {
	return &NoDataError{Stage: stage}
}

// UnrecognizedSelectionError reports an unknown catalog or aggregation name.
// It is soft: the accompanying value is always the documented fallback.
type UnrecognizedSelectionError struct {
	Kind     string
	Value    string
	Fallback string
}

func (e *UnrecognizedSelectionError) Error() string {
	return fmt.Sprintf("unrecognized %s %q, using %q", e.Kind, e.Value, e.Fallback)
}

// InvalidRangeError reports a date range whose end precedes its start.
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("date range end %s precedes start %s",
		e.End.Format(time.DateOnly), e.Start.Format(time.DateOnly))
}
