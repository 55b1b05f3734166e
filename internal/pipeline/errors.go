package pipeline

import (
	"errors"
	"fmt"
)

// Configuration errors, detected before any geometry work begins.
var (
	ErrFieldNotFound = errors.New("division field not found")
	ErrBadFieldName  = errors.New("output field name sanitizes to empty")
	ErrBadFieldType  = errors.New("unsupported division field type")
)

// Stage identifies which part of the run produced a failure.
type Stage string

const (
	StageSchema     Stage = "schema"
	StageCategories Stage = "categories"
	StagePartition  Stage = "partition"
	StageRecover    Stage = "recover"
	StageDedup      Stage = "dedup"
	StageOutput     Stage = "output"
)

// StageError wraps an engine failure with the failing stage. A run aborts on
// the first StageError; scratch cleanup still happens best-effort.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(s Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: s, Err: err}
}
