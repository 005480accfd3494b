package service

import (
	"errors"

	"github.com/timmy/recordhub/internal/source"
)

var (
	// ErrSourceUnavailable marks a source whose connector produced no data.
	// The source's run fails; other sources continue.
	ErrSourceUnavailable = source.ErrSourceUnavailable

	// ErrRecordProcessing marks one record that could not be normalized or
	// resolved. It is counted and skipped, and the raw record stays unprocessed.
	ErrRecordProcessing = errors.New("record processing failed")

	// ErrCheckpointWrite marks a failed checkpoint update. The source's run fails.
	ErrCheckpointWrite = errors.New("checkpoint write failed")

	// ErrStore marks any other persistence failure.
	ErrStore = errors.New("store operation failed")

	// ErrInvocationExhausted is returned once every invocation attempt failed.
	ErrInvocationExhausted = errors.New("pipeline invocation retries exhausted")

	// ErrRunFinalized is returned when finishing a run that is not in progress.
	ErrRunFinalized = errors.New("run already finalized")

	// ErrRunNotFound is returned when finishing an unknown run id.
	ErrRunNotFound = errors.New("run not found")
)
