// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// MalformedOutputError reports model output that failed structural
// extraction or schema validation. Recoverable when the consumer can
// exclude the offending lines; fatal inside submit validation.
type MalformedOutputError struct {
	Reason string
	Err    error
}

func (e *MalformedOutputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed model output: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed model output: %s", e.Reason)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// GenerationFailedError reports that a planner produced no usable plan
// for a record after retries. Contained at the record boundary.
type GenerationFailedError struct {
	RecordID string
	Err      error
}

func (e *GenerationFailedError) Error() string {
	return fmt.Sprintf("generating plan for %s: %v", e.RecordID, e.Err)
}

func (e *GenerationFailedError) Unwrap() error { return e.Err }

// EvaluationFailedError reports that a judge produced no usable verdicts
// for a record after retries. Contained at the record boundary.
type EvaluationFailedError struct {
	RecordID string
	Err      error
}

func (e *EvaluationFailedError) Error() string {
	return fmt.Sprintf("evaluating plan for %s: %v", e.RecordID, e.Err)
}

func (e *EvaluationFailedError) Unwrap() error { return e.Err }

// TransientAPIError reports a provider failure worth retrying: rate
// limits, gateway errors, overload, timeouts. Status is the HTTP status
// when one exists, 0 for transport-level failures.
type TransientAPIError struct {
	Status int
	Err    error
}

func (e *TransientAPIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transient api error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transient api error: %v", e.Err)
}

func (e *TransientAPIError) Unwrap() error { return e.Err }

// IsTransient reports whether err is, or wraps, a TransientAPIError.
func IsTransient(err error) bool {
	var t *TransientAPIError
	return errors.As(err, &t)
}

// SandboxProtocolError reports an agent episode that violated the
// submission contract: missing scaffold entries, added entries, or edits
// to a protected key. Fatal to that episode only.
type SandboxProtocolError struct {
	Reason string
}

func (e *SandboxProtocolError) Error() string {
	return fmt.Sprintf("sandbox protocol violation: %s", e.Reason)
}

// ErrorClass returns the taxonomy name for a per-record error, for the
// manifest and the final report. The most specific cause wins: a
// malformed-output or sandbox-protocol cause shows through its stage
// wrapper, while an exhausted transient failure reports as the stage
// failure that promoted it.
func ErrorClass(err error) string {
	var (
		malformed  *MalformedOutputError
		generation *GenerationFailedError
		evaluation *EvaluationFailedError
		transient  *TransientAPIError
		sandbox    *SandboxProtocolError
	)
	switch {
	case errors.As(err, &malformed):
		return "malformed_output"
	case errors.As(err, &sandbox):
		return "sandbox_protocol"
	case errors.As(err, &generation):
		return "generation_failed"
	case errors.As(err, &evaluation):
		return "evaluation_failed"
	case errors.As(err, &transient):
		return "transient_api"
	case err != nil:
		return "error"
	default:
		return ""
	}
}
