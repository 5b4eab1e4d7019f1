// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"errors"
	"fmt"
)

// ErrDropped matches every [*DropError].
var ErrDropped = errors.New("ingest: record dropped")

// Reason classifies why a record was dropped.
type Reason string

const (
	ReasonMissingField   Reason = "missing_field"
	ReasonInvalidISBN    Reason = "invalid_isbn"
	ReasonTitleMismatch  Reason = "title_mismatch"
	ReasonMalformedTitle Reason = "malformed_title"
	ReasonDigitalEdition Reason = "digital_edition"

	// ReasonConflict means another record already holds the natural key.
	ReasonConflict Reason = "conflict"
)

// DropError is a terminal failure of one record; it is never retried.
type DropError struct {
	Reason Reason
	Kind   Kind
	Record Record
	Cause  error
}

func (e *DropError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("ingest: %s record dropped: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("ingest: %s record dropped: %s: %v", e.Kind, e.Reason, e.Cause)
}

// Is reports whether target is [ErrDropped].
func (e *DropError) Is(target error) bool {
	return target == ErrDropped
}

func (e *DropError) Unwrap() error {
	return e.Cause
}

func drop(record Record, reason Reason, cause error) *DropError {
	return &DropError{Reason: reason, Kind: record.Kind(), Record: record, Cause: cause}
}
