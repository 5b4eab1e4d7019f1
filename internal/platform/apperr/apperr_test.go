// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tankobon/internal/platform/apperr"
)

/*
TestAppError_IsMatchesByCode checks that errors.Is compares codes, not pointers.
*/
func TestAppError_IsMatchesByCode(t *testing.T) {
	sentinel := apperr.Conflict("Resource already exists")
	cause := errors.New("duplicate key value violates unique constraint")

	wrapped := fmt.Errorf("create volume: %w", sentinel.WithCause(cause))

	assert.ErrorIs(t, wrapped, sentinel)
	assert.ErrorIs(t, wrapped, cause)
	assert.NotErrorIs(t, wrapped, apperr.NotFound("Volume"))
}

/*
TestAppError_WithCauseDoesNotMutateSentinel ensures sentinels stay cause-free.
*/
func TestAppError_WithCauseDoesNotMutateSentinel(t *testing.T) {
	sentinel := apperr.NotFound("Series")
	_ = sentinel.WithCause(errors.New("boom"))

	assert.Nil(t, sentinel.Cause)
}

/*
TestAppError_As extracts the AppError and its HTTP status from a wrapped chain.
*/
func TestAppError_As(t *testing.T) {
	err := fmt.Errorf("handler: %w", apperr.ValidationError("Validation failed",
		apperr.FieldError{Field: "status", Message: "Must be one of: ongoing"}))

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, http.StatusBadRequest, ae.HTTPStatus)
	assert.Equal(t, "status", ae.Details[0].Field)
	assert.True(t, apperr.IsAppError(err))
	assert.Nil(t, apperr.As(errors.New("plain")))
}
