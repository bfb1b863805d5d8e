package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrityError(t *testing.T) {
	t.Run("message includes entity and detail", func(t *testing.T) {
		err := NewIntegrityError("tournament", "must reference at least one grading")
		assert.Equal(t,
			"integrity error for tournament: must reference at least one grading",
			err.Error())
	})

	t.Run("is extractable through wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("persist batch: %w", NewIntegrityError("tournament", "duplicate user"))

		var integrityErr *IntegrityError
		require.ErrorAs(t, wrapped, &integrityErr)
		assert.Equal(t, "tournament", integrityErr.Entity)
	})
}

func TestValidationError(t *testing.T) {
	t.Run("single message", func(t *testing.T) {
		err := NewValidationError("gradingBatch")
		err.AddError("score out of range")

		assert.True(t, err.HasErrors())
		assert.Equal(t, "validation error for gradingBatch: score out of range", err.Error())
	})

	t.Run("collects multiple messages", func(t *testing.T) {
		err := NewValidationError("gradingBatch")
		err.AddError("entry 0: missing submission id")
		err.AddError("entry 2: score out of range")

		assert.Len(t, err.Errors, 2)
		assert.Contains(t, err.Error(), "entry 0")
		assert.Contains(t, err.Error(), "entry 2")
	})

	t.Run("fresh error has no messages", func(t *testing.T) {
		assert.False(t, NewValidationError("gradingBatch").HasErrors())
	})

	t.Run("formatted constructor", func(t *testing.T) {
		err := NewValidationErrorf("standings", "unknown sort field %q", "foo")
		require.Len(t, err.Errors, 1)
		assert.Contains(t, err.Error(), `unknown sort field "foo"`)
	})
}

func TestErrorTaxonomyIsDistinguishable(t *testing.T) {
	validation := error(NewValidationErrorf("gradingBatch", "bad entry"))
	integrity := error(NewIntegrityError("tournament", "duplicate user"))

	var validationErr *ValidationError
	var integrityErr *IntegrityError

	assert.True(t, errors.As(validation, &validationErr))
	assert.False(t, errors.As(validation, &integrityErr))
	assert.True(t, errors.As(integrity, &integrityErr))
	assert.False(t, errors.As(integrity, &validationErr))

	assert.False(t, errors.Is(validation, ErrEmptyScores))
	assert.False(t, errors.Is(integrity, ErrEmptyScores))
}
