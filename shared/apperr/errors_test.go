package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchWithErrorsIs(t *testing.T) {
	err := Conflict("assign bed", "bed %d already occupied", 1)

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, ErrConflict, KindOf(err))
	assert.Contains(t, err.Error(), "bed 1 already occupied")
	assert.Contains(t, err.Error(), "assign bed")
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("check in: %w", NotFound("get room", "room", "r1"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, ErrNotFound, KindOf(err))
}

func TestTransient(t *testing.T) {
	assert.Nil(t, Transient("get", nil))

	cause := errors.New("connection reset")
	err := Transient("get", cause)
	assert.True(t, errors.Is(err, ErrTransient))
	assert.True(t, errors.Is(err, cause))
	assert.True(t, Retryable(err))

	// already classified errors keep their kind
	nf := NotFound("get", "room", "r1")
	assert.Same(t, nf, Transient("get", nf))
	assert.False(t, Retryable(nf))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Nil(t, KindOf(errors.New("boom")))
}
