package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaxonomyMatchesThroughWrapping(t *testing.T) {
	sentinel := errors.New("invalid_transition")

	validation := fmt.Errorf("create order: %w", Validation("items", "must not be empty"))
	notFound := fmt.Errorf("lookup: %w", NotFound("order", "42"))
	conflict := fmt.Errorf("cancel: %w", Conflict("order cannot be cancelled", sentinel))
	persistence := fmt.Errorf("insert: %w", &PersistenceError{Message: "insert failed", Code: "08006"})

	assert.True(t, IsValidation(validation))
	assert.False(t, IsValidation(notFound))
	assert.True(t, IsNotFound(notFound))
	assert.True(t, IsConflict(conflict))
	assert.True(t, errors.Is(conflict, sentinel))
	assert.True(t, IsPersistence(persistence))
	assert.False(t, IsConflict(persistence))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "items: must not be empty", Validation("items", "must not be empty").Error())
	assert.Equal(t, "order 42 not found", NotFound("order", "42").Error())
	assert.Equal(t, "account not found", NotFound("account", "").Error())
	assert.Equal(t, "insert failed (code 23505)", (&PersistenceError{Message: "insert failed", Code: "23505"}).Error())
	assert.Equal(t, "propagation tables: boom", (&PropagationError{Concern: "tables", Err: errors.New("boom")}).Error())
}
