package database

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		class     ErrorClass
		retryable bool
	}{
		{"nil", nil, ErrorClassPermanent, false},
		{"serialization", &pq.Error{Code: "40001"}, ErrorClassSerialization, true},
		{"deadlock", &pq.Error{Code: "40P01"}, ErrorClassDeadlock, true},
		{"lock not available", &pq.Error{Code: "55P03"}, ErrorClassTransient, true},
		{"unique", &pq.Error{Code: "23505"}, ErrorClassPermanent, false},
		{"check", &pq.Error{Code: "23514"}, ErrorClassPermanent, false},
		{"wrapped deadlock", fmt.Errorf("decrement stock: %w", &pq.Error{Code: "40P01"}), ErrorClassDeadlock, true},
		{"optimistic lock", fmt.Errorf("save cart: %w", ErrOptimisticLockFailed), ErrorClassConflict, true},
		{"no rows", sql.ErrNoRows, ErrorClassPermanent, false},
		{"plain", errors.New("boom"), ErrorClassPermanent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.class, ClassifyError(tt.err))
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestConstraintHelpers(t *testing.T) {
	fk := fmt.Errorf("delete product: %w", &pq.Error{Code: "23503"})
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsUniqueViolation(fk))

	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, IsCheckViolation(&pq.Error{Code: "23514"}))
	assert.False(t, IsCheckViolation(errors.New("other")))
}
