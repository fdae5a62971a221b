package errorcodes

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "24", Err24.CodeOnly())
	assert.Equal(t, "42: DES or RSA failure", Err42.Error())

	wrapped := fmt.Errorf("encrypt: %w", Err15)
	var se ServiceError
	assert.True(t, errors.As(wrapped, &se))
	assert.Equal(t, "15", se.CodeOnly())
	assert.ErrorIs(t, wrapped, Err15)
}
