package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_CollectsAllFailures(t *testing.T) {
	err := New().
		Required("company", "  ").
		Email("email", "not-an-email").
		Range("fit", 120, 0, 100).
		OneOf("status", "ghosted", "saved", "applied").
		MinLen("password", "abc", 6).
		Custom("confirm", true, "passwords do not match").
		Err()

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))

	var verr *Error
	require.ErrorAs(t, err, &verr)
	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.Equal(t, []string{"company", "email", "fit", "status", "password", "confirm"}, fields)
	assert.Contains(t, err.Error(), "company: is required")
}

func TestValidator_PassesValidInput(t *testing.T) {
	v := New().
		Required("company", "Acme").
		Email("email", "ada@example.com").
		Range("fit", 0, 0, 100).
		OneOf("status", "saved", "saved", "applied").
		MaxLen("title", "SRE", 10)

	assert.False(t, v.HasErrors())
	assert.NoError(t, v.Err())
}

func TestEmail_RejectsDisplayNameForm(t *testing.T) {
	err := New().Email("email", "Ada <ada@example.com>").Err()
	assert.ErrorIs(t, err, ErrInvalid)
}
