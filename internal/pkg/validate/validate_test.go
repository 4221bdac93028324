package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	assert.True(t, Email("user@test.com"))
	assert.True(t, Email("first.last+tag@example.co.jp"))
	assert.False(t, Email(""))
	assert.False(t, Email("user"))
	assert.False(t, Email("user@"))
	assert.False(t, Email("@test.com"))
	assert.False(t, Email("user @test.com"))
}

func TestStruct_ReportsFailingFields(t *testing.T) {
	type body struct {
		Email string `validate:"required,email"`
	}
	err := Struct(body{Email: "nope"})
	assert.EqualError(t, err, "field 'Email' failed 'email'")
	assert.NoError(t, Struct(body{Email: "a@b.com"}))
}
