package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name    string `form:"name" validate:"required,max=5"`
	Email   string `form:"email" validate:"omitempty,email"`
	Website string `form:"website" validate:"omitempty,url"`
}

func TestValidate(t *testing.T) {
	assert.Nil(t, Validate(sample{Name: "ok"}))

	errs := Validate(sample{Name: "", Email: "nope", Website: "not a url"})
	assert.Equal(t, "This field is required.", errs["name"])
	assert.Equal(t, "Enter a valid email address.", errs["email"])
	assert.Equal(t, "Enter a valid URL.", errs["website"])

	errs = Validate(sample{Name: "toolong"})
	assert.Contains(t, errs["name"], "at most 5")
}

func TestVar(t *testing.T) {
	assert.True(t, Var("a@b.co", "email"))
	assert.False(t, Var("a@", "email"))
}
