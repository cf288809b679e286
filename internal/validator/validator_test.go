package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegister() Register {
	return Register{
		FirstName:       "Alice",
		LastName:        "Liddell",
		Email:           "alice@x.com",
		Username:        "alice",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}
}

func TestValidateRegister(t *testing.T) {
	require.NoError(t, ValidateRegister(validRegister()))

	cases := map[string]func(r *Register){
		"empty first name":  func(r *Register) { r.FirstName = "  " },
		"long last name":    func(r *Register) { r.LastName = strings.Repeat("a", 101) },
		"bad email":         func(r *Register) { r.Email = "alice" },
		"display email":     func(r *Register) { r.Email = "Alice <alice@x.com>" },
		"email without dot": func(r *Register) { r.Email = "alice@localhost" },
		"long username":     func(r *Register) { r.Username = strings.Repeat("u", 21) },
		"username spaces":   func(r *Register) { r.Username = "al ice" },
		"short password":    func(r *Register) { r.Password, r.ConfirmPassword = "12345", "12345" },
		"mismatch":          func(r *Register) { r.ConfirmPassword = "secret2" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := validRegister()
			mutate(&r)

			err := ValidateRegister(r)
			var ve *Error
			require.ErrorAs(t, err, &ve)
			assert.NotEmpty(t, ve.Message)
		})
	}
}

func TestValidateLogin(t *testing.T) {
	assert.NoError(t, ValidateLogin("alice@x.com", "", "pw"))
	assert.NoError(t, ValidateLogin("", "alice", "pw"))
	assert.Error(t, ValidateLogin("", " ", "pw"))
	assert.Error(t, ValidateLogin("alice", "", ""))
}

func TestValidateUserFields_PartialSkipsNil(t *testing.T) {
	name := "Bob"
	assert.NoError(t, ValidateUserFields(UserFields{FirstName: &name}))

	bad := "not-an-email"
	err := ValidateUserFields(UserFields{FirstName: &name, Email: &bad})
	assert.EqualError(t, err, "email is invalid")
}

func TestValidateTask(t *testing.T) {
	title := "Login page"
	effort := 5
	require.NoError(t, ValidateTask(WorkItemFields{Title: &title, Effort: &effort}))

	zero := 0
	assert.Error(t, ValidateTask(WorkItemFields{Effort: &zero}))

	tooMuch := 101
	assert.Error(t, ValidateTask(WorkItemFields{Effort: &tooMuch}))

	notes := strings.Repeat("n", 501)
	assert.Error(t, ValidateTask(WorkItemFields{Notes: &notes}))

	empty := ""
	assert.Error(t, ValidateTask(WorkItemFields{Title: &empty}))
}

func TestValidateEpic(t *testing.T) {
	desc := strings.Repeat("d", 1000)
	assert.NoError(t, ValidateEpic(WorkItemFields{Description: &desc}))

	desc += "d"
	assert.Error(t, ValidateEpic(WorkItemFields{Description: &desc}))
}
