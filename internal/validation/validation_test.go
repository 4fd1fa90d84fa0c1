package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/account-portal/internal/api/dto"
)

func TestValidateRegisterInput(t *testing.T) {
	v := New()

	tests := []struct {
		name  string
		input dto.RegisterInput
		want  Errors
	}{
		{
			name:  "valid",
			input: dto.RegisterInput{Email: "a@x.com", Name: "Ann", Password: "hunter2", Confirm: "hunter2"},
			want:  nil,
		},
		{
			name:  "passwords differ",
			input: dto.RegisterInput{Email: "a@x.com", Name: "Ann", Password: "hunter2", Confirm: "hunter3"},
			want:  Errors{"password": {MsgPasswordsMatch}},
		},
		{
			name:  "empty email",
			input: dto.RegisterInput{Name: "Ann", Password: "hunter2", Confirm: "hunter2"},
			want:  Errors{"email": {MsgRequired}},
		},
		{
			name:  "blank name",
			input: dto.RegisterInput{Email: "a@x.com", Name: "   ", Password: "hunter2", Confirm: "hunter2"},
			want:  Errors{"name": {MsgRequired}},
		},
		{
			name:  "missing confirm",
			input: dto.RegisterInput{Email: "a@x.com", Name: "Ann", Password: "hunter2"},
			want:  Errors{"password": {MsgPasswordsMatch}, "confirm": {MsgRequired}},
		},
		{
			name:  "email at the column limit",
			input: dto.RegisterInput{Email: strings.Repeat("a", 94) + "@x.com", Name: "Ann", Password: "hunter2", Confirm: "hunter2"},
			want:  nil,
		},
		{
			name:  "overlong email",
			input: dto.RegisterInput{Email: strings.Repeat("a", 95) + "@x.com", Name: "Ann", Password: "hunter2", Confirm: "hunter2"},
			want:  Errors{"email": {MsgTooLong(100)}},
		},
		{
			name:  "overlong name",
			input: dto.RegisterInput{Email: "a@x.com", Name: strings.Repeat("n", 150), Password: "hunter2", Confirm: "hunter2"},
			want:  Errors{"name": {MsgTooLong(100)}},
		},
		{
			name:  "multibyte name counted in characters",
			input: dto.RegisterInput{Email: "a@x.com", Name: strings.Repeat("é", 100), Password: "hunter2", Confirm: "hunter2"},
			want:  nil,
		},
		{
			name:  "everything empty",
			input: dto.RegisterInput{},
			want: Errors{
				"email":    {MsgRequired},
				"name":     {MsgRequired},
				"password": {MsgRequired},
				"confirm":  {MsgRequired},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.input
			assert.Equal(t, tt.want, v.Validate(&in))
		})
	}
}

func TestValidateLoginInput(t *testing.T) {
	v := New()

	assert.Nil(t, v.Validate(&dto.LoginInput{Email: "a@x.com", Password: "pw"}))

	errs := v.Validate(&dto.LoginInput{Email: "a@x.com", Password: " \t"})
	assert.True(t, errs.Has("password"))
	assert.False(t, errs.Has("email"))
	assert.Equal(t, []string{MsgRequired}, errs["password"])

	errs = v.Validate(&dto.LoginInput{Email: strings.Repeat("a", 126), Password: "pw"})
	assert.Equal(t, Errors{"email": {MsgTooLong(100)}}, errs)
}

func TestMsgTooLong(t *testing.T) {
	assert.Equal(t, "Must be at most 100 characters.", MsgTooLong(100))
}

func TestValidateNonStruct(t *testing.T) {
	errs := New().Validate("not a form")
	assert.True(t, errs.Has(FormField))
}

func TestNormalizeTrimsIdentityOnly(t *testing.T) {
	in := dto.RegisterInput{Email: "  a@x.com ", Name: " Ann ", Password: " pw ", Confirm: " pw "}
	in.Normalize()

	assert.Equal(t, "a@x.com", in.Email)
	assert.Equal(t, "Ann", in.Name)
	assert.Equal(t, " pw ", in.Password)
}

func TestFromDetails(t *testing.T) {
	errs := FromDetails(map[string]any{
		"password": "Must be at most 72 bytes.",
		"email":    []string{MsgRequired, MsgTooLong(100)},
		"ignored":  42,
	})

	assert.Equal(t, Errors{
		"password": {"Must be at most 72 bytes."},
		"email":    {MsgRequired, MsgTooLong(100)},
	}, errs)
}
