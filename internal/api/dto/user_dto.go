package dto

import "strings"

// RegisterInput is the registration form. Length bounds follow the users table columns.
type RegisterInput struct {
	Email    string `form:"email" validate:"notblank,max=100"`
	Name     string `form:"name" validate:"notblank,max=100"`
	Password string `form:"password" validate:"notblank,eqfield=Confirm"`
	Confirm  string `form:"confirm" validate:"notblank"`
}

// Normalize trims surrounding whitespace from identity fields. Passwords are kept verbatim.
func (in *RegisterInput) Normalize() {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
}

// LoginInput is the login form.
type LoginInput struct {
	Email    string `form:"email" validate:"notblank,max=100"`
	Password string `form:"password" validate:"notblank"`
}

func (in *LoginInput) Normalize() {
	in.Email = strings.TrimSpace(in.Email)
}
