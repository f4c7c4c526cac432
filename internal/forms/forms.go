package forms

import (
	"github.com/go-playground/validator/v10"
)

type LoginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
	Next     string `form:"next"`
}

type SignupForm struct {
	Username        string `form:"username"         validate:"required,min=3,max=32"`
	Password        string `form:"password"         validate:"required,min=8"`
	PasswordConfirm string `form:"password_confirm" validate:"required,eqfield=Password"`
}

type ProductForm struct {
	Title       string `form:"title"       validate:"required,max=120"`
	Description string `form:"description" validate:"required"`
	Price       string `form:"price"       validate:"required"`
}

type EchoValidator struct {
	validate *validator.Validate
}

func NewEchoValidator() *EchoValidator {
	return &EchoValidator{validate: validator.New()}
}

func (v *EchoValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// Errors flattens a validator error into field -> message for re-rendering
// the submitted form.
func Errors(err error) map[string]string {
	out := map[string]string{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		out["form"] = "invalid form submission"
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = messageFor(fe)
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		return "Too short (minimum " + fe.Param() + " characters)."
	case "max":
		return "Too long (maximum " + fe.Param() + " characters)."
	case "eqfield":
		return "Passwords do not match."
	default:
		return "Invalid value."
	}
}
