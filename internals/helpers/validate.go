package helper

import "github.com/go-playground/validator/v10"

// Shared validator instance; validator.Validate is concurrency-safe.
var validate = validator.New()

func Validate(s interface{}) error {
	return validate.Struct(s)
}
