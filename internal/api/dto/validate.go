package dto

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// Validator is implemented by request payloads.
type Validator interface {
	Validate() error
}
