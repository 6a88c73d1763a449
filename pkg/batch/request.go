package batch

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Request describes one batch of conversations to generate. It is validated
// once at coordinator entry; nothing is generated for an invalid request.
type Request struct {
	Topic         string `json:"topic" validate:"required"`
	Persona       string `json:"persona" validate:"required"`
	Conversations int    `json:"conversations" validate:"gte=1"`
	Turns         int    `json:"turns" validate:"gte=1"`
}

// ValidationError marks a malformed request. It aborts the whole batch before
// any generation starts.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid generation request: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

var validate = validator.New()

func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}
