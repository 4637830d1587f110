package domain

import (
	"unicode"

	"github.com/go-playground/validator/v10"

	relayerrors "chat-relay/errors"
)

var validate = validator.New()

type registration struct {
	Name string `validate:"required,min=1,max=32"`
}

// ValidateDisplayName rejects names that cannot serve as a registry key
// or appear unambiguously in a wire sender field.
func ValidateDisplayName(name string) error {
	if err := validate.Struct(registration{Name: name}); err != nil {
		return relayerrors.ErrInvalidName
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == '|' || r == '\\' {
			return relayerrors.ErrInvalidName
		}
	}
	return nil
}
