package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	relayerrors "chat-relay/errors"
)

func TestValidateDisplayName_AcceptsPlainNames(t *testing.T) {
	req := require.New(t)

	for _, name := range []string{"Alice", "bob42", "Zoé", "a"} {
		req.NoError(ValidateDisplayName(name), "name: %s", name)
	}
}

func TestValidateDisplayName_RejectsUnusableNames(t *testing.T) {
	req := require.New(t)

	cases := []string{
		"",
		strings.Repeat("x", 33),
		"two words",
		"tab\tname",
		"pipe|name",
		`back\slash`,
	}
	for _, name := range cases {
		req.ErrorIs(ValidateDisplayName(name), relayerrors.ErrInvalidName, "name: %q", name)
	}
}
