package telegram

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUndeliverable(t *testing.T) {
	cases := []struct {
		err  string
		want bool
	}{
		{"telegram: Forbidden: bot was blocked by the user (403)", true},
		{"telegram: Bad Request: chat not found (400)", true},
		{"telegram: Forbidden: user is deactivated (403)", true},
		{"telegram: Forbidden: bot can't initiate conversation with a user (403)", true},
		{"telegram: Too Many Requests: retry after 5 (429)", false},
		{"context deadline exceeded", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsUndeliverable(errors.New(tc.err)), tc.err)
	}
	assert.False(t, IsUndeliverable(nil))
	assert.False(t, IsBlockedByUser(errors.New("telegram: Bad Request: chat not found (400)")))
}
