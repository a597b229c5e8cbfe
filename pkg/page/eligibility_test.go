package page

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bft-labs/recship/internal/domain"
)

func TestEligible(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com", true},
		{"http://localhost:8080/login", true},
		{"https://httpbin.org/forms/post?x=1#frag", true},
		{"chrome://settings", false},
		{"chrome-extension://abc/popup.html", false},
		{"moz-extension://abc/popup.html", false},
		{"edge://flags", false},
		{"about:blank", false},
		{"file:///tmp/page.html", false},
		{"data:text/html,<p>x</p>", false},
		{"javascript:alert(1)", false},
		{"https://chrome.google.com/webstore/detail/x", false},
		{"https://microsoftedge.microsoft.com/addons/detail/x", false},
		{"ftp://example.com/file", false},
		{"ws://localhost:3004", false},
		{"HTTPS://example.com", true},
		{"", false},
		{"://bad", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, Eligible(tt.url))
		})
	}
}

func TestCheck_WrapsSentinel(t *testing.T) {
	err := Check("about:blank")
	assert.True(t, errors.Is(err, domain.ErrPageIneligible))
	assert.NoError(t, Check("https://example.com"))
}

func TestRestricted_ReturnsCopy(t *testing.T) {
	r := Restricted()
	r[0] = "mutated"
	assert.False(t, Eligible("chrome://settings"))
}
