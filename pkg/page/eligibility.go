// Package page decides whether a document may be recorded.
//
// The recorder runtime and the controller surface both call Eligible, so
// the two sides can never disagree about a page.
package page

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bft-labs/recship/internal/domain"
)

// restricted lists URL fragments of pages that never get listeners:
// internal browser pages, extension pages, local file/data/script URLs
// and the extension marketplaces.
var restricted = []string{
	"chrome://",
	"chrome-extension://",
	"moz-extension://",
	"edge://",
	"about:",
	"file://",
	"data:",
	"javascript:",
	"chrome.google.com/webstore",
	"microsoftedge.microsoft.com/addons",
}

// Eligible reports whether rawURL can be recorded.
func Eligible(rawURL string) bool {
	return Check(rawURL) == nil
}

// Check is Eligible with a reason. The returned error wraps
// domain.ErrPageIneligible.
func Check(rawURL string) error {
	for _, r := range restricted {
		if strings.Contains(rawURL, r) {
			return fmt.Errorf("%w: restricted location %q", domain.ErrPageIneligible, r)
		}
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPageIneligible, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", domain.ErrPageIneligible, u.Scheme)
	}
	return nil
}

// Restricted returns a copy of the restricted URL fragments.
func Restricted() []string {
	out := make([]string, len(restricted))
	copy(out, restricted)
	return out
}
