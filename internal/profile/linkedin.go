package profile

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidLinkedInURL is returned when no LinkedIn id can be extracted
var ErrInvalidLinkedInURL = errors.New("invalid LinkedIn URL format, use https://linkedin.com/in/your-profile")

var linkedInPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)linkedin\.com/in/([^/?]+)`),
	regexp.MustCompile(`(?i)linkedin\.com/pub/[^/]+/[^/]+/[^/]+/([^/?]+)`),
	regexp.MustCompile(`(?i)linkedin\.com/profile/view\?id=([^&]+)`),
}

var linkedInURLPattern = regexp.MustCompile(`(?i)^https?://(www\.)?linkedin\.com/in/[\w-]+/?$`)

// ExtractLinkedInID returns the username part of a LinkedIn profile URL.
// The current /in/ form and the two legacy forms are accepted.
func ExtractLinkedInID(linkedinURL string) (string, error) {
	clean := strings.TrimSuffix(strings.TrimSpace(linkedinURL), "/")

	for _, p := range linkedInPatterns {
		if m := p.FindStringSubmatch(clean); len(m) == 2 && m[1] != "" {
			return m[1], nil
		}
	}
	return "", ErrInvalidLinkedInURL
}

// IsLinkedInURL reports whether s is a canonical https://linkedin.com/in/<id> URL
func IsLinkedInURL(s string) bool {
	return linkedInURLPattern.MatchString(strings.TrimSpace(s))
}
