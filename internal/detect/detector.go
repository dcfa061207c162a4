// Package detect classifies upstream responses as usable pages or blocks.
package detect

import (
	"net/http"
	"strings"
	"unicode/utf8"
)

// Reason names why a response was classified as blocked
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonStatus    Reason = "status"
	ReasonShortBody Reason = "short_body"
	ReasonChallenge Reason = "challenge"
	ReasonNoLabels  Reason = "no_labels"
)

// DefaultMinBodyLength is the smallest body, in characters, accepted as a real result page
const DefaultMinBodyLength = 5000

// DefaultMarkers are lowercase phrases found on anti-bot interstitials
var DefaultMarkers = []string{
	"just a moment",
	"checking your browser",
	"attention required",
	"ddos-guard",
	"cf-browser-verification",
	"enable javascript and cookies to continue",
}

// Rules configures the block heuristics
type Rules struct {
	MinBodyLength int
	Markers       []string
	// MinLabelTags, when > 0, requires at least that many <span elements in the body
	MinLabelTags int
}

// DefaultRules returns the standard heuristics
func DefaultRules() Rules {
	markers := make([]string, len(DefaultMarkers))
	copy(markers, DefaultMarkers)
	return Rules{
		MinBodyLength: DefaultMinBodyLength,
		Markers:       markers,
	}
}

// Verdict is the outcome of Classify
type Verdict struct {
	Blocked bool
	Reason  Reason
	Detail  string
}

// OK reports whether the response can be handed to extraction
func (v Verdict) OK() bool {
	return !v.Blocked
}

func blocked(r Reason, detail string) Verdict {
	return Verdict{Blocked: true, Reason: r, Detail: detail}
}

// Classify applies the rules in order: status, body length, challenge markers, label count.
// A false positive only costs a retry, so any doubt resolves to blocked.
func Classify(status int, body string, rules Rules) Verdict {
	if status != http.StatusOK {
		return blocked(ReasonStatus, http.StatusText(status))
	}

	if body == "" || utf8.RuneCountInString(body) < rules.MinBodyLength {
		return blocked(ReasonShortBody, "")
	}

	if marker := FindMarker(body, rules.Markers); marker != "" {
		return blocked(ReasonChallenge, marker)
	}

	if rules.MinLabelTags > 0 && CountTags(body, "span") < rules.MinLabelTags {
		return blocked(ReasonNoLabels, "")
	}

	return Verdict{}
}

// FindMarker returns the first marker contained in body, ignoring case
func FindMarker(body string, markers []string) string {
	lower := strings.ToLower(body)
	for _, m := range markers {
		if m == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(m)) {
			return m
		}
	}
	return ""
}

// CountTags counts opening tags with the given name, ignoring case
func CountTags(body, tag string) int {
	lower := strings.ToLower(body)
	open := "<" + strings.ToLower(tag)

	n := 0
	for i := 0; ; {
		j := strings.Index(lower[i:], open)
		if j < 0 {
			return n
		}
		end := i + j + len(open)
		// <span> and <span class=...> count, <spanner> does not
		if end < len(lower) {
			switch lower[end] {
			case '>', ' ', '\t', '\n', '\r', '/':
				n++
			}
		}
		i = end
	}
}
