// Package testutil builds synthetic upstream pages for tests.
package testutil

import (
	"fmt"
	"html"
	"strings"
)

// Field is one label/value pair rendered on a synthetic page
type Field struct {
	Label string
	Value string
}

// ResultPage renders a details page in the upstream layout:
// each field is a <div> holding a <span> caption and a <p> value.
// The page is padded past the block detector's minimum length.
func ResultPage(fields ...Field) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head><title>RC Search</title></head>\n<body>\n<div class=\"rc-details\">\n")
	for _, f := range fields {
		fmt.Fprintf(&b, "  <div class=\"hrc-details-card\"><span>%s</span><p>%s</p></div>\n",
			html.EscapeString(f.Label), html.EscapeString(f.Value))
	}
	b.WriteString("</div>\n")
	b.WriteString(Padding(6000))
	b.WriteString("\n</body>\n</html>")
	return b.String()
}

// StandardPage renders a page carrying the common fields for plate
func StandardPage(plate string) string {
	return ResultPage(
		Field{"Registration Number", plate},
		Field{"Owner Name", "Jane Doe"},
		Field{"Father's Name", "John Doe"},
		Field{"Model Name", "SWIFT VXI"},
		Field{"Fuel Type", "PETROL"},
		Field{"Insurance Upto", "12-Jan-2027"},
	)
}

// ChallengePage renders a long anti-bot interstitial
func ChallengePage() string {
	return "<html><head><title>Just a moment...</title></head><body>" +
		"<div id=\"cf-wrapper\">Checking your browser before accessing the site.</div>" +
		Padding(6000) + "</body></html>"
}

// Padding returns an HTML comment of n characters
func Padding(n int) string {
	if n < 7 {
		n = 7
	}
	return "<!--" + strings.Repeat("x", n-7) + "-->"
}
