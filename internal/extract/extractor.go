// Package extract reads labelled values out of the registration details page.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/law-makers/rclookup/pkg/models"
)

// LabelSelector selects the caption elements of the details page
const LabelSelector = "span"

// ValueSelector selects the value element under a caption's parent
const ValueSelector = "p"

var innerWhitespace = regexp.MustCompile(`\s+`)

var quoteReplacer = strings.NewReplacer("’", "'", "‘", "'", "`", "'")

// NormalizeText collapses whitespace and straightens quotes, then trims
func NormalizeText(s string) string {
	s = quoteReplacer.Replace(s)
	s = innerWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Matches reports whether a label's text selects this field
func (f FieldSpec) Matches(labelText string) bool {
	got := strings.ToLower(NormalizeText(labelText))
	want := strings.ToLower(NormalizeText(f.Label))
	if f.Match == MatchContains {
		return strings.Contains(got, want)
	}
	return got == want
}

// ExtractHTML parses body and extracts every field
func ExtractHTML(body string, specs []FieldSpec) (models.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Empty(specs), err
	}
	return Extract(doc, specs), nil
}

// Extract maps each spec to a value. Fields are independent: a missing label,
// missing value element or blank value yields models.NotFound for that key only.
// The returned record always has exactly one entry per spec.
func Extract(doc *goquery.Document, specs []FieldSpec) models.Record {
	record := Empty(specs)
	if doc == nil {
		return record
	}

	labels := doc.Find(LabelSelector)
	for _, spec := range specs {
		if v, ok := valueFor(labels, spec); ok {
			record[spec.Key] = v
		}
	}

	return record
}

// Empty returns a record with every key set to the sentinel
func Empty(specs []FieldSpec) models.Record {
	record := make(models.Record, len(specs))
	for _, s := range specs {
		record[s.Key] = models.NotFound
	}
	return record
}

// valueFor finds the first label matching spec and reads the value next to it
func valueFor(labels *goquery.Selection, spec FieldSpec) (string, bool) {
	label := labels.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return spec.Matches(s.Text())
	}).First()
	if label.Length() == 0 {
		return "", false
	}

	value := label.Parent().Find(ValueSelector).First()
	if value.Length() == 0 {
		return "", false
	}

	text := NormalizeText(value.Text())
	if text == "" {
		return "", false
	}
	return text, true
}
