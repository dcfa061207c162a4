package ui

import "testing"

func TestPaint(t *testing.T) {
	NoColor = false
	if got := Success("ok"); got != ColorGreen+"ok"+ColorReset {
		t.Errorf("Expected green text, got %q", got)
	}

	NoColor = true
	defer func() { NoColor = false }()
	if got := Error("bad"); got != "bad" {
		t.Errorf("Expected plain text with NoColor, got %q", got)
	}
}
