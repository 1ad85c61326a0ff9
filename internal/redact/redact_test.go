package redact

import (
	"strings"
	"testing"
)

func TestScrub_Email(t *testing.T) {
	got := Scrub("contact jane.doe+test@example.co.uk for details")
	if strings.Contains(got, "jane.doe") {
		t.Errorf("Email not scrubbed: %s", got)
	}
	if !strings.Contains(got, "[EMAIL]") {
		t.Errorf("Expected [EMAIL] placeholder, got %s", got)
	}
}

func TestScrub_SSN(t *testing.T) {
	got := Scrub("my ssn is 123-45-6789 thanks")
	if strings.Contains(got, "123-45-6789") {
		t.Errorf("SSN not scrubbed: %s", got)
	}
}

func TestScrub_Phone(t *testing.T) {
	for _, phone := range []string{"(555) 123-4567", "555-123-4567", "+1 555 123 4567"} {
		got := Scrub("call me at " + phone)
		if strings.Contains(got, "4567") {
			t.Errorf("Phone %q not scrubbed: %s", phone, got)
		}
	}
}

func TestScrub_Card(t *testing.T) {
	for _, card := range []string{
		"4111 1111 1111 1111",
		"4222222222222",       // 13-digit Visa
		"3782 822463 10005",   // 15-digit Amex
		"6011-0009-9013-9424", // dashed
	} {
		got := Scrub("card: " + card)
		if !strings.Contains(got, "[CARD]") {
			t.Errorf("Card %q not scrubbed: %s", card, got)
		}
	}
}

func TestScrub_APIKey(t *testing.T) {
	got := Scrub("use sk-abc123def456ghi789jkl please")
	if strings.Contains(got, "sk-abc") {
		t.Errorf("API key not scrubbed: %s", got)
	}
}

func TestScrub_CleanTextUnchanged(t *testing.T) {
	in := "summarize the quarterly report in three bullet points"
	if got := Scrub(in); got != in {
		t.Errorf("Clean text modified: %s", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("Short string changed: %s", got)
	}
	if got := Truncate("hello world", 5); got != "hello" {
		t.Errorf("Expected 'hello', got %s", got)
	}
	if got := Truncate("héllo wörld", 6); len([]rune(got)) != 6 {
		t.Errorf("Expected 6 runes, got %d", len([]rune(got)))
	}
	if got := Truncate("x", 0); got != "" {
		t.Errorf("Expected empty string for n=0, got %s", got)
	}
}
