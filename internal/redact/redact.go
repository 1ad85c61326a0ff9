// Package redact masks personally identifiable information in free-form
// text before it is attached to telemetry or echoed back to a client.
package redact

import "regexp"

var patterns = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`), "[EMAIL]"},
	// Card numbers before SSN/phone so long digit runs are not split up.
	{regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`), "[CARD]"},
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[SSN]"},
	{regexp.MustCompile(`\b(?:\+?1[ .-]?)?\(?\d{3}\)?[ .-]?\d{3}[ .-]?\d{4}\b`), "[PHONE]"},
	// Provider API keys pasted into prompts.
	{regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{16,}\b`), "[API_KEY]"},
}

// Scrub replaces emails, phone numbers, SSNs, card-like digit runs, and
// API-key-shaped tokens with placeholder tags. It always runs before any
// truncation; truncation alone can split a value but never hides it.
func Scrub(s string) string {
	for _, p := range patterns {
		s = p.re.ReplaceAllString(s, p.replacement)
	}
	return s
}

// Truncate cuts s to at most n characters, rune-safe.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
