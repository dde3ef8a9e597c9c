// Package relay implements spec.md §4.4 (Relay) and §4.5 (Policy):
// forwarding one inbound message to the sender's current partner, with
// URL/mention content filtering and archive side-channel copying.
package relay

import "regexp"

// URLPattern matches http(s) schemes, bare "www." prefixes, and
// Telegram's own short-link hostname, case-insensitively — spec.md
// §4.5's "regex alternation of (https?://|www.|<platform-link-prefixes>)
// followed by a host-like run."
var URLPattern = regexp.MustCompile(`(?i)(https?://|www\.|t\.me/|telegram\.me/)[^\s]+`)

// ContainsURL reports whether text carries a detectable URL.
func ContainsURL(text string) bool {
	return URLPattern.MatchString(text)
}

// ContainsMention reports whether text carries a literal '@' anywhere —
// spec.md §4.5: "true if '@' appears."
func ContainsMention(text string) bool {
	for _, r := range text {
		if r == '@' {
			return true
		}
	}
	return false
}
