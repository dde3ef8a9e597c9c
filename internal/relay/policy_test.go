package relay

import "testing"

func TestContainsURL(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"hello there", false},
		{"visit https://example.com", true},
		{"visit HTTP://EXAMPLE.COM", true},
		{"check www.example.com", true},
		{"join t.me/somechannel", true},
		{"no links here, just @mentions", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ContainsURL(tc.text); got != tc.want {
			t.Errorf("ContainsURL(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestContainsMention(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"hello there", false},
		{"@someone", true},
		{"email me at a@b.com", true},
		{"", false},
	}
	for _, tc := range cases {
		if got := ContainsMention(tc.text); got != tc.want {
			t.Errorf("ContainsMention(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}
