package textproc

import "testing"

func TestClean(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"url stripped", "CPI release https://example.com/report now", "CPI release  now"},
		{"www stripped", "see www.example.com for details", "see  for details"},
		{"currency sign removed", "Gold hits $2000 high", "Gold hits 2000 high"},
		{"trailing ellipsis removed", "Markets are falling...", "Markets are falling"},
		{"unicode ellipsis removed", "Markets are falling……", "Markets are falling"},
		{"whitespace trimmed", "  hello world  ", "hello world"},
		{"html reduced to text", "<b>FED</b> holds <a href=\"https://x.y\">rates</a>", "FED holds rates"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Clean(tc.in); got != tc.want {
				t.Fatalf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestIsMeaningful(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want bool
	}{
		{"empty", "", false},
		{"too short", "short txt", false},
		{"single token", "abcdefghijklmnop", false},
		{"link only", "https://example.com/very/long/path", false},
		{"symbols only", "🚨🚨🚨 $$$ !!!", false},
		{"two word phrase", "inflation decelerating", true},
		{"arabic phrase", "الأسواق العالمية ترتفع اليوم", true},
		{"plain sentence", "Treasury yields climbed after the auction", true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsMeaningful(tc.in); got != tc.want {
				t.Fatalf("IsMeaningful(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
