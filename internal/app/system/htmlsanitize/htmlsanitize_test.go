package htmlsanitize_test

import (
	"testing"

	"github.com/hearthsocial/hearth/internal/app/system/htmlsanitize"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Hello, World!", "Hello, World!"},
		{"trims", "  hi there \n", "hi there"},
		{"strips formatting", "<p><strong>Bold</strong> and <em>italic</em></p>", "Bold and italic"},
		{"drops script", "<p>Hello</p><script>alert('xss')</script>", "Hello"},
		{"drops style", "<style>body{}</style>ok", "ok"},
		{"drops handler attrs", `<button onclick="alert('xss')">Click</button>`, "Click"},
		{"keeps ampersand", "fish & chips", "fish & chips"},
		{"keeps comparison", "5 < 6", "5 < 6"},
		{"only markup", "<img src=x onerror=alert(1)>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.PlainText(tt.input); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsPlainText(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"no tags here", true},
		{"a > b", true},
		{"a < b", true},
		{"<b>bold</b>", false},
	}
	for _, tt := range tests {
		if got := htmlsanitize.IsPlainText(tt.input); got != tt.want {
			t.Errorf("IsPlainText(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
