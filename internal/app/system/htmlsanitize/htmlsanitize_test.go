package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/badgehub/internal/app/system/htmlsanitize"
)

func TestSanitize_StripsScripts(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "script tag removed",
			input: `<p>hello</p><script>alert("x")</script>`,
			want:  `<p>hello</p>`,
		},
		{
			name:  "event handler stripped",
			input: `<a href="https://example.com" onclick="steal()">link</a>`,
			want:  `<a href="https://example.com" rel="nofollow">link</a>`,
		},
		{
			name:  "javascript href dropped",
			input: `<a href="javascript:alert(1)">bad</a>`,
			want:  `bad`,
		},
		{
			name:  "iframe removed",
			input: `before<iframe src="https://evil.example"></iframe>after`,
			want:  `beforeafter`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitize_KeepsUGCMarkup(t *testing.T) {
	input := `<p>Built a <strong>line follower</strong> with:</p><ul><li>two motors</li><li>one sensor</li></ul><hr>`
	got := htmlsanitize.Sanitize(input)
	for _, keep := range []string{"<strong>", "<ul>", "<li>", "<hr>"} {
		if !strings.Contains(got, keep) {
			t.Errorf("sanitized output lost %s: %q", keep, got)
		}
	}
}

func TestSanitize_AllowsTableStyles(t *testing.T) {
	// The rich-text editor emits inline alignment styles on table markup.
	input := `<table><tr><td style="text-align: center">cell</td></tr></table>`
	got := htmlsanitize.Sanitize(input)
	if !strings.Contains(got, `style="text-align: center"`) {
		t.Errorf("table cell style dropped: %q", got)
	}

	// The same attribute elsewhere stays disallowed.
	got = htmlsanitize.Sanitize(`<p style="position: fixed">x</p>`)
	if strings.Contains(got, "style") {
		t.Errorf("style on non-table element kept: %q", got)
	}
}

func TestSanitize_PlainTextUnchanged(t *testing.T) {
	for _, in := range []string{"", "just words", "3 < 5 is true"} {
		got := htmlsanitize.Sanitize(in)
		if in == "3 < 5 is true" {
			// Bare < is entity-escaped, not removed.
			if !strings.Contains(got, "&lt;") {
				t.Errorf("Sanitize(%q) = %q, want entity-escaped <", in, got)
			}
			continue
		}
		if got != in {
			t.Errorf("Sanitize(%q) = %q, want unchanged", in, got)
		}
	}
}
