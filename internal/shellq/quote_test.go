package shellq

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "''"},
		{"safe passthrough", "abc-123_./@:,%+=", "abc-123_./@:,%+="},
		{"space", "a b", "'a b'"},
		{"single quote", "it's a test", `'it'\''s a test'`},
		{"dollar", "$HOME", "'$HOME'"},
		{"semicolon", "a;b", "'a;b'"},
		{"backtick", "`id`", "'`id`'"},
		{"newline", "a\nb", "'a\nb'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Quote(tt.input))
		})
	}
}

// TestQuoteRoundTrip feeds quoted strings back through a real POSIX shell
// and checks they survive unchanged.
func TestQuoteRoundTrip(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no sh available")
	}

	inputs := []string{
		"it's a test",
		"plain",
		"two  spaces",
		"$(dangerous); rm -rf /",
		`back\slash`,
		"quote\"inside",
	}

	for _, in := range inputs {
		out, err := exec.Command("sh", "-c", "printf %s "+Quote(in)).Output()
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, in, string(out), "round trip of %q", in)
	}
}

func TestQuoteAll(t *testing.T) {
	assert.Equal(t, []string{"a", "'b c'", "''"}, QuoteAll([]string{"a", "b c", ""}))
	assert.Empty(t, QuoteAll(nil))
}
