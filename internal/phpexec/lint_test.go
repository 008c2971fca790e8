package phpexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLintOutput(t *testing.T) {
	out := "PHP Parse error:  syntax error, unexpected token \";\" in /tmp/wp-mcp-lint-1/payload.php on line 3\nErrors parsing /tmp/wp-mcp-lint-1/payload.php\n"

	// line 3 of the temp file is line 2 of the user's code (the injected
	// opening tag shifts everything by one)
	msg := parseLintOutput(out)
	assert.Equal(t, `syntax error, unexpected token ";" on line 2`, msg)
}

func TestParseLintOutputUnrecognized(t *testing.T) {
	assert.Equal(t, "syntax check failed", parseLintOutput("garbage"))
}

func TestCheckSyntaxValidCode(t *testing.T) {
	// passes whether or not a local php interpreter is installed
	assert.NoError(t, CheckSyntax("echo 'ok';"))
}

func TestCheckSyntaxInvalidCode(t *testing.T) {
	if phpBinary() == "" {
		t.Skip("no local php interpreter")
	}

	err := CheckSyntax("echo 'broken\n;;;")
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Msg, "on line")
}
