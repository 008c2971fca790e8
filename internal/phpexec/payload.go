package phpexec

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Mandorlo/wordpress-mcp/internal/shellq"
)

// Hard caps bounding the remote command-line length. Payloads exceeding them
// are rejected before any remote contact.
const (
	MaxArgs      = 50
	MaxArgsBytes = 32768
)

// remoteTempName returns a collision-resistant file name for the payload,
// combining a timestamp with a random suffix.
func remoteTempName() string {
	return fmt.Sprintf(".wp-mcp-%d-%s.php", time.Now().UnixNano(), uuid.NewString()[:8])
}

// newDelimiter returns a heredoc delimiter guaranteed not to occur in code.
// Randomizing it per call removes the framing corruption a fixed literal
// token would allow.
func newDelimiter(code string) string {
	for {
		d := "WP_MCP_EOF_" + strings.ToUpper(uuid.NewString()[:8])
		if !strings.Contains(code, d) {
			return d
		}
	}
}

// BuildRemoteCommand assembles the composite command that materializes and
// runs an ad-hoc payload on the server:
//
//	cd <root>
//	write <?php + code into tmpName via a quoted heredoc
//	<evalCommand> tmpName <escapedArgs...>
//	capture the exit status, remove tmpName unconditionally,
//	exit with the captured status
//
// It is a pure function of its inputs; the caller supplies the randomized
// heredoc delimiter and already-escaped arguments.
func BuildRemoteCommand(rootPath, code, tmpName, delim, evalCommand string, escapedArgs []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "cd %s && cat > %s <<'%s'\n", shellq.Quote(rootPath), shellq.Quote(tmpName), delim)
	b.WriteString("<?php\n")
	b.WriteString(code)
	if !strings.HasSuffix(code, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(delim)
	b.WriteByte('\n')

	b.WriteString(evalCommand)
	b.WriteByte(' ')
	b.WriteString(shellq.Quote(tmpName))
	for _, a := range escapedArgs {
		b.WriteByte(' ')
		b.WriteString(a)
	}
	b.WriteByte('\n')

	b.WriteString("wp_mcp_status=$?\n")
	fmt.Fprintf(&b, "rm -f %s\n", shellq.Quote(tmpName))
	b.WriteString("exit $wp_mcp_status")

	return b.String()
}
