package phpexec

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
)

// phpProbe caches the local php binary lookup for the process lifetime.
// Racing initializations are benign: the lookup is idempotent.
var phpProbe struct {
	once sync.Once
	path string
}

func phpBinary() string {
	phpProbe.once.Do(func() {
		if p, err := exec.LookPath("php"); err == nil {
			phpProbe.path = p
		}
	})
	return phpProbe.path
}

// lintErrRe matches php -l diagnostics, e.g.
//
//	PHP Parse error:  syntax error, unexpected token ";" in /tmp/x/payload.php on line 3
var lintErrRe = regexp.MustCompile(`(?m)error:\s*(.+?)\s+in\s+\S+\s+on line\s+(\d+)`)

// CheckSyntax lints code with the local php interpreter, when one is
// installed. The code is written to a private temporary file wrapped with an
// opening tag; the file and its directory are removed on every exit path.
// Without a local interpreter the check is skipped: it is a best-effort
// client-side gate, not a guarantee.
func CheckSyntax(code string) error {
	bin := phpBinary()
	if bin == "" {
		return nil
	}

	dir, err := os.MkdirTemp("", "wp-mcp-lint-")
	if err != nil {
		// cannot stage the check; treat the code as provisionally valid
		return nil
	}
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "payload.php")
	if err := os.WriteFile(file, []byte("<?php\n"+code), 0o600); err != nil {
		return nil
	}

	out, err := exec.Command(bin, "-l", file).CombinedOutput()
	if err == nil {
		return nil
	}
	return &ValidationError{Msg: "PHP syntax error: " + parseLintOutput(string(out))}
}

// parseLintOutput normalizes a php -l diagnostic to "<message> on line <n>",
// adjusting the line number by one for the injected opening-tag line.
func parseLintOutput(out string) string {
	m := lintErrRe.FindStringSubmatch(out)
	if m == nil {
		return "syntax check failed"
	}
	line, err := strconv.Atoi(m[2])
	if err != nil {
		return m[1]
	}
	return fmt.Sprintf("%s on line %d", m[1], line-1)
}
