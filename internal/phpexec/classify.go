// Package phpexec builds and runs ad-hoc PHP payloads on managed servers.
//
// A payload (inline code or a local .php file) is validated locally, written
// into a temporary file under the server's WordPress root through a
// heredoc-framed composite command, executed with `wp eval-file`, and removed
// again regardless of the script's outcome.
package phpexec

import (
	"os"
	"strings"
)

// Source tags how a payload originated.
type Source string

const (
	// SourceFile marks a payload read from a local file.
	SourceFile Source = "file"

	// SourceCode marks an inline code payload.
	SourceCode Source = "code"
)

// Mode selects how the input string is interpreted.
type Mode string

const (
	// ModeAuto classifies the input as a path or inline code.
	ModeAuto Mode = "auto"

	// ModeFile forces the input to be treated as a local file path.
	ModeFile Mode = "file"

	// ModeCode forces the input to be treated as inline code.
	ModeCode Mode = "code"
)

// ValidationError reports a payload rejected before any remote contact:
// argument caps exceeded, missing local file, or a failed local syntax check.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// LooksLikePath reports whether input resembles a filesystem path rather
// than inline code: absolute, ./ or ../ relative, Windows drive-letter
// prefixed, or ending in the .php extension.
func LooksLikePath(input string) bool {
	if strings.HasPrefix(input, "/") ||
		strings.HasPrefix(input, "./") ||
		strings.HasPrefix(input, "../") {
		return true
	}
	if len(input) >= 3 && isDriveLetter(input[0]) && input[1] == ':' &&
		(input[2] == '\\' || input[2] == '/') {
		return true
	}
	return strings.HasSuffix(strings.ToLower(input), ".php")
}

func isDriveLetter(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// StripTags removes a single leading PHP opening tag and a single trailing
// closing tag, if present. The payload is re-wrapped with an opening tag when
// it is written to the server, so both inline code and file contents may be
// supplied with or without tags.
func StripTags(code string) string {
	c := strings.TrimSpace(code)
	if strings.HasPrefix(c, "<?php") {
		c = c[len("<?php"):]
	} else if strings.HasPrefix(c, "<?") {
		c = c[len("<?"):]
	}
	c = strings.TrimSuffix(strings.TrimSpace(c), "?>")
	return strings.TrimSpace(c)
}

// resolveSource turns the input string into payload code according to mode.
func resolveSource(input string, mode Mode) (string, Source, error) {
	switch mode {
	case ModeFile:
		return readPayloadFile(input)
	case ModeCode:
		return StripTags(input), SourceCode, nil
	}

	// auto: a path-looking input that actually exists is a file
	if LooksLikePath(input) {
		if _, err := os.Stat(input); err == nil {
			return readPayloadFile(input)
		}
	}
	return StripTags(input), SourceCode, nil
}

func readPayloadFile(path string) (string, Source, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", SourceFile, &ValidationError{Msg: "file not found: " + path}
		}
		return "", SourceFile, err
	}
	return StripTags(string(b)), SourceFile, nil
}
