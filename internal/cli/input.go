package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// readLine reads one line of input with the trailing newline trimmed. If
// EOF occurs after some input was read, the partial line is returned.
func (c *CLI) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// getSecret prompts and reads a secret without echo when input is an
// interactive terminal. Otherwise it reads one line, so secrets can be piped.
func (c *CLI) getSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !c.stdin || !isTerminal(fd) {
		return c.readLine()
	}

	if _, err := fmt.Fprint(c.out, prompt+": "); err != nil {
		return "", err
	}
	pw, err := readPassword(fd)
	fmt.Fprintln(c.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
