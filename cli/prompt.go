package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// prompter reads answers line by line. Passwords are masked when the input
// is a terminal.
type prompter struct {
	sc  *bufio.Scanner
	in  io.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{sc: bufio.NewScanner(in), in: in, out: out}
}

// line prints prompt and returns the trimmed answer. ok is false at end of
// input.
func (p *prompter) line(prompt string) (string, bool) {
	fmt.Fprint(p.out, prompt)
	if !p.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.sc.Text()), true
}

func (p *prompter) id(prompt, what string) (int64, error) {
	s, ok := p.line(prompt)
	if !ok {
		return 0, io.EOF
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID: %s", what, s)
	}
	return id, nil
}

func (p *prompter) number(prompt string) (int, error) {
	s, ok := p.line(prompt)
	if !ok {
		return 0, io.EOF
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", s)
	}
	return n, nil
}

// password reads a password with masking when possible. Both paths trim
// surrounding whitespace; end of input is io.EOF.
func (p *prompter) password(prompt string) (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.out, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	s, ok := p.line(prompt)
	if !ok {
		return "", io.EOF
	}
	return s, nil
}

// promptPassword asks for a password on the command's stdin, prompting on
// stderr so JSON output on stdout stays clean.
func promptPassword(cmd *cobra.Command, prompt string) (string, error) {
	pw, err := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()).password(prompt)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "password", err)
	}
	return pw, nil
}
