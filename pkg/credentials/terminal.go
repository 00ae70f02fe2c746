package credentials

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"
)

// TerminalProvider supplies passwords and verification codes for login
// flows. Passwords come from the stored records first and only fall back to
// an interactive hidden prompt; verification codes are always interactive.
type TerminalProvider struct {
	manager *Manager
	in      io.Reader
	out     io.Writer
	reader  *bufio.Reader
}

// NewTerminalProvider creates a provider backed by the manager and the
// process terminal
func NewTerminalProvider(manager *Manager) *TerminalProvider {
	return &TerminalProvider{
		manager: manager,
		in:      os.Stdin,
		out:     os.Stderr,
	}
}

// Password returns the stored password for the username, prompting on the
// terminal when no record exists
func (p *TerminalProvider) Password(username string) (string, error) {
	if p.manager != nil {
		if record, err := p.manager.Retrieve(username); err == nil && record.Password != "" {
			return record.Password, nil
		}
	}

	fmt.Fprintf(p.out, "Password for %s: ", username)
	password, err := p.readHidden()
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", ErrCredentialsNotFound
	}
	return password, nil
}

// VerificationCode prompts for a verification code and blocks until a line
// of input arrives
func (p *TerminalProvider) VerificationCode(prompt string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", prompt)

	line, err := p.lineReader().ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read verification code: %w", err)
	}

	return strings.TrimSpace(line), nil
}

// lineReader returns the shared buffered reader over stdin so consecutive
// prompts do not lose buffered input.
func (p *TerminalProvider) lineReader() *bufio.Reader {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.in)
	}
	return p.reader
}

// readHidden reads a password without echoing when stdin is a terminal
func (p *TerminalProvider) readHidden() (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		data, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}

	line, err := p.lineReader().ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
