package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

func promptLine(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprintf(out, "%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read %s: %w", label, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptPassword reads without echo if file is a terminal, otherwise it reads a
// line from in.
func promptPassword(file io.Reader, in *bufio.Reader, out io.Writer) (string, error) {
	f, ok := file.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return promptLine(in, out, "Password")
	}
	fd := int(f.Fd())
	fmt.Fprint(out, "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(password), nil
}

// credentials asks for whatever the config left out, the password is never
// echoed when stdin is a terminal.
func credentials(c Config, in io.Reader, out io.Writer) (string, string, error) {
	reader := bufio.NewReader(in)

	username := c.Username
	if username == "" {
		var err error
		username, err = promptLine(reader, out, "Username")
		if err != nil {
			return "", "", err
		}
	}
	password := c.Password
	if password == "" {
		var err error
		password, err = promptPassword(in, reader, out)
		if err != nil {
			return "", "", err
		}
	}
	if strings.TrimSpace(username) == "" || password == "" {
		return "", "", fmt.Errorf("a username and password are required")
	}
	return strings.TrimSpace(username), password, nil
}
