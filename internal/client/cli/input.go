package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

func (a *App) readLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := a.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads a line without echoing it back to the terminal.
func (a *App) readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (a *App) readFloat(prompt string) (float64, error) {
	s, err := a.readLine(prompt)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(s, 64)
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
