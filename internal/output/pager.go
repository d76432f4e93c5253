package output

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// defaultTermHeight is used when $LINES is unset.
const defaultTermHeight = 40

// Print writes content to stdout, through $PAGER (default less) when stdout
// is a terminal and the content is taller than the screen.
func Print(content string) error {
	if !ShouldPage(content, termHeight()) {
		_, err := fmt.Fprint(Stdout, content)
		return err
	}
	pager := os.Getenv("PAGER")
	if pager == "" {
		pager = "less"
	}
	cmd := exec.Command(pager)
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		// Pager missing or failed; fall back to plain output.
		_, err = fmt.Fprint(Stdout, content)
		return err
	}
	return nil
}

// ShouldPage reports whether content exceeds termHeight lines on a terminal.
func ShouldPage(content string, termHeight int) bool {
	if Stdout != os.Stdout || !isTerminal() {
		return false
	}
	return strings.Count(content, "\n") > termHeight
}

func termHeight() int {
	if n, err := strconv.Atoi(os.Getenv("LINES")); err == nil && n > 0 {
		return n
	}
	return defaultTermHeight
}

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
