// Package prompt reads interactive input for the command line tools.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Reader reads prompted lines from one input. It keeps a single buffer so
// consecutive prompts over a pipe do not lose input.
type Reader struct {
	in      io.Reader
	out     io.Writer
	scanner *bufio.Scanner
}

func New(in io.Reader, out io.Writer) *Reader {
	return &Reader{in: in, out: out, scanner: bufio.NewScanner(in)}
}

func (r *Reader) terminal() (int, bool) {
	f, ok := r.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	return int(f.Fd()), true
}

func (r *Reader) line() (string, error) {
	if r.scanner.Scan() {
		return strings.TrimRight(r.scanner.Text(), "\r"), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Line prints label and reads one line.
func (r *Reader) Line(label string) (string, error) {
	fmt.Fprint(r.out, label)
	s, err := r.line()
	return strings.TrimSpace(s), err
}

// Password prints label and reads a line without echo when the input is a
// terminal.
func (r *Reader) Password(label string) (string, error) {
	fmt.Fprint(r.out, label)
	defer fmt.Fprintln(r.out)
	if fd, ok := r.terminal(); ok {
		b, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return r.line()
}
