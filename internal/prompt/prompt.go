// Package prompt asks the user yes/no questions on a terminal.
package prompt

//go:generate mockgen -source=prompt.go -destination=prompt_mock.go -package=prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrInvalidInput is returned when the answer is neither yes nor no.
var ErrInvalidInput = errors.New("invalid input")

// Prompter asks for confirmations.
type Prompter interface {
	// Confirm asks a yes/no question. An empty answer selects defaultValue.
	Confirm(prompt string, defaultValue bool) (bool, error)
}

// StdPrompter reads answers line by line.
type StdPrompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewStdPrompter creates a StdPrompter on stdin and stdout.
func NewStdPrompter() *StdPrompter {
	return NewPrompter(os.Stdin, os.Stdout)
}

// NewPrompter creates a StdPrompter with custom streams.
func NewPrompter(reader io.Reader, writer io.Writer) *StdPrompter {
	return &StdPrompter{
		reader: bufio.NewReader(reader),
		writer: writer,
	}
}

// Confirm implements Prompter. End of input without an answer selects the
// default.
func (p *StdPrompter) Confirm(prompt string, defaultValue bool) (bool, error) {
	hint := "y/N"
	if defaultValue {
		hint = "Y/n"
	}

	if _, err := fmt.Fprintf(p.writer, "%s [%s]: ", prompt, hint); err != nil {
		return false, errors.Wrap(err, "failed to write prompt")
	}

	input, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, errors.Wrap(err, "failed to read input")
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "":
		return defaultValue, nil
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return false, errors.Wrapf(ErrInvalidInput, "expected y/n, got %q", strings.TrimSpace(input))
	}
}
