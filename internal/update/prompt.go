package update

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var yesAnswer = regexp.MustCompile(`(?i)^\s*y(es)?\s*$`)

// Prompt asks the operator questions on an interactive update: display
// names for new categories/tags, and the final confirmation before
// anything is written.
type Prompt struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompt creates a prompt reading answers from in and printing
// questions to out.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out}
}

// Ask prints the question and returns the operator's answer. An empty
// answer falls back to defaultAnswer; without a default, the question is
// asked again until an answer is given.
func (p *Prompt) Ask(question, defaultAnswer string) (string, error) {
	for {
		fmt.Fprint(p.out, question)

		line, err := p.in.ReadString('\n')
		answer := strings.TrimSpace(line)
		if answer == "" {
			answer = defaultAnswer
		}
		if answer != "" {
			return answer, nil
		}
		if err != nil {
			return "", fmt.Errorf("cannot read answer: %w", err)
		}
	}
}

// Confirm asks a yes/no question, defaulting to yes. Anything that is
// not an affirmative answer counts as a decline.
func (p *Prompt) Confirm(question string) (bool, error) {
	answer, err := p.Ask(question+" [Y/n] ", "y")
	if err != nil {
		return false, err
	}
	return yesAnswer.MatchString(answer), nil
}
