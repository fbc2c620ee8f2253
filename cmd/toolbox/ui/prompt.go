package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrInterrupted is returned when the user presses Ctrl+C at a prompt.
var ErrInterrupted = errors.New("interrupted")

// Prompter reads answers from the user. ReadLine returns io.EOF once input
// is exhausted.
type Prompter interface {
	ReadLine(prompt string) (string, error)
	Confirm(question string) (bool, error)
}

// NewPrompter returns a bubbletea prompt when in is a terminal and a plain
// line reader otherwise.
func NewPrompter(in *os.File, out io.Writer, styles Styles) Prompter {
	if IsTerminal(in) && IsTerminal(out) {
		return &TeaPrompter{in: in, out: out, styles: styles}
	}
	return NewLinePrompter(in, out)
}

// confirmed reports whether answer is a yes.
func confirmed(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), "y")
}

// LinePrompter reads newline-terminated answers from any reader.
type LinePrompter struct {
	mu  sync.Mutex
	r   *bufio.Reader
	out io.Writer
}

// NewLinePrompter creates a LinePrompter.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{r: bufio.NewReader(in), out: out}
}

// ReadLine prints prompt and reads one line without its line ending. A final
// line without a newline is returned before io.EOF.
func (p *LinePrompter) ReadLine(prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprint(p.out, prompt)
	line, err := p.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Confirm asks question and reports whether the answer was y or Y.
func (p *LinePrompter) Confirm(question string) (bool, error) {
	answer, err := p.ReadLine(question)
	if err != nil {
		return false, err
	}
	return confirmed(answer), nil
}

// TeaPrompter reads each answer with a one-line bubbletea textinput.
type TeaPrompter struct {
	mu     sync.Mutex
	in     io.Reader
	out    io.Writer
	styles Styles
}

// ReadLine runs a textinput program until Enter, Ctrl+C or Ctrl+D.
func (p *TeaPrompter) ReadLine(prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m := newLineModel(prompt, p.styles)
	final, err := tea.NewProgram(m, tea.WithInput(p.in), tea.WithOutput(p.out)).Run()
	if err != nil {
		return "", err
	}
	lm := final.(lineModel)

	// The program clears its view on exit; echo the answered prompt.
	fmt.Fprintln(p.out, prompt+lm.input.Value())
	switch {
	case lm.interrupted:
		return "", ErrInterrupted
	case lm.eof:
		return "", io.EOF
	}
	return lm.input.Value(), nil
}

// Confirm asks question and reports whether the answer was y or Y.
func (p *TeaPrompter) Confirm(question string) (bool, error) {
	answer, err := p.ReadLine(question)
	if err != nil {
		return false, err
	}
	return confirmed(answer), nil
}

type lineModel struct {
	input       textinput.Model
	done        bool
	interrupted bool
	eof         bool
}

func newLineModel(prompt string, styles Styles) lineModel {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.PromptStyle = styles.Prompt
	ti.TextStyle = styles.Body
	ti.CharLimit = 1024
	ti.Focus()
	return lineModel{input: ti}
}

func (m lineModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m lineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC:
			m.done, m.interrupted = true, true
			return m, tea.Quit
		case tea.KeyCtrlD:
			if m.input.Value() == "" {
				m.done, m.eof = true, true
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m lineModel) View() string {
	if m.done {
		return ""
	}
	return m.input.View()
}
