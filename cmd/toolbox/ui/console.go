package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"toolbox/internal/report"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// Console prints styled status lines and download progress. It implements
// report.Reporter. Safe for concurrent use.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	styles Styles
	tty    bool
}

// NewConsole creates a Console writing to out. Progress bars are only drawn
// when out is a terminal.
func NewConsole(out io.Writer, styles Styles) *Console {
	return &Console{out: out, styles: styles, tty: IsTerminal(out)}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w interface{}) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Styles returns the console's styles.
func (c *Console) Styles() Styles {
	return c.styles
}

// Writer returns the underlying writer.
func (c *Console) Writer() io.Writer {
	return c.out
}

// Println writes s followed by a newline.
func (c *Console) Println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}

// Print writes s as is.
func (c *Console) Print(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, s)
}

// PrintError prints "Error: msg" in red.
func (c *Console) PrintError(msg string) {
	c.Println(c.styles.Error.Render("Error: " + msg))
}

// PrintWarning prints "Warning: msg" in yellow.
func (c *Console) PrintWarning(msg string) {
	c.Println(c.styles.Warning.Render("Warning: " + msg))
}

// PrintSuccess prints msg in green.
func (c *Console) PrintSuccess(msg string) {
	c.Println(c.styles.Success.Render(msg))
}

// PrintInfo prints msg in the foreground colour.
func (c *Console) PrintInfo(msg string) {
	c.Println(c.styles.Info.Render(msg))
}

// PrintNotice prints msg in cyan.
func (c *Console) PrintNotice(msg string) {
	c.Println(c.styles.Notice.Render(msg))
}

// Report implements report.Reporter.
func (c *Console) Report(level report.Level, msg string) {
	switch level {
	case report.LevelSuccess:
		c.PrintSuccess(msg)
	case report.LevelWarn:
		c.PrintWarning(msg)
	case report.LevelAlert:
		c.Println(c.styles.Warning.Render(msg))
	default:
		c.PrintInfo(msg)
	}
}

const progressRedraw = 50 * time.Millisecond

// Progress implements report.Reporter. The bar is redrawn in place on a
// terminal and skipped entirely otherwise.
func (c *Console) Progress(label string) (func(done, total int64), func()) {
	if !c.tty {
		return func(int64, int64) {}, func() {}
	}

	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(30))
	var (
		drawn bool
		last  time.Time
	)
	update := func(done, total int64) {
		if time.Since(last) < progressRedraw && done != total {
			return
		}
		last = time.Now()
		line := ProgressLine(bar, label, done, total)

		c.mu.Lock()
		defer c.mu.Unlock()
		fmt.Fprint(c.out, "\r"+line)
		drawn = true
	}
	finish := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if drawn {
			fmt.Fprintln(c.out)
		}
	}
	return update, finish
}

// ProgressLine renders one progress line. total <= 0 means the size is
// unknown.
func ProgressLine(bar progress.Model, label string, done, total int64) string {
	if total <= 0 {
		return fmt.Sprintf("%s %s", label, humanize.Bytes(uint64(done)))
	}
	pct := float64(done) / float64(total)
	if pct > 1 {
		pct = 1
	}
	return fmt.Sprintf("%s %s %s/%s", label, bar.ViewAs(pct),
		humanize.Bytes(uint64(done)), humanize.Bytes(uint64(total)))
}
