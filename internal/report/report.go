// Package report carries user-facing status messages from the index and
// installer layers to whatever front end is driving them.
package report

import (
	"fmt"
	"sync"
)

// Level classifies a message for styling.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	// LevelAlert draws attention like a warning but is not one: the package
	// list being fetched or falling back to its default URL.
	LevelAlert
)

// Reporter receives user-facing messages and download progress.
type Reporter interface {
	Report(level Level, msg string)

	// Progress returns a callback for a download labelled label. The returned
	// done func is called once the download ends, successfully or not.
	Progress(label string) (update func(done, total int64), done func())
}

// Infof reports an informational message.
func Infof(r Reporter, format string, args ...interface{}) {
	r.Report(LevelInfo, fmt.Sprintf(format, args...))
}

// Successf reports a success message.
func Successf(r Reporter, format string, args ...interface{}) {
	r.Report(LevelSuccess, fmt.Sprintf(format, args...))
}

// Warnf reports a warning.
func Warnf(r Reporter, format string, args ...interface{}) {
	r.Report(LevelWarn, fmt.Sprintf(format, args...))
}

// Alertf reports a notice that needs the user's attention.
func Alertf(r Reporter, format string, args ...interface{}) {
	r.Report(LevelAlert, fmt.Sprintf(format, args...))
}

// Nop discards everything.
type Nop struct{}

func (Nop) Report(Level, string) {}

func (Nop) Progress(string) (func(int64, int64), func()) {
	return func(int64, int64) {}, func() {}
}

// Message is one recorded report.
type Message struct {
	Level Level
	Text  string
}

// Recorder keeps every message in memory. Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
	Labels   []string
}

func (r *Recorder) Report(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, Message{Level: level, Text: msg})
}

func (r *Recorder) Progress(label string) (func(int64, int64), func()) {
	r.mu.Lock()
	r.Labels = append(r.Labels, label)
	r.mu.Unlock()
	return func(int64, int64) {}, func() {}
}

// Texts returns the recorded message texts at the given level.
func (r *Recorder) Texts(level Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.Messages {
		if m.Level == level {
			out = append(out, m.Text)
		}
	}
	return out
}
