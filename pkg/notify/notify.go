// Package notify separates user-facing notifications from state mutation.
// State components return classified results; whoever drives them decides how
// to present those results through a Notifier.
package notify

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Notifier presents one-line outcomes to the user.
type Notifier interface {
	Success(msg string)
	Failure(msg string)
}

// Console writes notifications to a writer, one per line. Safe for
// concurrent use.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole returns a Console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) Success(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, "✔", msg)
}

func (c *Console) Failure(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, "✖", msg)
}

// Logger routes notifications to a zap logger. Useful for headless runs and
// as a tee alongside Console.
type Logger struct {
	lg *zap.Logger
}

// NewLogger returns a Logger backed by lg.
func NewLogger(lg *zap.Logger) *Logger {
	return &Logger{lg: lg}
}

func (l *Logger) Success(msg string) {
	l.lg.Info("notification", zap.String("outcome", "success"), zap.String("message", msg))
}

func (l *Logger) Failure(msg string) {
	l.lg.Warn("notification", zap.String("outcome", "failure"), zap.String("message", msg))
}

// Multi fans a notification out to several notifiers in order.
type Multi []Notifier

func (m Multi) Success(msg string) {
	for _, n := range m {
		n.Success(msg)
	}
}

func (m Multi) Failure(msg string) {
	for _, n := range m {
		n.Failure(msg)
	}
}
