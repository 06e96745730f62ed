// Package notify decides whether the aggregate export outcome is shown
// and forwards it to a sink. Rendering the notification is the host
// environment's concern.
package notify

import (
	"fmt"
	"io"
	"log/slog"
)

// Mode controls when the aggregate notification is shown.
type Mode string

const (
	ModeAlways    Mode = "always"
	ModeOnSuccess Mode = "onSuccess"
	ModeOnFailure Mode = "onFailure"
	ModeNever     Mode = "never"
)

// ShouldNotify reports whether a notification should be shown for the
// given outcome under the configured mode.
func ShouldNotify(mode Mode, success bool) bool {
	if success {
		return mode == ModeAlways || mode == ModeOnSuccess
	}
	return mode == ModeAlways || mode == ModeOnFailure
}

// Notifier displays one aggregate notification per export action.
type Notifier interface {
	Notify(title, message string) error
}

// WriterNotifier prints notifications to a writer, typically stdout.
type WriterNotifier struct {
	Out io.Writer
}

func (n *WriterNotifier) Notify(title, message string) error {
	_, err := fmt.Fprintf(n.Out, "%s: %s\n", title, message)
	return err
}

// LogNotifier forwards notifications to the structured log.
type LogNotifier struct {
	Log *slog.Logger
}

func (n *LogNotifier) Notify(title, message string) error {
	n.Log.Info(message, "title", title)
	return nil
}
