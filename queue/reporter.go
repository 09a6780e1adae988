package queue

import (
	"context"
	"unicode/utf8"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/tum-esm/hermes/message"
)

// MaxTextLength is the maximum length, in bytes, of the subject and details of
// a status message.
const MaxTextLength = 1024

// Reporter logs operational events and reports them to the backend as status
// messages.
type Reporter struct {
	// Queue is the queue that status messages are added to.
	Queue *Queue

	// Logger is the target for log messages. If it is nil,
	// logging.DefaultLogger is used.
	Logger logging.Logger
}

// Debug logs a debug message. It is never sent to the backend.
func (r *Reporter) Debug(subject, details string) {
	logging.Debug(r.Logger, "%s: %s", subject, details)
}

// Info logs subject and details and enqueues an info status message.
func (r *Reporter) Info(ctx context.Context, subject, details string) error {
	return r.report(ctx, message.Info, subject, details)
}

// Warning logs subject and details and enqueues a warning status message.
func (r *Reporter) Warning(ctx context.Context, subject, details string) error {
	return r.report(ctx, message.Warning, subject, details)
}

// Error logs subject and details and enqueues an error status message.
func (r *Reporter) Error(ctx context.Context, subject, details string) error {
	return r.report(ctx, message.Error, subject, details)
}

func (r *Reporter) report(
	ctx context.Context,
	s message.Severity,
	subject, details string,
) error {
	logging.Log(r.Logger, "%s: %s: %s", s, subject, details)

	if details == "" {
		details = subject
	}

	_, err := r.Queue.Enqueue(
		ctx,
		message.StatusBody{
			Severity: s,
			Subject:  truncate(subject),
			Details:  truncate(details),
		},
	)

	return err
}

// truncate shortens s to at most MaxTextLength bytes without splitting a
// multi-byte character.
func truncate(s string) string {
	if len(s) <= MaxTextLength {
		return s
	}

	n := MaxTextLength
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}

	return s[:n]
}
