package event

import (
	"context"

	"github.com/rs/zerolog"
)

var _ Sender = (*LogSender)(nil)

const defaultLogMessage = "db event"

// LogSender emits each record as a structured zerolog line.
type LogSender struct {
	logger  zerolog.Logger
	level   zerolog.Level
	message string
}

// LogSenderOption configures a LogSender.
type LogSenderOption func(*LogSender)

// WithLogLevel sets the level records are logged at (default: info).
func WithLogLevel(level zerolog.Level) LogSenderOption {
	return func(s *LogSender) {
		s.level = level
	}
}

// WithLogMessage sets the log message (default: "db event").
func WithLogMessage(msg string) LogSenderOption {
	return func(s *LogSender) {
		s.message = msg
	}
}

// NewLogSender creates a sender writing records to logger.
//
// Example:
//
//	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
//	client := event.NewClient(event.NewLogSender(logger))
func NewLogSender(logger zerolog.Logger, opts ...LogSenderOption) *LogSender {
	s := &LogSender{
		logger:  logger,
		level:   zerolog.InfoLevel,
		message: defaultLogMessage,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, rec Record) error {
	s.logger.WithLevel(s.level).
		Time("event_time", rec.Timestamp).
		Fields(map[string]any(rec.Data)).
		Msg(s.message)
	return nil
}
