package notify

import (
	"context"
	"log/slog"
)

// Log writes alerts to a logger instead of delivering them.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Send(ctx context.Context, phone, message string) error {
	phone, message, err := normalize(phone, message)
	if err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "alert", "phone", phone, "message", message)
	return nil
}
