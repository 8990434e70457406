package log

import (
	"log/slog"
	"os"
)

// Logger — тонкая обёртка над slog, добавляющая имя компонента к каждой
// записи.
type Logger struct {
	*slog.Logger
	component string
}

func New(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return &Logger{
		Logger:    slog.New(handler),
		component: "app",
	}
}

// WithComponent возвращает логгер с другим именем компонента.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger,
		component: component,
	}
}

func (l *Logger) Info(msg string, args ...any) {
	l.Logger.Info(msg, append([]any{"component", l.component}, args...)...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.Logger.Warn(msg, append([]any{"component", l.component}, args...)...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.Logger.Error(msg, append([]any{"component", l.component}, args...)...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.Logger.Debug(msg, append([]any{"component", l.component}, args...)...)
}

// SetDefault делает логгер приложения дефолтным для slog.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
