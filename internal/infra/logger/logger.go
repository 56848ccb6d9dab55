package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	InfoLogger  *logrus.Logger
	ErrorLogger *logrus.Logger
)

// InitLoggers настраивает логгеры с ротацией файлов.
// Инфо-лог и error-лог пишутся в отдельные файлы и дублируются в stdout/stderr.
func InitLoggers(dir string) error {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	InfoLogger = newLogger(filepath.Join(dir, "info.log"), os.Stdout, logrus.InfoLevel)
	ErrorLogger = newLogger(filepath.Join(dir, "error.log"), os.Stderr, logrus.ErrorLevel)
	return nil
}

func newLogger(file string, console io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetOutput(io.MultiWriter(console, &lumberjack.Logger{
		Filename:   file,
		MaxSize:    50, // MB
		MaxBackups: 5,
		MaxAge:     30, // дней
		Compress:   true,
	}))
	return l
}

func init() {
	// Дефолтные логгеры без файлов, чтобы пакеты могли логировать
	// до явной инициализации (и в тестах).
	InfoLogger = logrus.New()
	ErrorLogger = logrus.New()
	ErrorLogger.SetOutput(os.Stderr)
}
