package logger

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Separator joins the fields of a report line
const Separator = " | "

// Logger writes the pipe-delimited report to stdout and a log file. The file is
// truncated on open so every run starts from an empty report.
type Logger struct {
	*log.Logger
	file   *os.File
	writer *bufio.Writer
}

// Close properly flushes and closes the log file
func (l *Logger) Close() error {
	if err := l.Flush(); err != nil {
		return err
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) Flush() error {
	if l.writer != nil {
		return l.writer.Flush()
	}
	return nil
}

// Line writes one report line made of fields joined by Separator
func (l *Logger) Line(fields ...string) {
	l.Println(strings.Join(fields, Separator))
}

// Linef writes a tagged line whose last field is formatted
func (l *Logger) Linef(tag, format string, args ...any) {
	l.Line(tag, fmt.Sprintf(format, args...))
}

// Path is the file the report is written to
func (l *Logger) Path() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

func NewLogger(filename string) (*Logger, error) {
	return newLogger(filename, os.Stdout)
}

func newLogger(filename string, console io.Writer) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return nil, err
	}
	logFile, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return nil, err
	}

	bufferedWriter := bufio.NewWriter(logFile)

	// Write log to both console and log file
	multiWriter := io.MultiWriter(console, bufferedWriter)

	// no prefix or timestamp: every line has to stay machine-parseable
	logger := log.New(multiWriter, "", 0)

	return &Logger{Logger: logger, file: logFile, writer: bufferedWriter}, nil
}
