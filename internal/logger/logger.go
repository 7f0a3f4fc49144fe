// Package logger, anahtar/değer alanlı basit bir log arayüzü sağlar.
// Çıktı standart log paketinden geçer; gin'in kendi log satırlarıyla aynı akışa yazılır.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Logger, servislerin kullandığı log arayüzü.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})
	With(keyvals ...interface{}) Logger
}

// Level, log seviyesi.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLevel converts "debug", "info", "warn", "error" into a Level. Unknown values are InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	}
	return InfoLevel
}

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	}
	return "INFO"
}

// SimpleLogger, text veya json formatında yazar.
type SimpleLogger struct {
	out    *log.Logger
	level  Level
	json   bool
	fields []interface{}
}

// New, verilen seviye ve format ("text" | "json") ile logger oluşturur.
func New(level, format string) *SimpleLogger {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter writes to w instead of stderr.
func NewWithWriter(w io.Writer, level, format string) *SimpleLogger {
	return &SimpleLogger{
		out:   log.New(w, "", log.LstdFlags),
		level: ParseLevel(level),
		json:  strings.EqualFold(format, "json"),
	}
}

func (l *SimpleLogger) Debug(msg string, keyvals ...interface{}) { l.log(DebugLevel, msg, keyvals) }
func (l *SimpleLogger) Info(msg string, keyvals ...interface{})  { l.log(InfoLevel, msg, keyvals) }
func (l *SimpleLogger) Warn(msg string, keyvals ...interface{})  { l.log(WarnLevel, msg, keyvals) }
func (l *SimpleLogger) Error(msg string, keyvals ...interface{}) { l.log(ErrorLevel, msg, keyvals) }

// With, kalıcı alanlar eklenmiş bir kopya döndürür.
func (l *SimpleLogger) With(keyvals ...interface{}) Logger {
	fields := make([]interface{}, 0, len(l.fields)+len(keyvals))
	fields = append(fields, l.fields...)
	fields = append(fields, keyvals...)
	return &SimpleLogger{out: l.out, level: l.level, json: l.json, fields: fields}
}

func (l *SimpleLogger) log(level Level, msg string, keyvals []interface{}) {
	if level < l.level {
		return
	}
	all := make([]interface{}, 0, len(l.fields)+len(keyvals))
	all = append(all, l.fields...)
	all = append(all, keyvals...)

	if l.json {
		entry := map[string]interface{}{"level": level.String(), "msg": msg}
		for i := 0; i+1 < len(all); i += 2 {
			v := all[i+1]
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			entry[fmt.Sprint(all[i])] = v
		}
		b, err := json.Marshal(entry)
		if err != nil {
			l.out.Printf("[%s] %s (log encode error: %v)", level, msg, err)
			return
		}
		l.out.Println(string(b))
		return
	}

	parts := []string{fmt.Sprintf("[%s]", level), msg}
	for i := 0; i+1 < len(all); i += 2 {
		parts = append(parts, fmt.Sprintf("%v=%v", all[i], all[i+1]))
	}
	l.out.Println(strings.Join(parts, " "))
}

// Nop, hiçbir şey yazmayan logger. Testlerde kullanılır.
type Nop struct{}

func (Nop) Debug(string, ...interface{}) {}
func (Nop) Info(string, ...interface{})  {}
func (Nop) Warn(string, ...interface{})  {}
func (Nop) Error(string, ...interface{}) {}
func (n Nop) With(...interface{}) Logger { return n }
