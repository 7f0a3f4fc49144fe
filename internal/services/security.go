package services

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Güvenlik olay türleri.
const (
	EventLoginSuccess    = "LOGIN_SUCCESS"
	EventLoginFailed     = "LOGIN_FAILED"
	EventBlockedEviction = "BLOCKED_EVICTION"
	EventSessionExpired  = "SESSION_EXPIRED"
	EventAdminDenied     = "ADMIN_DENIED"
	EventSuspiciousOrder = "SUSPICIOUS_ORDER"
)

// SecurityLogger, güvenlik olaylarını append-only bir dosyaya yazar.
type SecurityLogger struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewSecurityLogger, verilen dosyayı ekleme modunda açar.
func NewSecurityLogger(path string) (*SecurityLogger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open security log: %w", err)
	}
	return &SecurityLogger{w: file, now: time.Now}, nil
}

// NewSecurityLoggerWithWriter writes events to w.
func NewSecurityLoggerWithWriter(w io.Writer) *SecurityLogger {
	return &SecurityLogger{w: w, now: time.Now}
}

// LogSecurityEvent, güvenlik olayını loglar. nil alıcıda hiçbir şey yapmaz.
func (sl *SecurityLogger) LogSecurityEvent(eventType, details, ipAddress string) {
	if sl == nil || sl.w == nil {
		return
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	timestamp := sl.now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(sl.w, "[%s] %s - %s - IP: %s\n", timestamp, eventType, details, ipAddress)
}

// Close, log dosyasını kapatır.
func (sl *SecurityLogger) Close() error {
	if sl == nil {
		return nil
	}
	if c, ok := sl.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SpamDetector, sipariş notlarında şüpheli içerik arar.
type SpamDetector struct {
	spamWords []string
}

// NewSpamDetector, yeni bir spam detector oluşturur.
func NewSpamDetector() *SpamDetector {
	return &SpamDetector{
		spamWords: []string{
			"bitcoin", "btc", "crypto", "wallet address", "investment", "earn money",
			"make money", "free money", "lottery", "winner", "claim your",
			"bank transfer", "western union", "moneygram", "credit card",
			"http://", "https://", "graph.org", "<script",
		},
	}
}

// IsSpam, metnin spam olup olmadığını kontrol eder.
func (sd *SpamDetector) IsSpam(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range sd.spamWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
