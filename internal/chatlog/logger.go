// Package chatlog records chat traffic as newline-delimited JSON, one file
// per user conversation.
package chatlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Directions.
const (
	Inbound  = "inbound"
	Outbound = "outbound"
)

// Event is one logged chat message.
type Event struct {
	Timestamp  time.Time `json:"ts"`
	UserID     string    `json:"user_id"`
	SessionID  string    `json:"session_id"`
	Channel    string    `json:"channel,omitempty"`
	Direction  string    `json:"direction"`
	EventType  string    `json:"event_type"`
	Intent     string    `json:"intent,omitempty"`
	Step       string    `json:"step,omitempty"`
	ContentRaw string    `json:"content_raw"`
	Content    string    `json:"content"`
}

// ConversationLogger accepts events without blocking the caller.
type ConversationLogger interface {
	Log(Event)
	Close() error
}

// Config controls the logger.
type Config struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// New returns a file-backed logger, or a no-op one when disabled.
func New(cfg Config, logger *slog.Logger) (ConversationLogger, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}

	l := &fileLogger{
		dir:    cfg.Dir,
		queue:  make(chan Event, cfg.QueueSize),
		files:  make(map[string]*os.File),
		logger: logger,
		done:   make(chan struct{}),
	}
	go l.run()
	return l, nil
}

// Noop discards events.
type Noop struct{}

// Log discards e.
func (Noop) Log(Event) {}

// Close does nothing.
func (Noop) Close() error { return nil }

type fileLogger struct {
	dir    string
	queue  chan Event
	files  map[string]*os.File
	logger *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func (l *fileLogger) Log(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Content == "" {
		e.Content = cleanForReadability(e.ContentRaw)
	}

	defer func() {
		// Log after Close is dropped.
		_ = recover()
	}()
	select {
	case l.queue <- e:
	default:
		l.logger.Warn("Conversation log queue full, dropping event", "user_id", e.UserID)
	}
}

func (l *fileLogger) run() {
	defer close(l.done)
	for e := range l.queue {
		if err := l.write(e); err != nil {
			l.logger.Warn("Failed to write conversation log", "user_id", e.UserID, "error", err)
		}
	}
	for path, f := range l.files {
		if err := f.Close(); err != nil {
			l.logger.Warn("Failed to close conversation log", "path", path, "error", err)
		}
	}
}

func (l *fileLogger) write(e Event) error {
	session := e.SessionID
	if session == "" {
		session = e.Timestamp.Format("2006-01-02")
	}
	path := filepath.Join(l.dir, safeName(e.UserID), safeName(session)+".ndjson")

	f, ok := l.files[path]
	if !ok {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		l.files[path] = f
	}

	line, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = f.Write(append(line, '\n'))
	return err
}

// Close flushes queued events and closes files.
func (l *fileLogger) Close() error {
	l.closeOnce.Do(func() { close(l.queue) })
	<-l.done
	return nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

func safeName(s string) string {
	s = unsafeChars.ReplaceAllString(s, "_")
	s = strings.Trim(s, ".")
	if s == "" {
		return "anonymous"
	}
	return s
}

var (
	ansiPattern     = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	markdownPattern = regexp.MustCompile("[*_`]")
	spacePattern    = regexp.MustCompile(`[ \t]+`)
)

// cleanForReadability strips terminal escapes and Markdown emphasis.
func cleanForReadability(s string) string {
	s = ansiPattern.ReplaceAllString(s, "")
	s = markdownPattern.ReplaceAllString(s, "")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
