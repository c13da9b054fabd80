// Package wall stores the messages players write on a room's wall as an
// append-only text file, one message per line.
package wall

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"
)

// MaxMessage is the longest message Append stores, in bytes. Longer
// messages are cut at a rune boundary.
const MaxMessage = 4096

// Log is the message file of one room. Writers are serialized; the file is
// opened and closed on every write so external readers always see whole lines.
type Log struct {
	path string
	mu   sync.Mutex
}

// FileName returns the log file name for room n hosted by owner.
func FileName(owner string, n int) string {
	if owner == "" {
		return fmt.Sprintf("%d-messages.log", n)
	}
	return fmt.Sprintf("%s-%d-messages.log", sanitize(owner), n)
}

// sanitize keeps owner identities usable as a file name component.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, s)
}

// Open returns the log for room n under dir. The file itself is created on
// the first write.
func Open(dir, owner string, n int) *Log {
	return &Log{path: filepath.Join(dir, FileName(owner, n))}
}

// Path returns the backing file path.
func (l *Log) Path() string { return l.path }

// Append writes `"msg" - author` as a new line.
func (l *Log) Append(author, msg string) error {
	msg = truncate(strings.ReplaceAll(msg, "\n", " "), MaxMessage)
	line := "\"" + msg + "\" - " + author + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("wall: creating %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("wall: opening %s: %w", l.path, err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("wall: writing %s: %w", l.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("wall: closing %s: %w", l.path, err)
	}
	return nil
}

// Lines returns every message in write order. A wall nobody has written on
// yet returns an error wrapping os.ErrNotExist.
func (l *Log) Lines() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("wall: reading %s: %w", l.path, err)
	}
	defer f.Close()

	// Lines have no length limit here: files written before MaxMessage
	// existed may hold longer ones.
	var lines []string
	rd := bufio.NewReader(f)
	for {
		line, err := rd.ReadString('\n')
		if line = strings.TrimRight(line, "\r\n"); line != "" || err == nil {
			lines = append(lines, line)
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, fmt.Errorf("wall: reading %s: %w", l.path, err)
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
