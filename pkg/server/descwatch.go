package server

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// LoadDescriptionFile reads room descriptions from path, one per paragraph.
// Paragraphs are separated by blank lines; lines inside a paragraph are
// joined with single spaces.
func LoadDescriptionFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return parseDescriptions(string(data)), nil
}

func parseDescriptions(text string) []string {
	var out, para []string
	flush := func() {
		if len(para) > 0 {
			out = append(out, strings.Join(para, " "))
			para = para[:0]
		}
	}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			if line == "" {
				flush()
			}
			continue
		}
		para = append(para, line)
	}
	flush()
	return out
}

// DescriptionSetter receives a new description pool.
type DescriptionSetter interface {
	SetDescriptions(pool []string) error
}

// WatchDescriptions reloads the description pool whenever path changes on
// disk. The pool handed to dst is base followed by the file's paragraphs.
// Watching stops when ctx is cancelled.
func WatchDescriptions(ctx context.Context, path string, base []string, dst DescriptionSetter) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting description watcher: %w", err)
	}
	// Watch the directory: editors often replace the file rather than write it.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	name := filepath.Base(path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				reloadDescriptions(path, base, dst)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("Description watcher error: %v", err)
			}
		}
	}()
	log.Printf("Watching description file for changes: %s", path)
	return nil
}

func reloadDescriptions(path string, base []string, dst DescriptionSetter) {
	extra, err := LoadDescriptionFile(path)
	if err != nil {
		log.Printf("WARNING: Could not reload descriptions: %v", err)
		return
	}
	pool := append(append([]string(nil), base...), extra...)
	if err := dst.SetDescriptions(pool); err != nil {
		log.Printf("WARNING: Keeping old descriptions: %v", err)
		return
	}
	log.Printf("Reloaded %d descriptions from %s", len(pool), path)
}
