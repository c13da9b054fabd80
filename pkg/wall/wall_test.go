package wall

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestAppendThenLines(t *testing.T) {
	l := Open(t.TempDir(), "maze.example", 0)
	if err := l.Append("alice", "hello there"); err != nil {
		t.Fatal(err)
	}
	if err := l.Append("bob", `she said "hi"`); err != nil {
		t.Fatal(err)
	}
	got, err := l.Lines()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{`"hello there" - alice`, `"she said "hi"" - bob`}
	if len(got) != len(want) {
		t.Fatalf("Lines = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLongMessages(t *testing.T) {
	l := Open(t.TempDir(), "o", 0)
	if err := l.Append("alice", "first"); err != nil {
		t.Fatal(err)
	}
	if err := l.Append("mallory", strings.Repeat("x", 70000)); err != nil {
		t.Fatal(err)
	}
	if err := l.Append("bob", "last"); err != nil {
		t.Fatal(err)
	}
	got, err := l.Lines()
	if err != nil {
		t.Fatalf("Lines after long message: %v", err)
	}
	if len(got) != 3 || got[0] != `"first" - alice` || got[2] != `"last" - bob` {
		t.Fatalf("Lines = %d lines, first %q", len(got), got[0])
	}
	if want := `"` + strings.Repeat("x", MaxMessage) + `" - mallory`; got[1] != want {
		t.Errorf("long message stored with %d bytes, want cut to %d", len(got[1]), len(want))
	}
}

func TestLinesReadsOversizedLegacyLine(t *testing.T) {
	l := Open(t.TempDir(), "o", 1)
	huge := `"` + strings.Repeat("y", 100000) + `" - old`
	if err := os.WriteFile(l.Path(), []byte("\"hi\" - a\n"+huge+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := l.Lines()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1] != huge {
		t.Errorf("got %d lines", len(got))
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	if got := truncate("héllo", 2); got != "h" {
		t.Errorf("truncate = %q, want %q", got, "h")
	}
	if got := truncate("abc", 5); got != "abc" {
		t.Errorf("truncate = %q", got)
	}
}

func TestLinesMissingFile(t *testing.T) {
	l := Open(t.TempDir(), "x", 3)
	if _, err := l.Lines(); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Lines on empty wall err = %v, want os.ErrNotExist", err)
	}
}

func TestAppendCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "walls", "nested")
	l := Open(dir, "", -2)
	if err := l.Append("carol", "deep"); err != nil {
		t.Fatal(err)
	}
	if filepath.Base(l.Path()) != "-2-messages.log" {
		t.Errorf("path = %s", l.Path())
	}
}

func TestFileNameSanitizesOwner(t *testing.T) {
	if got := FileName("host:9000/x", 1); got != "host_9000_x-1-messages.log" {
		t.Errorf("FileName = %q", got)
	}
}

func TestConcurrentAppend(t *testing.T) {
	l := Open(t.TempDir(), "x", 0)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := l.Append(fmt.Sprintf("p%d", i), "msg"); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()
	got, err := l.Lines()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 20 {
		t.Errorf("got %d lines, want 20", len(got))
	}
}
