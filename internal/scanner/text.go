package scanner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/samtupy/folderstats/internal/registry"
	"github.com/samtupy/folderstats/internal/store"

	"github.com/gabriel-vasile/mimetype"
)

const StatTextLines = "text_lines"

// DefaultTextExtensions are used when Text is created without any.
var DefaultTextExtensions = []string{".txt", ".md", ".csv", ".log"}

const sniffLen = 512

// Text counts lines of plain text files. A file qualifies when its
// extension is known and its first bytes sniff as text. Text never handles
// a file.
type Text struct {
	exts map[string]struct{}
}

// NewText returns a Text scanner for the given extensions, matched case
// insensitively. Extensions must include the leading dot.
func NewText(extensions ...string) Text {
	if len(extensions) == 0 {
		extensions = DefaultTextExtensions
	}
	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = struct{}{}
	}
	return Text{exts: exts}
}

func (Text) Define(reg *registry.Registry) {
	reg.Define(registry.Definition{ID: StatTextLines, Format: "%s lines of text"}, "")
}

func (t Text) Scan(ctx context.Context, path string, st *store.Store) bool {
	if _, ok := t.exts[strings.ToLower(filepath.Ext(path))]; !ok {
		return false
	}
	lines, err := countLines(path)
	if err != nil {
		slog.DebugContext(ctx, "can't count lines", "error", err)
		return false
	}
	if lines > 0 {
		st.Increase(path, StatTextLines, float64(lines))
	}
	return false
}

var errNotText = errors.New("not a text file")

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = f.Close()
	}()

	r := bufio.NewReader(f)
	head, err := r.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	if !isText(mimetype.Detect(head)) {
		return 0, errNotText
	}

	var n int
	var last byte = '\n'
	buf := make([]byte, 32*1024)
	for {
		c, err := r.Read(buf)
		if c > 0 {
			n += bytes.Count(buf[:c], []byte{'\n'})
			last = buf[c-1]
		}
		if errors.Is(err, io.EOF) {
			// unterminated last line
			if last != '\n' {
				n++
			}
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
}

// isText reports whether m is text/plain or any of its descendants, like
// text/csv or text/html.
func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
