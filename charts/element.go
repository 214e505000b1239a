package charts

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/spektr-org/chartkit/adapter"
)

// ============================================================================
// ELEMENTS — Where a chart shows up
// ============================================================================
// An element is the display slot for one chart. Its id is the chart id.
// It receives the rendered handle on success and the error text on
// failure.
// ============================================================================

// Element is the display slot of a chart.
type Element interface {
	ID() string
	SetHandle(h *adapter.Handle) error
	SetError(msg string) error
}

// MemoryElement keeps the last handle or error in memory.
type MemoryElement struct {
	id string

	mu     sync.RWMutex
	handle *adapter.Handle
	err    string
}

// NewMemoryElement returns an empty element with the given id.
func NewMemoryElement(id string) *MemoryElement {
	return &MemoryElement{id: id}
}

func (e *MemoryElement) ID() string { return e.id }

func (e *MemoryElement) SetHandle(h *adapter.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handle, e.err = h, ""
	return nil
}

func (e *MemoryElement) SetError(msg string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handle, e.err = nil, msg
	return nil
}

// Handle returns the last rendered handle, nil after an error.
func (e *MemoryElement) Handle() *adapter.Handle {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.handle
}

// Error returns the last error text, empty after a successful render.
func (e *MemoryElement) Error() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.err
}

// FileElement writes each render to <dir>/<id><ext>, the extension chosen
// by media type. Errors go to <dir>/<id>.error.txt, which a later
// successful render removes.
type FileElement struct {
	id  string
	dir string
}

// NewFileElement returns an element writing into dir.
func NewFileElement(dir, id string) *FileElement {
	return &FileElement{id: id, dir: dir}
}

func (e *FileElement) ID() string { return e.id }

// Path returns the file a handle of the given media type is written to.
func (e *FileElement) Path(mediaType string) string {
	return filepath.Join(e.dir, e.id+Extension(mediaType))
}

func (e *FileElement) errorPath() string {
	return filepath.Join(e.dir, e.id+".error.txt")
}

func (e *FileElement) SetHandle(h *adapter.Handle) error {
	if err := writeFile(e.Path(h.MediaType), h.Body); err != nil {
		return err
	}
	if err := os.Remove(e.errorPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (e *FileElement) SetError(msg string) error {
	return writeFile(e.errorPath(), []byte(msg+"\n"))
}

// writeFile replaces path through a temporary file in the same directory.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}

// Extension maps a handle media type to a file extension.
func Extension(mediaType string) string {
	base, _, _ := strings.Cut(mediaType, ";")
	switch base = strings.TrimSpace(base); {
	case base == "text/html":
		return ".html"
	case base == "text/plain":
		return ".txt"
	case base == "application/json" || strings.HasSuffix(base, "+json"):
		return ".json"
	case strings.Contains(base, "spreadsheetml"):
		return ".xlsx"
	}
	return ".bin"
}

var (
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff0000"))
	headerStyle = lipgloss.NewStyle().Bold(true)
	noteStyle   = lipgloss.NewStyle().Faint(true)
)

// WriterElement prints charts to a stream, typically a terminal. Text
// renders are printed as they are; other media get a one-line summary.
type WriterElement struct {
	id string

	mu sync.Mutex
	w  io.Writer
}

// NewWriterElement returns an element printing to w.
func NewWriterElement(w io.Writer, id string) *WriterElement {
	return &WriterElement{id: id, w: w}
}

func (e *WriterElement) ID() string { return e.id }

func (e *WriterElement) SetHandle(h *adapter.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	header := headerStyle.Render(e.id) + " " + noteStyle.Render("("+h.Adapter+")")
	if strings.HasPrefix(h.MediaType, "text/plain") {
		_, err := fmt.Fprintf(e.w, "%s\n%s\n\n", header, h.Body)
		return err
	}
	_, err := fmt.Fprintf(e.w, "%s %s\n", header, noteStyle.Render(fmt.Sprintf("%s, %d bytes", h.MediaType, len(h.Body))))
	return err
}

func (e *WriterElement) SetError(msg string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, err := fmt.Fprintf(e.w, "%s\n%s\n\n", headerStyle.Render(e.id), errorStyle.Render(msg))
	return err
}
