package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/aretw0/fasthooks/pkg/domain"
)

// Transcript is a loaded conversation log. Entries before the last compact
// boundary are kept apart as archived.
type Transcript struct {
	Path string

	entries  []*Entry
	archived []*Entry
	// Skipped counts malformed lines dropped in lenient mode.
	Skipped int

	toolUses    []*Block
	toolResults []*Block
	useIndex    map[string]*Block
	resultIndex map[string]*Block
	uuidIndex   map[string]*Entry
}

// Option configures loading.
type Option func(*options)

type options struct {
	strict bool
}

// Strict makes a malformed line an error instead of being skipped.
func Strict() Option {
	return func(o *options) { o.strict = true }
}

// Load reads the transcript at path. A missing file yields an empty
// transcript.
func Load(path string, opts ...Option) (*Transcript, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Transcript{Path: path}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Read(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.Path = path
	return t, nil
}

// FromInput loads the transcript named by in.TranscriptPath.
func FromInput(in *domain.Input, opts ...Option) (*Transcript, error) {
	if in == nil || in.TranscriptPath == "" {
		return nil, errors.New("payload has no transcript_path")
	}
	return Load(in.TranscriptPath, opts...)
}

// Read parses a transcript from r. Lines may be of any length.
func Read(r io.Reader, opts ...Option) (*Transcript, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var all []*Entry
	lastCompact := -1
	skipped := 0
	br := bufio.NewReader(r)
	for lineNo := 1; ; lineNo++ {
		line, err := br.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			e := &Entry{Line: lineNo}
			if uerr := json.Unmarshal(trimmed, e); uerr != nil {
				if o.strict {
					return nil, fmt.Errorf("line %d: %w", lineNo, uerr)
				}
				skipped++
			} else {
				e.Raw = json.RawMessage(bytes.Clone(trimmed))
				if e.IsCompactBoundary() {
					lastCompact = len(all)
				}
				all = append(all, e)
			}
		}
		if err != nil {
			break
		}
	}

	t := &Transcript{
		Skipped:     skipped,
		useIndex:    make(map[string]*Block),
		resultIndex: make(map[string]*Block),
		uuidIndex:   make(map[string]*Entry),
	}
	for i, e := range all {
		if i <= lastCompact {
			t.archived = append(t.archived, e)
		} else {
			t.entries = append(t.entries, e)
		}
		t.index(e)
	}
	return t, nil
}

func (t *Transcript) index(e *Entry) {
	if e.UUID != "" {
		t.uuidIndex[e.UUID] = e
	}
	blocks := e.Blocks()
	for i := range blocks {
		b := &blocks[i]
		switch {
		case e.Type == TypeAssistant && b.Type == BlockToolUse:
			if _, seen := t.useIndex[b.ID]; !seen {
				t.toolUses = append(t.toolUses, b)
			}
			t.useIndex[b.ID] = b
		case e.Type == TypeUser && b.Type == BlockToolResult:
			if _, seen := t.resultIndex[b.ToolUseID]; !seen {
				t.toolResults = append(t.toolResults, b)
			}
			t.resultIndex[b.ToolUseID] = b
		}
	}
}

// Len returns the number of current (non-archived) entries.
func (t *Transcript) Len() int { return len(t.entries) }

// Entries returns the entries after the last compact boundary.
func (t *Transcript) Entries() []*Entry { return t.entries }

// Archived returns the entries up to and including the last compact boundary.
func (t *Transcript) Archived() []*Entry { return t.archived }

func (t *Transcript) filter(keep func(*Entry) bool, entries ...[]*Entry) []*Entry {
	var out []*Entry
	for _, list := range entries {
		for _, e := range list {
			if keep(e) {
				out = append(out, e)
			}
		}
	}
	return out
}

// UserMessages returns current user entries, tool results included.
func (t *Transcript) UserMessages() []*Entry {
	return t.filter(func(e *Entry) bool { return e.Type == TypeUser }, t.entries)
}

// Prompts returns current user entries that are not tool results.
func (t *Transcript) Prompts() []*Entry {
	return t.filter(func(e *Entry) bool { return e.Type == TypeUser && !e.IsToolResult() && !e.IsMeta }, t.entries)
}

// AssistantMessages returns current assistant entries.
func (t *Transcript) AssistantMessages() []*Entry {
	return t.filter(func(e *Entry) bool { return e.Type == TypeAssistant }, t.entries)
}

// SystemEntries returns current system entries.
func (t *Transcript) SystemEntries() []*Entry {
	return t.filter(func(e *Entry) bool { return e.Type == TypeSystem }, t.entries)
}

// CompactBoundaries returns every compaction marker, archived ones included.
func (t *Transcript) CompactBoundaries() []*Entry {
	return t.filter((*Entry).IsCompactBoundary, t.archived, t.entries)
}

// FileSnapshots returns current file history snapshots.
func (t *Transcript) FileSnapshots() []*Entry {
	return t.filter(func(e *Entry) bool { return e.Type == TypeFileSnapshot }, t.entries)
}

// ToolUses returns every tool_use block in file order.
func (t *Transcript) ToolUses() []*Block { return t.toolUses }

// ToolResults returns every tool_result block in file order.
func (t *Transcript) ToolResults() []*Block { return t.toolResults }

// Errors returns the tool results flagged is_error.
func (t *Transcript) Errors() []*Block {
	var out []*Block
	for _, b := range t.toolResults {
		if b.IsError {
			out = append(out, b)
		}
	}
	return out
}

func (t *Transcript) FindToolUse(id string) *Block { return t.useIndex[id] }

func (t *Transcript) FindToolResult(toolUseID string) *Block { return t.resultIndex[toolUseID] }

func (t *Transcript) FindByUUID(uuid string) *Entry { return t.uuidIndex[uuid] }

// Parent returns the entry e replies to, if loaded.
func (t *Transcript) Parent(e *Entry) *Entry {
	if e.ParentUUID == "" {
		return nil
	}
	return t.uuidIndex[e.ParentUUID]
}

// Children returns the current entries whose parent is e.
func (t *Transcript) Children(e *Entry) []*Entry {
	if e.UUID == "" {
		return nil
	}
	return t.filter(func(c *Entry) bool { return c.ParentUUID == e.UUID }, t.entries)
}
