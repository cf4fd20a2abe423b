package checkpoint

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"
)

// record is the on-disk line format: one JSON object per checkpoint.
// Sequence and timestamp are duplicated at the top level so history
// listings can decode them without touching the embedded state.
type record struct {
	Sequence   uint64      `json:"sequence"`
	CreatedAt  time.Time   `json:"created_at"`
	Checkpoint *Checkpoint `json:"checkpoint"`
}

// historyRecord decodes only the metadata fields of a record line.
type historyRecord struct {
	Sequence  uint64    `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
}

// FileStore persists checkpoints as one append-only JSONL file per thread.
// Prior lines are never rewritten; each Save appends exactly one record.
//
// The per-store mutex makes each Save/Load/List call atomic with respect to
// concurrent invocations sharing the same store, so a reader never observes
// a partially written record.
type FileStore struct {
	baseDir string
	mu      sync.Mutex
	closed  bool
}

// NewFileStore creates a file-backed checkpoint store rooted at baseDir.
// The directory is created lazily on first Save.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

// SanitizeThreadID maps a thread id to a safe filename stem. Filesystem
// reserved characters become underscores, control characters are dropped,
// and leading/trailing dots, whitespace, and underscores are trimmed. An id
// that sanitizes to nothing falls back to a deterministic hash-derived name
// so distinct callers still get stable, non-colliding files.
func SanitizeThreadID(threadID string) string {
	var b strings.Builder
	b.Grow(len(threadID))
	for _, r := range threadID {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			b.WriteRune('_')
		default:
			if unicode.IsControl(r) {
				continue
			}
			b.WriteRune(r)
		}
	}
	trimmed := strings.TrimFunc(b.String(), func(r rune) bool {
		return r == '.' || r == '_' || unicode.IsSpace(r)
	})
	if trimmed == "" {
		h := fnv.New32a()
		h.Write([]byte(threadID))
		return fmt.Sprintf("thread-%08x", h.Sum32())
	}
	return trimmed
}

// threadPath returns the JSONL path for a thread.
func (s *FileStore) threadPath(threadID string) string {
	return filepath.Join(s.baseDir, SanitizeThreadID(threadID)+".jsonl")
}

// Save implements Store. The next sequence is one more than the thread's
// maximum existing sequence (0 if none). The assigned sequence and timestamp
// are written back to cp.
func (s *FileStore) Save(ctx context.Context, cp *Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	path := s.threadPath(cp.ThreadID)
	last, err := readLastRecord(path)
	if err != nil {
		return err
	}

	cp.Sequence = 1
	if last != nil {
		cp.Sequence = last.Sequence + 1
	}
	cp.CreatedAt = time.Now().UTC()

	line, err := json.Marshal(record{
		Sequence:   cp.Sequence,
		CreatedAt:  cp.CreatedAt,
		Checkpoint: cp,
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open checkpoint file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append checkpoint: %w", err)
	}
	return f.Sync()
}

// Load implements Store. It returns the checkpoint from the last well-formed
// line; a malformed line surfaces as ErrCorruptRecord rather than being
// silently skipped.
func (s *FileStore) Load(ctx context.Context, threadID string) (*Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	last, err := readLastRecord(s.threadPath(threadID))
	if err != nil {
		return nil, err
	}
	if last == nil || last.Checkpoint == nil {
		return nil, ErrNotFound
	}
	return last.Checkpoint, nil
}

// List implements HistoryStore. Only sequence and created_at are decoded per
// line, avoiding full-state materialization for timeline views.
func (s *FileStore) List(ctx context.Context, threadID string) ([]Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.threadPath(threadID))
	if err != nil {
		if os.IsNotExist(err) {
			return []Metadata{}, nil
		}
		return nil, fmt.Errorf("open checkpoint file: %w", err)
	}
	defer f.Close()

	var history []Metadata
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var h historyRecord
		if err := json.Unmarshal([]byte(line), &h); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptRecord, lineNo, err)
		}
		history = append(history, Metadata{Sequence: h.Sequence, CreatedAt: h.CreatedAt})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read checkpoint file: %w", err)
	}
	if history == nil {
		history = []Metadata{}
	}
	return history, nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// maxRecordSize bounds a single checkpoint line (state included).
const maxRecordSize = 64 * 1024 * 1024

// readLastRecord scans a thread file and returns the final record, or nil if
// the file does not exist or is empty. Any undecodable line is an error: a
// torn or corrupt history must never be silently truncated.
func readLastRecord(path string) (*record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open checkpoint file: %w", err)
	}
	defer f.Close()

	var last *record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var r record
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptRecord, lineNo, err)
		}
		last = &r
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read checkpoint file: %w", err)
	}
	return last, nil
}
