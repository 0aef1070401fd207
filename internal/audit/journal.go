// Package audit keeps a journal of every source row the importer ingests.
//
// Each source file gets its own JSON Lines file under the journal directory,
// so every column of the original spreadsheet is preserved even when the
// inventory schema has no field for it. The journal is append-only: re-running
// an import appends the same rows again.
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/JonMunkholm/netinventory/internal/core"
)

// DefaultDir is where journals are written when no directory is configured.
const DefaultDir = "data/imported"

var unsafeKeyChars = regexp.MustCompile(`[^0-9a-zA-Z._-]+`)

// Journal appends audit records to per-source JSONL files.
// A nil *Journal discards everything.
type Journal struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// New creates a journal rooted at dir. A nil logger uses slog.Default().
func New(dir string, logger *slog.Logger) *Journal {
	if dir == "" {
		dir = DefaultDir
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{dir: dir, logger: logger, now: time.Now}
}

// Dir returns the journal directory.
func (j *Journal) Dir() string { return j.dir }

// Key reduces a source path to the journal file stem: its base name with
// every run of characters outside [0-9a-zA-Z._-] replaced by "_".
func Key(source string) string {
	return unsafeKeyChars.ReplaceAllString(filepath.Base(source), "_")
}

// Path returns the journal file for source.
func (j *Journal) Path(source string) string {
	return filepath.Join(j.dir, Key(source)+".jsonl")
}

// Append writes rec as one line of its source's journal. A zero Timestamp is
// set to the current UTC time. Failures are logged and otherwise ignored;
// losing an audit line never fails an import.
func (j *Journal) Append(rec core.AuditRecord) {
	if j == nil {
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = j.now().UTC()
	}
	if err := j.append(rec); err != nil {
		j.logger.Warn("audit journal write failed",
			"source", rec.SourceFile,
			"error", err,
		)
	}
}

func (j *Journal) append(rec core.AuditRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}
	f, err := os.OpenFile(j.Path(rec.SourceFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("write journal: %w", err)
	}
	return f.Close()
}

// Read returns every record journaled for source, oldest first. A source
// that was never journaled yields no records and no error.
func (j *Journal) Read(source string) ([]core.AuditRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.Path(source))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	var out []core.AuditRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec core.AuditRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("journal %s line %d: %w", Key(source), line, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return out, nil
}
