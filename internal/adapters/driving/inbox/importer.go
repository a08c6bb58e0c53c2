// Package inbox imports newsletters from directories of .eml files, once or
// continuously as files arrive.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
	"github.com/custodia-labs/postsmith/internal/logger"
	"github.com/custodia-labs/postsmith/internal/normalisers/eml"
)

// DefaultDebounce is how long a file must be quiet before it is imported.
const DefaultDebounce = 500 * time.Millisecond

// maxMessageSize caps how much of one file is read.
const maxMessageSize = 25 << 20

// Event is the outcome of importing one file.
type Event struct {
	Path string

	// NewsletterID is set once the file parsed.
	NewsletterID string

	// Result is the indexing result of an ingested file.
	Result domain.IndexingResult

	// Skipped is true when the newsletter was already indexed.
	Skipped bool

	Err error
}

// Report summarises a directory import.
type Report struct {
	Files    int
	Imported int
	Skipped  int
	Failed   int
	Chunks   int
	Cost     float64
	Events   []Event
}

func (r *Report) add(e Event) {
	r.Files++
	r.Events = append(r.Events, e)
	switch {
	case e.Err != nil:
		r.Failed++
	case e.Skipped:
		r.Skipped++
	default:
		r.Imported++
		r.Chunks += e.Result.ChunksCreated
		r.Cost += e.Result.Cost
	}
}

// Importer parses message files and hands them to the newsletter service.
type Importer struct {
	newsletters driving.NewsletterService
	parser      *eml.Parser
	ownerID     string
	reindex     bool
	debounce    time.Duration
}

// Option configures the importer.
type Option func(*Importer)

// WithReindex re-ingests newsletters that are already indexed.
func WithReindex(reindex bool) Option {
	return func(i *Importer) {
		i.reindex = reindex
	}
}

// WithDebounce sets the quiet period before a changed file is imported.
func WithDebounce(d time.Duration) Option {
	return func(i *Importer) {
		if d > 0 {
			i.debounce = d
		}
	}
}

// NewImporter creates an importer that stamps ownerID on every newsletter.
func NewImporter(newsletters driving.NewsletterService, ownerID string, opts ...Option) *Importer {
	i := &Importer{
		newsletters: newsletters,
		parser:      eml.New(),
		ownerID:     ownerID,
		debounce:    DefaultDebounce,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ImportFile parses and ingests one file. Failures are reported in the event.
func (i *Importer) ImportFile(ctx context.Context, path string) Event {
	ev := Event{Path: path}

	raw, err := readMessage(path)
	if err != nil {
		ev.Err = err
		return ev
	}
	n, err := i.parser.Parse(raw, i.ownerID, path)
	if err != nil {
		ev.Err = fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		return ev
	}
	ev.NewsletterID = n.ID

	if !i.reindex {
		existing, err := i.newsletters.GetNewsletter(ctx, n.ID)
		switch {
		case err == nil && existing.Indexed:
			ev.Skipped = true
			return ev
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			ev.Err = fmt.Errorf("look up %s: %w", n.ID, err)
			return ev
		}
	}

	ev.Result, ev.Err = i.newsletters.Ingest(ctx, n)
	if ev.Err == nil {
		logger.Debug("imported %s as %s (%d chunks)", path, n.ID, ev.Result.ChunksCreated)
	}
	return ev
}

// ImportDir imports every message under dir, skipping hidden entries.
// It stops early only when ctx is cancelled.
func (i *Importer) ImportDir(ctx context.Context, dir string) (Report, error) {
	var report Report
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != dir && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsMessage(path) {
			return nil
		}
		report.add(i.ImportFile(ctx, path))
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("import %s: %w", dir, err)
	}
	logger.Info("imported %d of %d files from %s (%d skipped, %d failed)",
		report.Imported, report.Files, dir, report.Skipped, report.Failed)
	return report, nil
}

// IsMessage reports whether path names an importable message file.
func IsMessage(path string) bool {
	return strings.EqualFold(filepath.Ext(path), eml.Extension) && !isHidden(filepath.Base(path))
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

func readMessage(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > maxMessageSize {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", domain.ErrInvalidInput, path, maxMessageSize)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}
