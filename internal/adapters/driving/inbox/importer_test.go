package inbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

// mockNewsletterService stores ingested newsletters in memory and marks
// them indexed unless ingestErr is set.
type mockNewsletterService struct {
	mu        sync.Mutex
	stored    map[string]domain.Newsletter
	ingested  []string
	ingestErr error
	getErr    error
}

func newMockNewsletterService() *mockNewsletterService {
	return &mockNewsletterService{stored: make(map[string]domain.Newsletter)}
}

func (m *mockNewsletterService) Ingest(_ context.Context, n domain.Newsletter) (domain.IndexingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingested = append(m.ingested, n.ID)
	if m.ingestErr != nil {
		m.stored[n.ID] = n
		return domain.IndexingResult{NewsletterID: n.ID, Error: m.ingestErr.Error()}, m.ingestErr
	}
	n.Indexed = true
	m.stored[n.ID] = n
	return domain.IndexingResult{NewsletterID: n.ID, Success: true, ChunksCreated: 2, Cost: 0.001}, nil
}

func (m *mockNewsletterService) GetNewsletter(_ context.Context, id string) (*domain.Newsletter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	n, ok := m.stored[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &n, nil
}

func (m *mockNewsletterService) ListNewsletters(_ context.Context, _ string) ([]domain.Newsletter, error) {
	return nil, nil
}

func (m *mockNewsletterService) ingestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ingested)
}

func writeMessage(t *testing.T, dir, name, subject string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	body := "Subject: " + subject + "\r\nMessage-ID: <" + name + "@example.com>\r\n\r\nBody of " + subject + "\r\n"
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestIsMessage(t *testing.T) {
	assert.True(t, IsMessage("/inbox/a.eml"))
	assert.True(t, IsMessage("/inbox/A.EML"))
	assert.False(t, IsMessage("/inbox/a.txt"))
	assert.False(t, IsMessage("/inbox/.a.eml"))
	assert.False(t, IsMessage("/inbox/eml"))
}

func TestImportFile(t *testing.T) {
	ctx := context.Background()

	t.Run("ingests new newsletter", func(t *testing.T) {
		dir := t.TempDir()
		path := writeMessage(t, dir, "one.eml", "One")
		svc := newMockNewsletterService()

		ev := NewImporter(svc, "u1").ImportFile(ctx, path)

		require.NoError(t, ev.Err)
		assert.False(t, ev.Skipped)
		assert.NotEmpty(t, ev.NewsletterID)
		assert.True(t, ev.Result.Success)
		stored := svc.stored[ev.NewsletterID]
		assert.Equal(t, "u1", stored.OwnerID)
		assert.Equal(t, "One", stored.Subject)
	})

	t.Run("skips already indexed", func(t *testing.T) {
		dir := t.TempDir()
		path := writeMessage(t, dir, "one.eml", "One")
		svc := newMockNewsletterService()
		imp := NewImporter(svc, "u1")

		first := imp.ImportFile(ctx, path)
		second := imp.ImportFile(ctx, path)

		require.NoError(t, first.Err)
		require.NoError(t, second.Err)
		assert.True(t, second.Skipped)
		assert.Equal(t, 1, svc.ingestCount())
	})

	t.Run("reindex ingests again", func(t *testing.T) {
		dir := t.TempDir()
		path := writeMessage(t, dir, "one.eml", "One")
		svc := newMockNewsletterService()
		imp := NewImporter(svc, "u1", WithReindex(true))

		imp.ImportFile(ctx, path)
		ev := imp.ImportFile(ctx, path)

		assert.False(t, ev.Skipped)
		assert.Equal(t, 2, svc.ingestCount())
	})

	t.Run("unindexed newsletter is retried", func(t *testing.T) {
		dir := t.TempDir()
		path := writeMessage(t, dir, "one.eml", "One")
		svc := newMockNewsletterService()
		svc.ingestErr = domain.ErrProvider
		imp := NewImporter(svc, "u1")

		first := imp.ImportFile(ctx, path)
		require.ErrorIs(t, first.Err, domain.ErrProvider)

		svc.ingestErr = nil
		second := imp.ImportFile(ctx, path)
		require.NoError(t, second.Err)
		assert.False(t, second.Skipped)
		assert.Equal(t, 2, svc.ingestCount())
	})

	t.Run("missing file", func(t *testing.T) {
		ev := NewImporter(newMockNewsletterService(), "u1").ImportFile(ctx, filepath.Join(t.TempDir(), "nope.eml"))
		assert.Error(t, ev.Err)
		assert.Empty(t, ev.NewsletterID)
	})

	t.Run("unparseable file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.eml")
		require.NoError(t, os.WriteFile(path, []byte("   "), 0o600))
		ev := NewImporter(newMockNewsletterService(), "u1").ImportFile(ctx, path)
		assert.ErrorIs(t, ev.Err, domain.ErrInvalidInput)
	})

	t.Run("lookup failure", func(t *testing.T) {
		path := writeMessage(t, t.TempDir(), "one.eml", "One")
		svc := newMockNewsletterService()
		svc.getErr = errors.New("db locked")
		ev := NewImporter(svc, "u1").ImportFile(ctx, path)
		assert.ErrorContains(t, ev.Err, "db locked")
		assert.Equal(t, 0, svc.ingestCount())
	})
}

func TestImportDir(t *testing.T) {
	dir := t.TempDir()
	writeMessage(t, dir, "a.eml", "A")
	writeMessage(t, dir, "nested/b.eml", "B")
	writeMessage(t, dir, ".hidden/c.eml", "C")
	writeMessage(t, dir, ".d.eml", "D")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.eml"), []byte(" "), 0o600))

	svc := newMockNewsletterService()
	imp := NewImporter(svc, "u1")

	report, err := imp.ImportDir(context.Background(), dir)

	require.NoError(t, err)
	assert.Equal(t, 3, report.Files)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 4, report.Chunks)
	assert.InDelta(t, 0.002, report.Cost, 1e-9)

	again, err := imp.ImportDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Skipped)
	assert.Equal(t, 2, svc.ingestCount())
}

func TestImportDir_Missing(t *testing.T) {
	_, err := NewImporter(newMockNewsletterService(), "u1").ImportDir(context.Background(), filepath.Join(t.TempDir(), "gone"))
	assert.Error(t, err)
}

func TestImportDir_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeMessage(t, dir, "a.eml", "A")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewImporter(newMockNewsletterService(), "u1").ImportDir(ctx, dir)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	writeMessage(t, dir, "existing.eml", "Existing")
	svc := newMockNewsletterService()
	imp := NewImporter(svc, "u1", WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := imp.Watch(ctx, dir)
	require.NoError(t, err)

	writeMessage(t, dir, "new.eml", "Fresh")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o600))

	select {
	case ev := <-events:
		require.NoError(t, ev.Err)
		assert.Equal(t, filepath.Join(dir, "new.eml"), ev.Path)
		assert.Equal(t, "Fresh", svc.stored[ev.NewsletterID].Subject)
	case <-time.After(5 * time.Second):
		t.Fatal("no import event")
	}
	assert.Equal(t, 1, svc.ingestCount(), "existing files are not imported by Watch")

	cancel()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("event channel not closed")
		}
	}
}

func TestWatch_MissingDir(t *testing.T) {
	_, err := NewImporter(newMockNewsletterService(), "u1").Watch(context.Background(), filepath.Join(t.TempDir(), "gone"))
	assert.Error(t, err)
}
