package core_test

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	agentrecall "github.com/oceanbase/agentrecall-go/pkg/core"
	"github.com/oceanbase/agentrecall-go/pkg/storage"
	sqliteStore "github.com/oceanbase/agentrecall-go/pkg/storage/sqlite"
)

const testWorkspace = "ws-test"

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeClock is a settable time source.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// setupCoreTest opens a client over a fresh SQLite database.
func setupCoreTest(t *testing.T) (*agentrecall.Client, *fakeClock, func()) {
	backend, err := sqliteStore.NewClient(&sqliteStore.Config{
		DBPath:      filepath.Join(t.TempDir(), "recall.db"),
		TablePrefix: "test_",
	})
	require.NoError(t, err)

	clock := &fakeClock{now: testNow}
	client, err := agentrecall.NewClientWithBackend(backend,
		agentrecall.WithClock(clock.Now),
		agentrecall.WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	cleanup := func() {
		_ = client.Close()
	}

	return client, clock, cleanup
}

// storeMemory stores a memory in the test workspace and returns its id.
func storeMemory(t *testing.T, client *agentrecall.Client, memoryType agentrecall.MemoryType, importance, confidence float64, content string, keywords ...string) string {
	t.Helper()

	result, err := client.Store().Store(context.Background(), &agentrecall.StoreRequest{
		WorkspaceID: testWorkspace,
		MemoryType:  memoryType,
		Content:     json.RawMessage(content),
		Importance:  importance,
		Confidence:  confidence,
		Keywords:    keywords,
		Agent:       "tester",
	})
	require.NoError(t, err)
	return result.MemoryID
}

// link creates a directed link between two memories.
func link(t *testing.T, client *agentrecall.Client, from, to string, relationship agentrecall.Relationship, strength float64) {
	t.Helper()

	_, err := client.Store().Link(context.Background(), &agentrecall.LinkRequest{
		MemoryID:       from,
		LinkedMemoryID: to,
		Relationship:   relationship,
		Strength:       strength,
	})
	require.NoError(t, err)
}

// fakeBackend counts the storage calls it receives and fails them with err.
// Methods it does not override panic through the nil embedded interface.
type fakeBackend struct {
	storage.RecordStore

	calls     int
	err       error
	lastQuery *storage.MemoryQuery
}

func (f *fakeBackend) InsertMemory(ctx context.Context, memory *storage.Memory) error {
	f.calls++
	return f.err
}

func (f *fakeBackend) GetMemory(ctx context.Context, workspaceID, id string) (*storage.Memory, error) {
	f.calls++
	return nil, f.err
}

func (f *fakeBackend) QueryMemories(ctx context.Context, query *storage.MemoryQuery) ([]*storage.Memory, error) {
	f.calls++
	f.lastQuery = query
	return nil, f.err
}

func (f *fakeBackend) CountMemories(ctx context.Context, query *storage.MemoryQuery) (int, error) {
	f.calls++
	return 0, f.err
}

func (f *fakeBackend) InsertLink(ctx context.Context, link *storage.Link) error {
	f.calls++
	return f.err
}

func (f *fakeBackend) QueryLinks(ctx context.Context, query *storage.LinkQuery) ([]*storage.LinkedMemory, error) {
	f.calls++
	return nil, f.err
}

func (f *fakeBackend) InsertSignal(ctx context.Context, signal *storage.Signal) error {
	f.calls++
	return f.err
}

func (f *fakeBackend) QueryUnresolvedSignals(ctx context.Context, query *storage.SignalQuery) ([]*storage.SignalWithMemory, error) {
	f.calls++
	return nil, f.err
}

func (f *fakeBackend) Stats(ctx context.Context, workspaceID string) (*storage.WorkspaceStats, error) {
	f.calls++
	return nil, f.err
}

func (f *fakeBackend) Close() error {
	return nil
}

func newFakeClient(t *testing.T, backend *fakeBackend) *agentrecall.Client {
	client, err := agentrecall.NewClientWithBackend(backend, agentrecall.WithLogger(quietLogger()))
	require.NoError(t, err)
	return client
}
