package syncer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spratt/internal/app/client/ingest"
	"spratt/internal/app/client/staging"
	"spratt/internal/utils/logger"
)

type MockIngester struct {
	mock.Mock
}

func (m *MockIngester) Ingest(ctx context.Context, rec staging.StagedRecording) (ingest.Receipt, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(ingest.Receipt), args.Error(1)
}

type fakeConnectivity struct {
	online atomic.Bool
}

func newConnectivity(online bool) *fakeConnectivity {
	c := &fakeConnectivity{}
	c.online.Store(online)
	return c
}

func (c *fakeConnectivity) IsOnline() bool { return c.online.Load() }

// blockingIngester зависает на первом вызове до закрытия unblock
type blockingIngester struct {
	started chan struct{}
	unblock chan struct{}
	calls   atomic.Int32
}

func newBlockingIngester() *blockingIngester {
	return &blockingIngester{
		started: make(chan struct{}),
		unblock: make(chan struct{}),
	}
}

func (b *blockingIngester) Ingest(_ context.Context, rec staging.StagedRecording) (ingest.Receipt, error) {
	if b.calls.Add(1) == 1 {
		close(b.started)
		<-b.unblock
	}
	return ingest.Receipt{ID: "srv-" + rec.ID, ClientRecordingID: rec.ID}, nil
}

type failingStore struct {
	Store
}

func (failingStore) ListUnsynced(context.Context) ([]staging.StagedRecording, error) {
	return nil, staging.ErrStorageUnavailable
}

func (failingStore) AcquireLease(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}

func (failingStore) ReleaseLease(context.Context, string) error { return nil }

func (failingStore) RecoverInterrupted(context.Context, ...string) (int, error) { return 0, nil }

func openStore(t *testing.T) *staging.Store {
	t.Helper()
	return openStoreAt(t, filepath.Join(t.TempDir(), "staging.db"))
}

// openStoreAt открывает хранилище по пути; два вызова на одном пути ведут себя как два процесса
func openStoreAt(t *testing.T, path string) *staging.Store {
	t.Helper()

	store, err := staging.Open(path, logger.NewDiscard())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func stage(t *testing.T, store *staging.Store, payload string) string {
	t.Helper()

	id, err := store.Stage(context.Background(), staging.NewBlob("audio/webm", []byte(payload)), "user-1", nil)
	require.NoError(t, err)

	return id
}

type statusRecorder struct {
	mu       sync.Mutex
	statuses []Status
}

func (r *statusRecorder) listen(st Status) {
	r.mu.Lock()
	r.statuses = append(r.statuses, st)
	r.mu.Unlock()
}

func (r *statusRecorder) all() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Status(nil), r.statuses...)
}

func (r *statusRecorder) byState(state State) []Status {
	var out []Status
	for _, st := range r.all() {
		if st.State == state {
			out = append(out, st)
		}
	}
	return out
}

func TestOrchestrator_SyncsStagedRecordingsInOrder(t *testing.T) {
	// Arrange
	store := openStore(t)
	online := newConnectivity(false)
	ids := []string{stage(t, store, "one"), stage(t, store, "two"), stage(t, store, "three")}

	ingester := &MockIngester{}
	var order []string
	ingester.On("Ingest", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			order = append(order, args.Get(1).(staging.StagedRecording).ID)
		}).
		Return(ingest.Receipt{ID: "srv"}, nil)

	o := New(store, ingester, online, DefaultConfig(), logger.NewDiscard())
	rec := &statusRecorder{}
	o.AddListener(rec.listen)

	// Act
	online.online.Store(true)
	result := o.SyncPending(context.Background())

	// Assert
	assert.Equal(t, Result{Synced: 3, Failed: 0}, result)
	assert.Equal(t, ids, order)

	pending, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)

	syncing := rec.byState(StateSyncing)
	require.Len(t, syncing, 3)
	assert.Equal(t, []int{2, 1, 0}, []int{syncing[0].PendingCount, syncing[1].PendingCount, syncing[2].PendingCount})

	all := rec.all()
	assert.Equal(t, Status{State: StateIdle}, all[len(all)-1])
	assert.Equal(t, Status{State: StateIdle}, o.Status())
	assert.False(t, o.IsSyncing())
}

func TestOrchestrator_OfflineIsNoop(t *testing.T) {
	// Arrange
	store := openStore(t)
	id := stage(t, store, "memo")
	ingester := &MockIngester{}

	o := New(store, ingester, newConnectivity(false), DefaultConfig(), logger.NewDiscard())
	rec := &statusRecorder{}
	o.AddListener(rec.listen)

	// Act
	result := o.SyncPending(context.Background())

	// Assert
	assert.Equal(t, Result{}, result)
	ingester.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)

	got, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, staging.StatusPending, got.Status)
	assert.Equal(t, 0, got.RetryCount)

	assert.Equal(t, []Status{{State: StateOffline}}, rec.all())
}

func TestOrchestrator_SingleFlight(t *testing.T) {
	// Arrange
	store := openStore(t)
	stage(t, store, "memo")
	ingester := newBlockingIngester()

	o := New(store, ingester, newConnectivity(true), DefaultConfig(), logger.NewDiscard())

	first := make(chan Result, 1)
	go func() { first <- o.SyncPending(context.Background()) }()
	<-ingester.started

	// Act
	second := o.SyncPending(context.Background())

	// Assert
	assert.Equal(t, Result{}, second)
	assert.True(t, o.IsSyncing())
	assert.Equal(t, int32(1), ingester.calls.Load())

	close(ingester.unblock)
	assert.Equal(t, Result{Synced: 1}, <-first)
	assert.False(t, o.IsSyncing())
}

func TestOrchestrator_RetryBudget(t *testing.T) {
	// Arrange
	store := openStore(t)
	id := stage(t, store, "memo")
	ingester := &MockIngester{}
	ingester.On("Ingest", mock.Anything, mock.Anything).
		Return(ingest.Receipt{}, errors.New("service unavailable"))

	o := New(store, ingester, newConnectivity(true), DefaultConfig(), logger.NewDiscard())
	ctx := context.Background()

	// Act & Assert
	for pass := 1; pass <= DefaultRetryBudget; pass++ {
		result := o.SyncPending(ctx)
		assert.Equal(t, Result{Failed: 1}, result, "pass %d", pass)

		rec, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, pass, rec.RetryCount)
		assert.Equal(t, staging.StatusFailed, rec.Status)
		assert.Equal(t, "service unavailable", rec.LastError)
		assert.Equal(t, Status{State: StatePending, PendingCount: 1}, o.Status())
	}
	ingester.AssertNumberOfCalls(t, "Ingest", DefaultRetryBudget)

	result := o.SyncPending(ctx)

	assert.Equal(t, Result{Failed: 1}, result)
	ingester.AssertNumberOfCalls(t, "Ingest", DefaultRetryBudget)

	rec, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, staging.StatusFailed, rec.Status)
	assert.Equal(t, DefaultRetryBudget, rec.RetryCount)
}

func TestOrchestrator_PartialFailure(t *testing.T) {
	// Arrange
	store := openStore(t)
	okID := stage(t, store, "good")
	badID := stage(t, store, "bad")

	ingester := &MockIngester{}
	ingester.On("Ingest", mock.Anything, mock.MatchedBy(func(r staging.StagedRecording) bool { return r.ID == okID })).
		Return(ingest.Receipt{ID: "srv-ok"}, nil)
	ingester.On("Ingest", mock.Anything, mock.MatchedBy(func(r staging.StagedRecording) bool { return r.ID == badID })).
		Return(ingest.Receipt{}, ingest.ErrRemoteIngest)

	o := New(store, ingester, newConnectivity(true), DefaultConfig(), logger.NewDiscard())
	ctx := context.Background()

	// Act
	result := o.SyncPending(ctx)

	// Assert
	assert.Equal(t, Result{Synced: 1, Failed: 1}, result)

	_, err := store.Get(ctx, okID)
	assert.ErrorIs(t, err, staging.ErrNotFound)

	bad, err := store.Get(ctx, badID)
	require.NoError(t, err)
	assert.Equal(t, staging.StatusFailed, bad.Status)
	assert.Equal(t, Status{State: StatePending, PendingCount: 1}, o.Status())
}

func TestOrchestrator_WatchdogReleasesStuckPass(t *testing.T) {
	// Arrange
	store := openStore(t)
	stage(t, store, "stuck")
	ingester := newBlockingIngester()
	t.Cleanup(func() { close(ingester.unblock) })

	cfg := Config{RetryBudget: DefaultRetryBudget, WatchdogTimeout: 50 * time.Millisecond}
	o := New(store, ingester, newConnectivity(true), cfg, logger.NewDiscard())

	go o.SyncPending(context.Background())
	<-ingester.started

	// Act
	require.Eventually(t, func() bool { return !o.IsSyncing() }, time.Second, 10*time.Millisecond)
	freshID := stage(t, store, "fresh")
	result := o.SyncPending(context.Background())

	// Assert
	assert.Equal(t, Result{Synced: 1}, result)
	_, err := store.Get(context.Background(), freshID)
	assert.ErrorIs(t, err, staging.ErrNotFound)
}

func TestOrchestrator_IngestListeners(t *testing.T) {
	store := openStore(t)
	id := stage(t, store, "memo")

	ingester := &MockIngester{}
	ingester.On("Ingest", mock.Anything, mock.Anything).
		Return(ingest.Receipt{ID: "srv-1", ClientRecordingID: id}, nil)

	o := New(store, ingester, newConnectivity(true), DefaultConfig(), logger.NewDiscard())

	var (
		kept    []ingest.Receipt
		dropped int
	)
	o.AddIngestListener(func(r ingest.Receipt) { kept = append(kept, r) })
	unsubscribe := o.AddIngestListener(func(ingest.Receipt) { dropped++ })
	unsubscribe()
	unsubscribe()

	o.SyncPending(context.Background())

	require.Len(t, kept, 1)
	assert.Equal(t, "srv-1", kept[0].ID)
	assert.Equal(t, id, kept[0].ClientRecordingID)
	assert.Zero(t, dropped)
}

func TestOrchestrator_ListFailureBroadcastsError(t *testing.T) {
	ingester := &MockIngester{}
	o := New(failingStore{}, ingester, newConnectivity(true), DefaultConfig(), logger.NewDiscard())
	rec := &statusRecorder{}
	o.AddListener(rec.listen)

	result := o.SyncPending(context.Background())

	assert.Equal(t, Result{}, result)
	assert.Equal(t, []Status{{State: StateError}}, rec.all())
	assert.False(t, o.IsSyncing())
	ingester.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
}

func TestOrchestrator_EmptyQueueIsIdle(t *testing.T) {
	o := New(openStore(t), &MockIngester{}, newConnectivity(true), DefaultConfig(), logger.NewDiscard())

	result := o.SyncPending(context.Background())

	assert.Equal(t, Result{}, result)
	assert.Equal(t, Status{State: StateIdle}, o.Status())
}

func TestOrchestrator_SecondProcessWaitsForRunningPass(t *testing.T) {
	// Arrange: демон и разовая команда sync на одном файле
	path := filepath.Join(t.TempDir(), "staging.db")
	daemonStore := openStoreAt(t, path)
	cliStore := openStoreAt(t, path)
	id := stage(t, daemonStore, "memo")

	daemonIngester := newBlockingIngester()
	cfg := Config{RetryBudget: DefaultRetryBudget, WatchdogTimeout: 5 * time.Second}
	daemon := New(daemonStore, daemonIngester, newConnectivity(true), cfg, logger.NewDiscard())
	cliIngester := &MockIngester{}
	cli := New(cliStore, cliIngester, newConnectivity(true), cfg, logger.NewDiscard())

	daemonDone := make(chan Result)
	go func() { daemonDone <- daemon.SyncPending(context.Background()) }()
	<-daemonIngester.started

	// Act: демон завис на выгрузке, CLI запускает свой проход
	cliResult := cli.SyncPending(context.Background())

	// Assert: запись не тронута и не отправлена второй раз
	assert.Equal(t, Result{}, cliResult)
	cliIngester.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
	rec, err := cliStore.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, staging.StatusUploading, rec.Status)
	assert.Zero(t, rec.RetryCount)

	close(daemonIngester.unblock)
	assert.Equal(t, Result{Synced: 1}, <-daemonDone)
	assert.Equal(t, int32(1), daemonIngester.calls.Load())

	// после прохода демона блокировка свободна, а очередь пуста
	assert.Equal(t, Result{}, cli.SyncPending(context.Background()))
	assert.Equal(t, Status{State: StateIdle}, cli.Status())
}

func TestOrchestrator_RecoversUploadsOfCrashedProcess(t *testing.T) {
	store := openStore(t)
	id := stage(t, store, "memo")
	// процесс упал посреди выгрузки
	require.NoError(t, store.MarkStatus(context.Background(), id, staging.StatusUploading, nil))

	ingester := &MockIngester{}
	ingester.On("Ingest", mock.Anything, mock.MatchedBy(func(rec staging.StagedRecording) bool {
		return rec.ID == id && rec.RetryCount == 1
	})).Return(ingest.Receipt{ID: "srv-1", ClientRecordingID: id}, nil).Once()

	o := New(store, ingester, newConnectivity(true), DefaultConfig(), logger.NewDiscard())

	result := o.SyncPending(context.Background())

	assert.Equal(t, Result{Synced: 1}, result)
	ingester.AssertExpectations(t)
}
