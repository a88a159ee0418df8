package plan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	err   error
	saves int
}

func (s *failingStore) Load(context.Context) (*Snapshot, error) { return nil, s.err }

func (s *failingStore) Save(context.Context, Snapshot) error {
	s.saves++
	return s.err
}

type memoryStore struct {
	snap *Snapshot
}

func (s *memoryStore) Load(context.Context) (*Snapshot, error) { return s.snap, nil }

func (s *memoryStore) Save(_ context.Context, snap Snapshot) error {
	s.snap = &snap
	return nil
}

func populated(t *testing.T) *Engine {
	t.Helper()
	e, _, _ := engineWithFloor(t)
	_, err := calibrate(t, e, Point{0, 0}, Point{50, 0}, "1", Meters)
	require.NoError(t, err)
	kitchen, err := e.AddRoom(Room{Name: "Kitchen", Polygon: square(0, 0, 100), Properties: map[string]string{"wing": "east"}})
	require.NoError(t, err)
	e.AddPanos(Pano{NodeID: "n1", Title: "Kitchen A"}, Pano{NodeID: "n2", Title: "Hall"})
	require.NoError(t, e.AssignPanoToRoom(e.Panos()[0].ID, kitchen.ID))
	_, err = measure(t, e, Point{10, 10}, Point{60, 10}, MeasurementInput{Name: "bench"})
	require.NoError(t, err)
	return e
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "plan.json")
	store := NewFileStore(path)
	ctx := context.Background()

	e := populated(t)
	require.True(t, e.UnsavedChanges())
	require.NoError(t, e.Save(ctx, store))
	assert.False(t, e.UnsavedChanges())

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")

	restored, _ := newTestEngine(t)
	ok, err := restored.LoadFrom(ctx, store)
	require.NoError(t, err)
	require.True(t, ok)

	want := e.Snapshot()
	got := restored.Snapshot()
	assert.Equal(t, want.Building, got.Building)
	assert.Equal(t, want.Floors, got.Floors)
	assert.Equal(t, want.Rooms, got.Rooms)
	assert.Equal(t, want.Panos, got.Panos)
	assert.Equal(t, want.Measurements, got.Measurements)
	assert.Equal(t, want.ActiveFloorID, got.ActiveFloorID)
	assert.False(t, restored.UnsavedChanges())

	assigned := restored.Panos()[0]
	assert.True(t, assigned.Room.IsAssigned())
	assert.False(t, restored.Panos()[1].Room.IsAssigned())
}

func TestFileStore_Missing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "none.json"))
	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)

	e, _ := newTestEngine(t)
	ok, err := e.LoadFrom(context.Background(), store)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	assert.ErrorContains(t, err, "parsing snapshot")
}

func TestFileStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewFileStore(filepath.Join(t.TempDir(), "plan.json")).Save(ctx, Snapshot{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineSave_FailureKeepsUnsaved(t *testing.T) {
	e := populated(t)
	boom := errors.New("disk full")

	err := e.Save(context.Background(), &failingStore{err: boom})
	assert.ErrorIs(t, err, boom)
	assert.True(t, e.UnsavedChanges())
}

func TestMultiStore(t *testing.T) {
	ctx := context.Background()

	t.Run("load from first store with data", func(t *testing.T) {
		second := &memoryStore{snap: &Snapshot{ActiveFloorID: "f2"}}
		snap, err := MultiStore{&memoryStore{}, second}.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, "f2", snap.ActiveFloorID)
	})

	t.Run("secondary failure is not fatal", func(t *testing.T) {
		primary := &memoryStore{}
		secondary := &failingStore{err: errors.New("offline")}
		require.NoError(t, MultiStore{primary, secondary}.Save(ctx, Snapshot{ActiveFloorID: "f1"}))
		require.NotNil(t, primary.snap)
		assert.Equal(t, 1, secondary.saves)
	})

	t.Run("primary failure is fatal", func(t *testing.T) {
		primary := &failingStore{err: errors.New("read-only")}
		secondary := &memoryStore{}
		assert.Error(t, MultiStore{primary, secondary}.Save(ctx, Snapshot{}))
		assert.Nil(t, secondary.snap)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Error(t, MultiStore{}.Save(ctx, Snapshot{}))
	})
}
