package plan

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// newTestEngine returns an engine with sequential ids, a frozen clock and a
// recording notifier.
func newTestEngine(t *testing.T) (*Engine, *RecordingNotifier) {
	t.Helper()
	n := 0
	notices := NewRecordingNotifier(0, nil)
	e := NewEngine(
		WithClock(func() time.Time { return testEpoch }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
		WithNotifier(notices),
	)
	return e, notices
}

// engineWithFloor returns an engine holding one building and one active floor.
func engineWithFloor(t *testing.T) (*Engine, *RecordingNotifier, Floor) {
	t.Helper()
	e, notices := newTestEngine(t)
	e.SetBuilding(Building{Name: "HQ"})
	f, err := e.AddFloor(Floor{Name: "Ground", OrderIndex: 0, Width: 1000, Height: 800})
	require.NoError(t, err)
	e.SetActiveFloor(f.ID)
	return e, notices, f
}

func square(x, y, size float64) []Point {
	return []Point{{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}}
}

// pickPair arms nothing; it feeds two points to whatever capture is armed.
func pickPair(t *testing.T, e *Engine, a, b Point) {
	t.Helper()
	require.True(t, e.Pick(a), "first point not consumed")
	require.True(t, e.Pick(b), "second point not consumed")
}
