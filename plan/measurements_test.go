package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func measure(t *testing.T, e *Engine, a, b Point, in MeasurementInput) (Measurement, error) {
	t.Helper()
	require.NoError(t, e.ArmMeasurement())
	pickPair(t, e, a, b)
	return e.CommitMeasurement(in)
}

func TestMeasurement_FollowsRecalibration(t *testing.T) {
	e, _, f := engineWithFloor(t)

	m, err := measure(t, e, Point{0, 0}, Point{100, 0}, MeasurementInput{Name: "Corridor", Unit: Meters})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, m.PxLength, 1e-9)
	assert.Equal(t, f.ID, m.FloorID)
	assert.Equal(t, testEpoch, m.CreatedAt)

	meters, ok := e.MeasurementLength(m.ID, Meters)
	require.True(t, ok)
	assert.InDelta(t, 100.0, meters, 1e-9, "uncalibrated floor shows raw pixels")

	_, err = calibrate(t, e, Point{0, 0}, Point{50, 0}, "1", Meters)
	require.NoError(t, err)

	meters, _ = e.MeasurementLength(m.ID, Meters)
	assert.InDelta(t, 2.0, meters, 1e-9)
	assert.Equal(t, "2.00 m", e.DisplayLength(*e.Measurement(m.ID)))
	assert.InDelta(t, 100.0, e.Measurement(m.ID).PxLength, 1e-9, "pixel length is frozen")
}

func TestMeasurement_Feet(t *testing.T) {
	e, _, _ := engineWithFloor(t)
	_, err := calibrate(t, e, Point{0, 0}, Point{50, 0}, "1", Meters)
	require.NoError(t, err)

	m, err := measure(t, e, Point{0, 0}, Point{0, 100}, MeasurementInput{Name: "Height", Unit: Feet})
	require.NoError(t, err)

	feet, ok := e.MeasurementLength(m.ID, "")
	require.True(t, ok)
	assert.InDelta(t, 2*FeetPerMeter, feet, 1e-9, "empty unit uses the creation unit")
	assert.Equal(t, "6.56 ft", e.DisplayLength(m))

	meters, _ := e.MeasurementLength(m.ID, Meters)
	assert.InDelta(t, 2.0, meters, 1e-9)
}

func TestMeasurement_RoundTrip(t *testing.T) {
	e, _, f := engineWithFloor(t)
	_, err := calibrate(t, e, Point{0, 0}, Point{37, 0}, "1.3", Meters)
	require.NoError(t, err)
	m, err := measure(t, e, Point{3, 4}, Point{123.4, 567.8}, MeasurementInput{Name: "diag"})
	require.NoError(t, err)

	ppm := e.Floor(f.ID).PixelsPerMeter()
	meters, _ := e.MeasurementLength(m.ID, Meters)
	assert.InDelta(t, m.PxLength, MetersToPixels(meters, ppm), 1e-9)
}

func TestCommitMeasurement_Rejections(t *testing.T) {
	e, notices, _ := engineWithFloor(t)

	_, err := measure(t, e, Point{0, 0}, Point{10, 0}, MeasurementInput{Name: "   "})
	assert.ErrorIs(t, err, ErrEmptyName)
	assert.Empty(t, e.Measurements(""))
	assert.Equal(t, CaptureReady, e.Capture().State)
	last, _ := notices.Last()
	assert.Equal(t, LevelError, last.Level)

	_, err = e.CommitMeasurement(MeasurementInput{Name: "ok", Unit: Unit("cubits")})
	assert.ErrorIs(t, err, ErrUnknownUnit)

	_, err = e.CommitMeasurement(MeasurementInput{Name: "ok", RoomID: "missing"})
	assert.ErrorIs(t, err, ErrRoomNotFound)

	m, err := e.CommitMeasurement(MeasurementInput{Name: "  ok  "})
	require.NoError(t, err)
	assert.Equal(t, "ok", m.Name)
	assert.Equal(t, Meters, m.Unit)

	_, err = e.CommitMeasurement(MeasurementInput{Name: "again"})
	assert.ErrorIs(t, err, ErrNoPendingPick, "commit consumes the pick")
}

func TestMeasurement_RoomTag(t *testing.T) {
	e, _, _ := engineWithFloor(t)
	hall, _ := e.AddRoom(Room{Name: "Hall", Polygon: square(0, 0, 100)})
	office, _ := e.AddRoom(Room{Name: "Office", Polygon: square(200, 0, 100)})

	inside, err := measure(t, e, Point{10, 10}, Point{90, 10}, MeasurementInput{Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, hall.ID, inside.RoomID)

	across, err := measure(t, e, Point{10, 10}, Point{250, 10}, MeasurementInput{Name: "b"})
	require.NoError(t, err)
	assert.Empty(t, across.RoomID, "spanning two rooms is untagged")

	explicit, err := measure(t, e, Point{10, 10}, Point{250, 10}, MeasurementInput{Name: "c", RoomID: office.ID})
	require.NoError(t, err)
	assert.Equal(t, office.ID, explicit.RoomID)
}

func TestCommitMeasurement_RoomOnAnotherFloor(t *testing.T) {
	e, _, f := engineWithFloor(t)
	upper, err := e.AddFloor(Floor{Name: "Upper", OrderIndex: 1})
	require.NoError(t, err)
	attic, err := e.AddRoom(Room{Name: "Attic", FloorID: upper.ID})
	require.NoError(t, err)

	_, err = measure(t, e, Point{0, 0}, Point{10, 0}, MeasurementInput{Name: "beam", RoomID: attic.ID})
	assert.ErrorIs(t, err, ErrFloorMismatch)
	assert.Empty(t, e.Measurements(f.ID))
	assert.Equal(t, CaptureReady, e.Capture().State)
}

func TestDeleteMeasurement(t *testing.T) {
	e, _, f := engineWithFloor(t)
	a, _ := measure(t, e, Point{0, 0}, Point{1, 0}, MeasurementInput{Name: "a"})
	b, _ := measure(t, e, Point{0, 0}, Point{2, 0}, MeasurementInput{Name: "b"})

	e.DeleteMeasurement(a.ID)
	got := e.Measurements(f.ID)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)
	assert.Nil(t, e.Measurement(a.ID))

	_, ok := e.MeasurementLength(a.ID, Meters)
	assert.False(t, ok)

	e.Load(e.Snapshot())
	e.DeleteMeasurement("missing")
	assert.False(t, e.UnsavedChanges())
}

func TestMeasurements_PerFloor(t *testing.T) {
	e, _, ground := engineWithFloor(t)
	upper, err := e.AddFloor(Floor{Name: "Upper", OrderIndex: 1})
	require.NoError(t, err)

	_, _ = measure(t, e, Point{0, 0}, Point{1, 0}, MeasurementInput{Name: "g"})
	e.SetActiveFloor(upper.ID)
	_, _ = measure(t, e, Point{0, 0}, Point{1, 0}, MeasurementInput{Name: "u"})

	assert.Len(t, e.Measurements(ground.ID), 1)
	assert.Len(t, e.Measurements(upper.ID), 1)
	assert.Len(t, e.Measurements(""), 2)
}
