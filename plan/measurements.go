package plan

import (
	"fmt"
	"strings"
)

// MeasurementInput names a picked segment. RoomID is optional; when empty
// the measurement is tagged with the room containing both endpoints, if any.
type MeasurementInput struct {
	Name   string `json:"name"`
	Unit   Unit   `json:"unit"`
	RoomID string `json:"roomId,omitempty"`
}

// ArmMeasurement starts picking a measurement on the active floor. Any
// calibration in progress is abandoned.
func (e *Engine) ArmMeasurement() error {
	if e.st.activeFloorID == "" {
		return e.reject(ErrNoActiveFloor)
	}
	e.calibration.Cancel()
	e.measuring.Arm()
	return nil
}

// CancelMeasurement discards the picked points.
func (e *Engine) CancelMeasurement() {
	e.measuring.Cancel()
}

// PendingMeasurement returns the picked segment once both points are in.
func (e *Engine) PendingMeasurement() (PendingPair, bool) {
	return e.measuring.Pending()
}

// CommitMeasurement appends a measurement for the pending segment.
func (e *Engine) CommitMeasurement(in MeasurementInput) (Measurement, error) {
	if err := e.measuring.Commit(in); err != nil {
		return Measurement{}, e.reject(err)
	}
	return e.st.measurements[len(e.st.measurements)-1], nil
}

func (e *Engine) validateMeasurement(p PendingPair, in MeasurementInput) error {
	if indexOfFloor(e.st.floors, e.st.activeFloorID) < 0 {
		return ErrNoActiveFloor
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("measurement %w", ErrEmptyName)
	}
	if in.Unit != "" && !in.Unit.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownUnit, in.Unit)
	}
	if in.RoomID != "" {
		ri := e.indexOfRoom(in.RoomID)
		if ri < 0 {
			return fmt.Errorf("%w: %s", ErrRoomNotFound, in.RoomID)
		}
		if e.st.rooms[ri].FloorID != e.st.activeFloorID {
			return fmt.Errorf("%w: room %s", ErrFloorMismatch, e.st.rooms[ri].Name)
		}
	}
	if !finiteLength(p.PxLength) {
		return ErrInvalidPoint
	}
	return nil
}

func (e *Engine) applyMeasurement(p PendingPair, in MeasurementInput) error {
	floorID := e.st.activeFloorID
	unit := in.Unit
	if unit == "" {
		unit = Meters
	}
	roomID := in.RoomID
	if roomID == "" {
		if r := e.RoomAt(floorID, p.P1); r != nil && PolygonContains(r.Polygon, p.P2) {
			roomID = r.ID
		}
	}
	m := Measurement{
		ID:        e.newID(),
		FloorID:   floorID,
		RoomID:    roomID,
		Name:      strings.TrimSpace(in.Name),
		P1:        p.P1,
		P2:        p.P2,
		PxLength:  p.PxLength,
		Unit:      unit,
		CreatedAt: e.now(),
	}
	e.st.measurements = append(e.st.measurements, m)
	e.changed(EventMeasurementAdded, floorID, m.ID)
	return nil
}

// DeleteMeasurement removes a measurement. Unknown ids are ignored.
func (e *Engine) DeleteMeasurement(id string) {
	for i := range e.st.measurements {
		if e.st.measurements[i].ID == id {
			floorID := e.st.measurements[i].FloorID
			e.st.measurements = append(e.st.measurements[:i], e.st.measurements[i+1:]...)
			e.changed(EventMeasurementDeleted, floorID, id)
			return
		}
	}
}

// Measurement returns the measurement with id, or nil.
func (e *Engine) Measurement(id string) *Measurement {
	for _, m := range e.st.measurements {
		if m.ID == id {
			return &m
		}
	}
	return nil
}

// Measurements returns the measurements on floorID, or all for "".
func (e *Engine) Measurements(floorID string) []Measurement {
	out := make([]Measurement, 0, len(e.st.measurements))
	for _, m := range e.st.measurements {
		if floorID == "" || m.FloorID == floorID {
			out = append(out, m)
		}
	}
	return out
}

// MeasurementLength converts a measurement to u using its floor's current
// calibration. An empty unit means the unit chosen when it was created.
func (e *Engine) MeasurementLength(id string, u Unit) (float64, bool) {
	m := e.Measurement(id)
	if m == nil {
		return 0, false
	}
	return e.lengthOf(*m, u), true
}

// DisplayLength formats a measurement in its own unit, e.g. "2.00 m".
func (e *Engine) DisplayLength(m Measurement) string {
	return FormatLength(e.lengthOf(m, m.Unit), displayUnit(m.Unit))
}

func (e *Engine) lengthOf(m Measurement, u Unit) float64 {
	meters := PixelsToMeters(m.PxLength, e.Floor(m.FloorID).PixelsPerMeter())
	return FromMeters(meters, displayUnit(firstUnit(u, m.Unit)))
}

func firstUnit(units ...Unit) Unit {
	for _, u := range units {
		if u != "" {
			return u
		}
	}
	return ""
}

func displayUnit(u Unit) Unit {
	if u == Feet {
		return Feet
	}
	return Meters
}
