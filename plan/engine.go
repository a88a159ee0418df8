// Package plan is the floor plan annotation state engine: buildings, floors,
// rooms, panos, scale calibration and measurements, plus the collaborators
// that feed it (CSV import staging, snapshot stores, change publishing).
//
// The engine is single-threaded. Callers that share it between goroutines
// must serialize access themselves.
package plan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind names a committed state transition.
type EventKind string

const (
	EventBuildingSet        EventKind = "building.set"
	EventFloorsSet          EventKind = "floors.set"
	EventFloorAdded         EventKind = "floor.added"
	EventFloorUpdated       EventKind = "floor.updated"
	EventFloorDeleted       EventKind = "floor.deleted"
	EventFloorActivated     EventKind = "floor.activated"
	EventFloorCalibrated    EventKind = "floor.calibrated"
	EventRoomAdded          EventKind = "room.added"
	EventRoomUpdated        EventKind = "room.updated"
	EventRoomDeleted        EventKind = "room.deleted"
	EventRoomsImported      EventKind = "rooms.imported"
	EventPanosAdded         EventKind = "panos.added"
	EventPanoAssigned       EventKind = "pano.assigned"
	EventPanoUnassigned     EventKind = "pano.unassigned"
	EventMeasurementAdded   EventKind = "measurement.added"
	EventMeasurementDeleted EventKind = "measurement.deleted"
	EventLoaded             EventKind = "snapshot.loaded"
	EventSaved              EventKind = "snapshot.saved"
)

// Event describes one committed transition.
type Event struct {
	Kind       EventKind `json:"kind"`
	BuildingID string    `json:"buildingId,omitempty"`
	FloorID    string    `json:"floorId,omitempty"`
	ID         string    `json:"id,omitempty"`
	Time       time.Time `json:"time"`
}

// state is everything the engine persists, plus the selection.
type state struct {
	building      *Building
	floors        []Floor
	rooms         []Room
	panos         []Pano
	measurements  []Measurement
	activeFloorID string

	selectedRoomID string
	selectedPanoID string
}

// Engine owns the authoritative annotation state and its transition rules.
type Engine struct {
	st      state
	unsaved bool

	calibration *PointPair[CalibrationInput]
	measuring   *PointPair[MeasurementInput]

	now       func() time.Time
	newID     func() string
	notifier  Notifier
	listeners []func(Event)
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator overrides the uuid-based id generator.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		e.newID = gen
	}
}

// WithNotifier sets where validation rejections are reported.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// NewEngine creates an empty engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
		notifier: LogNotifier{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.calibration = NewPointPair(e.validateCalibration, e.applyCalibration)
	e.measuring = NewPointPair(e.validateMeasurement, e.applyMeasurement)
	return e
}

// OnChange registers fn to be called after every committed transition.
func (e *Engine) OnChange(fn func(Event)) {
	e.listeners = append(e.listeners, fn)
}

// UnsavedChanges reports whether state changed since the last load or save.
func (e *Engine) UnsavedChanges() bool {
	return e.unsaved
}

// changed marks the state dirty and notifies listeners.
func (e *Engine) changed(kind EventKind, floorID, id string) {
	e.unsaved = true
	e.emit(kind, floorID, id)
}

func (e *Engine) emit(kind EventKind, floorID, id string) {
	ev := Event{Kind: kind, FloorID: floorID, ID: id, Time: e.now()}
	if e.st.building != nil {
		ev.BuildingID = e.st.building.ID
	}
	for _, fn := range e.listeners {
		fn(ev)
	}
}

// reject reports a validation failure to the operator and returns it.
func (e *Engine) reject(err error) error {
	if e.notifier != nil {
		e.notifier.Notify(Notice{Level: LevelError, Message: err.Error(), Time: e.now()})
	}
	return err
}

func (e *Engine) info(format string, args ...any) {
	if e.notifier != nil {
		e.notifier.Notify(Notice{Level: LevelInfo, Message: fmt.Sprintf(format, args...), Time: e.now()})
	}
}

// Snapshot returns a deep copy of the persisted state.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Floors:        make([]Floor, len(e.st.floors)),
		Rooms:         make([]Room, len(e.st.rooms)),
		Panos:         make([]Pano, len(e.st.panos)),
		Measurements:  make([]Measurement, len(e.st.measurements)),
		ActiveFloorID: e.st.activeFloorID,
	}
	if e.st.building != nil {
		b := *e.st.building
		s.Building = &b
	}
	for i := range e.st.floors {
		s.Floors[i] = cloneFloor(e.st.floors[i])
	}
	for i := range e.st.rooms {
		s.Rooms[i] = cloneRoom(e.st.rooms[i])
	}
	for i := range e.st.panos {
		s.Panos[i] = clonePano(e.st.panos[i])
	}
	copy(s.Measurements, e.st.measurements)
	return s
}

// Load replaces the whole state with snap and clears the unsaved flag.
// Selection and any in-progress point capture are reset.
func (e *Engine) Load(snap Snapshot) {
	var next state
	if snap.Building != nil {
		b := *snap.Building
		next.building = &b
	}
	for _, f := range snap.Floors {
		next.floors = append(next.floors, cloneFloor(f))
	}
	sortFloors(next.floors)
	for _, r := range snap.Rooms {
		next.rooms = append(next.rooms, cloneRoom(r))
	}
	for _, p := range snap.Panos {
		p = clonePano(p)
		if id, ok := p.Room.RoomID(); ok && assignable(next.rooms, p, id) != nil {
			p.Room = Unassigned()
		}
		next.panos = append(next.panos, p)
	}
	next.measurements = append(next.measurements, snap.Measurements...)
	if snap.ActiveFloorID != "" && indexOfFloor(next.floors, snap.ActiveFloorID) >= 0 {
		next.activeFloorID = snap.ActiveFloorID
	}

	e.st = next
	e.calibration.Cancel()
	e.measuring.Cancel()
	e.unsaved = false
	e.emit(EventLoaded, next.activeFloorID, "")
}

// Store is the persistence collaborator.
type Store interface {
	// Load returns the stored snapshot, or nil when nothing was saved yet.
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// LoadFrom seeds the engine from store. It returns false when the store was empty.
func (e *Engine) LoadFrom(ctx context.Context, store Store) (bool, error) {
	snap, err := store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("loading snapshot: %w", err)
	}
	if snap == nil {
		return false, nil
	}
	e.Load(*snap)
	return true, nil
}

// Save hands the current snapshot to store and clears the unsaved flag on success.
func (e *Engine) Save(ctx context.Context, store Store) error {
	snap := e.Snapshot()
	snap.SavedAt = e.now()
	if err := store.Save(ctx, snap); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	e.unsaved = false
	e.emit(EventSaved, e.st.activeFloorID, "")
	return nil
}

func cloneFloor(f Floor) Floor {
	if f.Calibration != nil {
		c := *f.Calibration
		f.Calibration = &c
	}
	return f
}

func cloneRoom(r Room) Room {
	if r.Polygon != nil {
		r.Polygon = append([]Point(nil), r.Polygon...)
	}
	r.Properties = cloneStrings(r.Properties)
	return r
}

func clonePano(p Pano) Pano {
	p.Metadata = cloneStrings(p.Metadata)
	return p
}

func cloneStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
