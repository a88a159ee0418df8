package plan

import (
	"fmt"
	"strings"
)

// RoomPatch is a merge patch for UpdateRoom. Nil fields are left alone.
// Properties are merged key by key; an empty value removes the key.
type RoomPatch struct {
	Name       *string           `json:"name,omitempty"`
	Polygon    []Point           `json:"polygon,omitempty"`
	Type       *string           `json:"type,omitempty"`
	Capacity   *int              `json:"capacity,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// AddRoom creates a room. An empty FloorID means the active floor.
func (e *Engine) AddRoom(r Room) (Room, error) {
	r, err := e.prepareRoom(r)
	if err != nil {
		return Room{}, e.reject(err)
	}
	e.st.rooms = append(e.st.rooms, r)
	e.changed(EventRoomAdded, r.FloorID, r.ID)
	return cloneRoom(r), nil
}

func (e *Engine) prepareRoom(r Room) (Room, error) {
	if r.FloorID == "" {
		if e.st.activeFloorID == "" {
			return Room{}, ErrNoActiveFloor
		}
		r.FloorID = e.st.activeFloorID
	}
	if indexOfFloor(e.st.floors, r.FloorID) < 0 {
		return Room{}, fmt.Errorf("%w: %s", ErrFloorNotFound, r.FloorID)
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return Room{}, fmt.Errorf("room %w", ErrEmptyName)
	}
	if len(r.Polygon) > 0 && !ValidPolygon(r.Polygon) {
		return Room{}, ErrInvalidPolygon
	}
	if r.ID == "" {
		r.ID = e.newID()
	}
	return cloneRoom(r), nil
}

// UpdateRoom merges patch into the room. Unknown ids are ignored.
func (e *Engine) UpdateRoom(id string, patch RoomPatch) error {
	i := e.indexOfRoom(id)
	if i < 0 {
		return nil
	}
	var name string
	if patch.Name != nil {
		name = strings.TrimSpace(*patch.Name)
		if name == "" {
			return e.reject(fmt.Errorf("room %w", ErrEmptyName))
		}
	}
	if patch.Polygon != nil && !ValidPolygon(patch.Polygon) {
		return e.reject(ErrInvalidPolygon)
	}

	r := &e.st.rooms[i]
	if patch.Name != nil {
		r.Name = name
	}
	if patch.Polygon != nil {
		r.Polygon = append([]Point(nil), patch.Polygon...)
	}
	if patch.Type != nil {
		r.Type = *patch.Type
	}
	if patch.Capacity != nil {
		r.Capacity = *patch.Capacity
	}
	for k, v := range patch.Properties {
		if v == "" {
			delete(r.Properties, k)
			continue
		}
		if r.Properties == nil {
			r.Properties = make(map[string]string)
		}
		r.Properties[k] = v
	}
	e.changed(EventRoomUpdated, r.FloorID, id)
	return nil
}

// DeleteRoom removes a room, unassigns every pano that pointed at it, drops
// the room tag from its measurements and clears the room selection if it
// was selected. Unknown ids are ignored.
func (e *Engine) DeleteRoom(id string) {
	i := e.indexOfRoom(id)
	if i < 0 {
		return
	}
	floorID := e.st.rooms[i].FloorID
	e.st.rooms = append(e.st.rooms[:i], e.st.rooms[i+1:]...)
	e.detachRoom(id)
	e.changed(EventRoomDeleted, floorID, id)
}

// detachRoom clears every reference to a removed room.
func (e *Engine) detachRoom(id string) {
	for j := range e.st.panos {
		if e.st.panos[j].Room.Is(id) {
			e.st.panos[j].Room = Unassigned()
		}
	}
	for j := range e.st.measurements {
		if e.st.measurements[j].RoomID == id {
			e.st.measurements[j].RoomID = ""
		}
	}
	if e.st.selectedRoomID == id {
		e.st.selectedRoomID = ""
	}
}

// pruneFloorless drops the rooms and measurements of floors that no longer
// exist. Panos stay, unassigned from the dropped rooms.
func (e *Engine) pruneFloorless() {
	rooms := make([]Room, 0, len(e.st.rooms))
	for _, r := range e.st.rooms {
		if indexOfFloor(e.st.floors, r.FloorID) < 0 {
			e.detachRoom(r.ID)
			continue
		}
		rooms = append(rooms, r)
	}
	e.st.rooms = rooms

	measurements := make([]Measurement, 0, len(e.st.measurements))
	for _, m := range e.st.measurements {
		if indexOfFloor(e.st.floors, m.FloorID) >= 0 {
			measurements = append(measurements, m)
		}
	}
	e.st.measurements = measurements
}

// Room returns a copy of the room with id, or nil.
func (e *Engine) Room(id string) *Room {
	i := e.indexOfRoom(id)
	if i < 0 {
		return nil
	}
	r := cloneRoom(e.st.rooms[i])
	return &r
}

// Rooms returns every room in creation order.
func (e *Engine) Rooms() []Room {
	return e.FloorRooms("")
}

// FloorRooms returns the rooms on floorID, or all rooms for "".
func (e *Engine) FloorRooms(floorID string) []Room {
	out := make([]Room, 0, len(e.st.rooms))
	for _, r := range e.st.rooms {
		if floorID == "" || r.FloorID == floorID {
			out = append(out, cloneRoom(r))
		}
	}
	return out
}

// RoomAt returns the room on floorID whose polygon contains pt. The most
// recently drawn room wins when polygons overlap.
func (e *Engine) RoomAt(floorID string, pt Point) *Room {
	for i := len(e.st.rooms) - 1; i >= 0; i-- {
		r := e.st.rooms[i]
		if r.FloorID == floorID && PolygonContains(r.Polygon, pt) {
			c := cloneRoom(r)
			return &c
		}
	}
	return nil
}

// RoomArea returns the room's area in square units using the current floor
// calibration.
func (e *Engine) RoomArea(id string, u Unit) (float64, error) {
	r := e.Room(id)
	if r == nil {
		return 0, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}
	ppm := e.Floor(r.FloorID).PixelsPerMeter()
	sideMeters := PixelsToMeters(1, ppm)
	sqMeters := PolygonArea(r.Polygon) * sideMeters * sideMeters
	side := FromMeters(1, u)
	return sqMeters * side * side, nil
}

// RoomCentroid returns the label anchor for a room.
func (e *Engine) RoomCentroid(id string) (Point, bool) {
	r := e.Room(id)
	if r == nil || len(r.Polygon) == 0 {
		return Point{}, false
	}
	return PolygonCentroid(r.Polygon), true
}

func (e *Engine) indexOfRoom(id string) int {
	if id == "" {
		return -1
	}
	for i := range e.st.rooms {
		if e.st.rooms[i].ID == id {
			return i
		}
	}
	return -1
}

// SelectRoom focuses a room. Selection is view state and does not mark the
// engine as changed.
func (e *Engine) SelectRoom(id string) {
	e.st.selectedRoomID = id
}

// SelectedRoom resolves the room selection, returning nil when nothing is
// selected or the selection is stale.
func (e *Engine) SelectedRoom() *Room {
	return e.Room(e.st.selectedRoomID)
}
