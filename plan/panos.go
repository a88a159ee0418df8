package plan

import (
	"fmt"
	"strings"
)

// AddPanos registers panos produced by the upload step. Missing ids and
// building ids are filled in. A preset room assignment is kept only when
// AssignPanoToRoom would accept it.
func (e *Engine) AddPanos(panos ...Pano) []Pano {
	added := make([]Pano, 0, len(panos))
	for _, p := range panos {
		p = e.preparePano(p)
		e.st.panos = append(e.st.panos, p)
		added = append(added, clonePano(p))
	}
	if len(added) > 0 {
		e.changed(EventPanosAdded, e.st.activeFloorID, "")
	}
	return added
}

// SetPanos replaces every pano.
func (e *Engine) SetPanos(panos []Pano) {
	next := make([]Pano, 0, len(panos))
	for _, p := range panos {
		next = append(next, e.preparePano(p))
	}
	e.st.panos = next
	if e.indexOfPano(e.st.selectedPanoID) < 0 {
		e.st.selectedPanoID = ""
	}
	e.changed(EventPanosAdded, e.st.activeFloorID, "")
}

func (e *Engine) preparePano(p Pano) Pano {
	if p.ID == "" {
		p.ID = e.newID()
	}
	if p.BuildingID == "" && e.st.building != nil {
		p.BuildingID = e.st.building.ID
	}
	if p.CapturedAt.IsZero() {
		p.CapturedAt = e.now()
	}
	if id, ok := p.Room.RoomID(); ok && assignable(e.st.rooms, p, id) != nil {
		p.Room = Unassigned()
	}
	return clonePano(p)
}

// assignable checks that roomID exists in rooms and shares p's floor when p
// has one.
func assignable(rooms []Room, p Pano, roomID string) error {
	for _, r := range rooms {
		if r.ID != roomID || roomID == "" {
			continue
		}
		if p.FloorID != "" && p.FloorID != r.FloorID {
			return fmt.Errorf("%w: pano %s, room %s", ErrFloorMismatch, p.NodeID, r.Name)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
}

// AssignPanoToRoom assigns a pano to a room. The room must exist and, when
// the pano has a floor, be on that floor. Unknown panos are ignored.
func (e *Engine) AssignPanoToRoom(panoID, roomID string) error {
	pi := e.indexOfPano(panoID)
	if pi < 0 {
		return nil
	}
	p := &e.st.panos[pi]
	if err := assignable(e.st.rooms, *p, roomID); err != nil {
		return e.reject(err)
	}
	p.Room = AssignedTo(roomID)
	e.changed(EventPanoAssigned, e.st.rooms[e.indexOfRoom(roomID)].FloorID, panoID)
	return nil
}

// UnassignPano clears a pano's room. Unknown panos are ignored.
func (e *Engine) UnassignPano(panoID string) {
	i := e.indexOfPano(panoID)
	if i < 0 {
		return
	}
	e.st.panos[i].Room = Unassigned()
	e.changed(EventPanoUnassigned, e.st.panos[i].FloorID, panoID)
}

// Pano returns a copy of the pano with id, or nil.
func (e *Engine) Pano(id string) *Pano {
	i := e.indexOfPano(id)
	if i < 0 {
		return nil
	}
	p := clonePano(e.st.panos[i])
	return &p
}

// Panos returns every pano.
func (e *Engine) Panos() []Pano {
	return e.panosWhere(func(Pano) bool { return true })
}

// UnassignedPanos returns the panos that belong to no room.
func (e *Engine) UnassignedPanos() []Pano {
	return e.panosWhere(func(p Pano) bool { return !p.Room.IsAssigned() })
}

// RoomPanos returns the panos assigned to roomID.
func (e *Engine) RoomPanos(roomID string) []Pano {
	return e.panosWhere(func(p Pano) bool { return p.Room.Is(roomID) })
}

// PanoFilter matches panos whose title or node id contains query, ignoring
// case. An empty query matches everything.
func PanoFilter(query string) func(Pano) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	return func(p Pano) bool {
		if q == "" {
			return true
		}
		return strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.NodeID), q)
	}
}

// FilterPanos applies PanoFilter to the unassigned panos when
// unassignedOnly is set, and to all panos otherwise.
func (e *Engine) FilterPanos(query string, unassignedOnly bool) []Pano {
	match := PanoFilter(query)
	return e.panosWhere(func(p Pano) bool {
		if unassignedOnly && p.Room.IsAssigned() {
			return false
		}
		return match(p)
	})
}

func (e *Engine) panosWhere(keep func(Pano) bool) []Pano {
	out := make([]Pano, 0)
	for _, p := range e.st.panos {
		if keep(p) {
			out = append(out, clonePano(p))
		}
	}
	return out
}

func (e *Engine) indexOfPano(id string) int {
	if id == "" {
		return -1
	}
	for i := range e.st.panos {
		if e.st.panos[i].ID == id {
			return i
		}
	}
	return -1
}

// SelectPano focuses a pano. It is independent of the room selection.
func (e *Engine) SelectPano(id string) {
	e.st.selectedPanoID = id
}

// SelectedPano resolves the pano selection, returning nil when stale.
func (e *Engine) SelectedPano() *Pano {
	return e.Pano(e.st.selectedPanoID)
}
