package plan

import (
	"fmt"
	"sort"
	"strings"
)

// FloorPatch is a merge patch for UpdateFloor. Nil fields are left alone.
type FloorPatch struct {
	Name       *string `json:"name,omitempty"`
	OrderIndex *int    `json:"orderIndex,omitempty"`
	ImageURL   *string `json:"imageUrl,omitempty"`
	Width      *int    `json:"width,omitempty"`
	Height     *int    `json:"height,omitempty"`
}

// SetBuilding replaces the session's building. Missing id and creation time
// are filled in.
func (e *Engine) SetBuilding(b Building) Building {
	if b.ID == "" {
		b.ID = e.newID()
	}
	now := e.now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	b.Name = strings.TrimSpace(b.Name)
	e.st.building = &b
	e.changed(EventBuildingSet, "", b.ID)
	return b
}

// Building returns a copy of the current building, or nil.
func (e *Engine) Building() *Building {
	if e.st.building == nil {
		return nil
	}
	b := *e.st.building
	return &b
}

func (e *Engine) touchBuilding() {
	if e.st.building != nil {
		e.st.building.UpdatedAt = e.now()
	}
}

// SetFloors replaces all floors. The active floor is kept only if it is
// still present. Rooms and measurements of floors that are gone are dropped.
func (e *Engine) SetFloors(floors []Floor) {
	next := make([]Floor, 0, len(floors))
	for _, f := range floors {
		next = append(next, e.prepareFloor(f))
	}
	sortFloors(next)
	e.st.floors = next
	if indexOfFloor(next, e.st.activeFloorID) < 0 {
		e.st.activeFloorID = ""
		e.cancelCaptures()
	}
	e.pruneFloorless()
	e.touchBuilding()
	e.changed(EventFloorsSet, e.st.activeFloorID, "")
}

// AddFloor inserts f and keeps floors sorted by OrderIndex. The order index
// must not already be used; the engine never renumbers floors.
func (e *Engine) AddFloor(f Floor) (Floor, error) {
	if e.floorWithOrder(f.OrderIndex, "") >= 0 {
		return Floor{}, e.reject(fmt.Errorf("%w: %d", ErrDuplicateOrder, f.OrderIndex))
	}
	f = e.prepareFloor(f)
	e.st.floors = append(e.st.floors, f)
	sortFloors(e.st.floors)
	e.touchBuilding()
	e.changed(EventFloorAdded, f.ID, f.ID)
	return cloneFloor(f), nil
}

func (e *Engine) prepareFloor(f Floor) Floor {
	if f.ID == "" {
		f.ID = e.newID()
	}
	if f.BuildingID == "" && e.st.building != nil {
		f.BuildingID = e.st.building.ID
	}
	return cloneFloor(f)
}

// UpdateFloor merges patch into the floor. Unknown ids are ignored.
func (e *Engine) UpdateFloor(id string, patch FloorPatch) error {
	i := indexOfFloor(e.st.floors, id)
	if i < 0 {
		return nil
	}
	if patch.OrderIndex != nil && e.floorWithOrder(*patch.OrderIndex, id) >= 0 {
		return e.reject(fmt.Errorf("%w: %d", ErrDuplicateOrder, *patch.OrderIndex))
	}

	f := &e.st.floors[i]
	if patch.Name != nil {
		f.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.ImageURL != nil {
		f.ImageURL = *patch.ImageURL
	}
	if patch.Width != nil {
		f.Width = *patch.Width
	}
	if patch.Height != nil {
		f.Height = *patch.Height
	}
	if patch.OrderIndex != nil {
		f.OrderIndex = *patch.OrderIndex
		sortFloors(e.st.floors)
	}
	e.touchBuilding()
	e.changed(EventFloorUpdated, id, id)
	return nil
}

// DeleteFloor removes a floor together with its rooms and measurements.
// Panos assigned to those rooms become unassigned. If it was active no floor
// is active afterwards.
func (e *Engine) DeleteFloor(id string) {
	i := indexOfFloor(e.st.floors, id)
	if i < 0 {
		return
	}
	e.st.floors = append(e.st.floors[:i], e.st.floors[i+1:]...)
	if e.st.activeFloorID == id {
		e.st.activeFloorID = ""
		e.cancelCaptures()
	}
	e.pruneFloorless()
	e.touchBuilding()
	e.changed(EventFloorDeleted, id, id)
}

// SetActiveFloor selects the floor being annotated. An empty id clears the
// selection; unknown ids are ignored. Switching floors abandons any
// in-progress point capture.
func (e *Engine) SetActiveFloor(id string) {
	if id != "" && indexOfFloor(e.st.floors, id) < 0 {
		return
	}
	if id == e.st.activeFloorID {
		return
	}
	e.st.activeFloorID = id
	e.cancelCaptures()
	e.changed(EventFloorActivated, id, id)
}

// ActiveFloor returns a copy of the active floor, or nil.
func (e *Engine) ActiveFloor() *Floor {
	return e.Floor(e.st.activeFloorID)
}

// ActiveFloorID returns the active floor id, or "".
func (e *Engine) ActiveFloorID() string {
	return e.st.activeFloorID
}

// Floor returns a copy of the floor with id, or nil.
func (e *Engine) Floor(id string) *Floor {
	i := indexOfFloor(e.st.floors, id)
	if i < 0 {
		return nil
	}
	f := cloneFloor(e.st.floors[i])
	return &f
}

// FloorByOrder returns the floor at orderIndex, or nil.
func (e *Engine) FloorByOrder(orderIndex int) *Floor {
	i := e.floorWithOrder(orderIndex, "")
	if i < 0 {
		return nil
	}
	f := cloneFloor(e.st.floors[i])
	return &f
}

// Floors returns all floors in ascending order.
func (e *Engine) Floors() []Floor {
	out := make([]Floor, len(e.st.floors))
	for i := range e.st.floors {
		out[i] = cloneFloor(e.st.floors[i])
	}
	return out
}

func (e *Engine) floorWithOrder(orderIndex int, exceptID string) int {
	for i := range e.st.floors {
		if e.st.floors[i].OrderIndex == orderIndex && e.st.floors[i].ID != exceptID {
			return i
		}
	}
	return -1
}

func indexOfFloor(floors []Floor, id string) int {
	if id == "" {
		return -1
	}
	for i := range floors {
		if floors[i].ID == id {
			return i
		}
	}
	return -1
}

func sortFloors(floors []Floor) {
	sort.SliceStable(floors, func(i, j int) bool {
		return floors[i].OrderIndex < floors[j].OrderIndex
	})
}
