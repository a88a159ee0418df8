package plan

import (
	"encoding/json"
	"time"
)

// Point is a position on a floor plan image, in image pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Building is the root of an annotation session.
type Building struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Calibration maps plan pixels to real-world meters for one floor.
// RealDistance and Unit record what the operator entered; PixelsPerMeter is
// the authoritative scale.
type Calibration struct {
	P1             Point   `json:"p1"`
	P2             Point   `json:"p2"`
	PxLength       float64 `json:"pxLength"`
	PixelsPerMeter float64 `json:"pixelsPerMeter"`
	RealDistance   float64 `json:"realDistance,omitempty"`
	Unit           Unit    `json:"unit,omitempty"`
}

// Floor is one level of a building with its plan image.
type Floor struct {
	ID          string       `json:"id"`
	BuildingID  string       `json:"buildingId"`
	Name        string       `json:"name"`
	OrderIndex  int          `json:"orderIndex"`
	ImageURL    string       `json:"imageUrl,omitempty"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Calibration *Calibration `json:"calibration,omitempty"`
}

// PixelsPerMeter returns the floor scale, or 1 when the floor has never been
// calibrated so that real units degrade to raw pixel counts.
func (f *Floor) PixelsPerMeter() float64 {
	if f == nil || f.Calibration == nil || f.Calibration.PixelsPerMeter <= 0 {
		return 1
	}
	return f.Calibration.PixelsPerMeter
}

// Room is a named polygon drawn on a floor. Polygon is empty for rooms that
// were imported but not drawn yet; otherwise it has at least three points.
type Room struct {
	ID         string            `json:"id"`
	FloorID    string            `json:"floorId"`
	Name       string            `json:"name"`
	Polygon    []Point           `json:"polygon"`
	Type       string            `json:"type,omitempty"`
	Capacity   int               `json:"capacity,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Assignment says which room a pano belongs to. The zero value is unassigned.
type Assignment struct {
	roomID string
}

// Unassigned returns the empty assignment.
func Unassigned() Assignment { return Assignment{} }

// AssignedTo returns an assignment to roomID. An empty roomID is unassigned.
func AssignedTo(roomID string) Assignment { return Assignment{roomID: roomID} }

// RoomID returns the assigned room and whether the pano is assigned at all.
func (a Assignment) RoomID() (string, bool) {
	return a.roomID, a.roomID != ""
}

// IsAssigned reports whether the assignment points at a room.
func (a Assignment) IsAssigned() bool { return a.roomID != "" }

// Is reports whether the assignment points at roomID.
func (a Assignment) Is(roomID string) bool {
	return roomID != "" && a.roomID == roomID
}

// MarshalJSON encodes an unassigned pano as null.
func (a Assignment) MarshalJSON() ([]byte, error) {
	if a.roomID == "" {
		return []byte("null"), nil
	}
	return json.Marshal(a.roomID)
}

// UnmarshalJSON accepts null, "" or a room id.
func (a *Assignment) UnmarshalJSON(data []byte) error {
	var id *string
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	if id == nil {
		a.roomID = ""
		return nil
	}
	a.roomID = *id
	return nil
}

// Pano is a 360° image node.
type Pano struct {
	ID         string            `json:"id"`
	BuildingID string            `json:"buildingId"`
	FloorID    string            `json:"floorId,omitempty"`
	NodeID     string            `json:"nodeId"`
	Title      string            `json:"title"`
	ImageURL   string            `json:"imageUrl,omitempty"`
	CapturedAt time.Time         `json:"capturedAt"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Room       Assignment        `json:"roomId"`
}

// Measurement is a named pixel distance on a floor. PxLength is fixed at
// creation; real-world lengths are always derived from the floor calibration.
type Measurement struct {
	ID        string    `json:"id"`
	FloorID   string    `json:"floorId"`
	RoomID    string    `json:"roomId,omitempty"`
	Name      string    `json:"name"`
	P1        Point     `json:"p1"`
	P2        Point     `json:"p2"`
	PxLength  float64   `json:"pxLength"`
	Unit      Unit      `json:"unit"`
	CreatedAt time.Time `json:"createdAt"`
}

// Snapshot is the full serialisable engine state exchanged with the
// persistence collaborator.
type Snapshot struct {
	Building      *Building     `json:"building,omitempty"`
	Floors        []Floor       `json:"floors"`
	Rooms         []Room        `json:"rooms"`
	Panos         []Pano        `json:"panos"`
	Measurements  []Measurement `json:"measurements"`
	ActiveFloorID string        `json:"activeFloorId,omitempty"`
	SavedAt       time.Time     `json:"savedAt,omitempty"`
}
