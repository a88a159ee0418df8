package plan

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ImportTable is a staged spreadsheet: a row of human labels, a row of field
// codes, and the non-blank data rows below them.
type ImportTable struct {
	Labels []string   `json:"labels"`
	Codes  []string   `json:"codes"`
	Rows   [][]string `json:"rows"`
	Errors []error    `json:"-"`
}

// OK reports whether the table can be handed to the engine.
func (t ImportTable) OK() bool {
	return len(t.Errors) == 0
}

// Err joins the staging errors, or returns nil.
func (t ImportTable) Err() error {
	return errors.Join(t.Errors...)
}

// ParseCSV stages CSV bytes. Read errors and undersized input are recorded
// in the table's Errors rather than returned.
func ParseCSV(r io.Reader) ImportTable {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return ImportTable{Errors: []error{fmt.Errorf("parsing CSV: %w", err)}}
	}
	return NewImportTable(records)
}

// NewImportTable stages already-split rows. Rows whose cells are all blank
// are dropped before the header and size checks.
func NewImportTable(records [][]string) ImportTable {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		if !blankRow(rec) {
			rows = append(rows, rec)
		}
	}
	if len(rows) < 3 {
		return ImportTable{Errors: []error{fmt.Errorf("%w: got %d rows", ErrImportTooShort, len(rows))}}
	}
	return ImportTable{
		Labels: rows[0],
		Codes:  rows[1],
		Rows:   rows[2:],
	}
}

func blankRow(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Record maps each data row cell to its field code. Columns without a code
// fall back to their label.
func (t ImportTable) Record(i int) map[string]string {
	rec := make(map[string]string)
	for col, cell := range t.Rows[i] {
		key := ""
		if col < len(t.Codes) {
			key = strings.ToLower(strings.TrimSpace(t.Codes[col]))
		}
		if key == "" && col < len(t.Labels) {
			key = strings.ToLower(strings.TrimSpace(t.Labels[col]))
		}
		if key == "" {
			key = fmt.Sprintf("col%d", col+1)
		}
		if v := strings.TrimSpace(cell); v != "" {
			rec[key] = v
		}
	}
	return rec
}

// ImportRooms creates one room per data row on floorID (the active floor
// when empty). A table carrying staging errors is rejected whole.
func (e *Engine) ImportRooms(floorID string, t ImportTable) ([]Room, error) {
	if !t.OK() {
		return nil, e.reject(t.Err())
	}
	if floorID == "" {
		floorID = e.st.activeFloorID
	}
	if floorID == "" {
		return nil, e.reject(ErrNoActiveFloor)
	}
	if indexOfFloor(e.st.floors, floorID) < 0 {
		return nil, e.reject(fmt.Errorf("%w: %s", ErrFloorNotFound, floorID))
	}

	rooms := make([]Room, 0, len(t.Rows))
	for i := range t.Rows {
		r, err := e.prepareRoom(roomFromRecord(floorID, t.Record(i), i))
		if err != nil {
			return nil, e.reject(fmt.Errorf("row %d: %w", i+3, err))
		}
		rooms = append(rooms, r)
	}
	e.st.rooms = append(e.st.rooms, rooms...)
	e.changed(EventRoomsImported, floorID, "")
	e.info("Imported %d rooms", len(rooms))

	out := make([]Room, len(rooms))
	for i := range rooms {
		out[i] = cloneRoom(rooms[i])
	}
	return out, nil
}

func roomFromRecord(floorID string, rec map[string]string, i int) Room {
	r := Room{FloorID: floorID, Properties: make(map[string]string)}
	for k, v := range rec {
		switch k {
		case "name", "room_name", "room":
			r.Name = v
		case "type", "room_type":
			r.Type = v
		case "capacity":
			if n, err := strconv.Atoi(v); err == nil {
				r.Capacity = n
			} else {
				r.Properties[k] = v
			}
		default:
			r.Properties[k] = v
		}
	}
	if r.Name == "" {
		r.Name = fmt.Sprintf("Room %d", i+1)
	}
	if len(r.Properties) == 0 {
		r.Properties = nil
	}
	return r
}
