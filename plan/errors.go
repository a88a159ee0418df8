package plan

import "errors"

var (
	ErrInvalidDistance = errors.New("real-world distance must be a number greater than zero")
	ErrNoPendingPick   = errors.New("two points must be picked before committing")
	ErrZeroLength      = errors.New("picked points must not coincide")
	ErrInvalidPoint    = errors.New("picked points must be finite plan coordinates")
	ErrCaptureState    = errors.New("point capture is not armed")
	ErrEmptyName       = errors.New("name is required")
	ErrUnknownUnit     = errors.New("unknown unit")
	ErrNoActiveFloor   = errors.New("no active floor")
	ErrFloorNotFound   = errors.New("floor not found")
	ErrRoomNotFound    = errors.New("room not found")
	ErrPanoNotFound    = errors.New("pano not found")
	ErrFloorMismatch   = errors.New("room is on a different floor")
	ErrInvalidPolygon  = errors.New("room polygon needs at least three points")
	ErrDuplicateOrder  = errors.New("floor order index already in use")
	ErrImportTooShort  = errors.New("import needs two header rows and at least one data row")
)
