package plan

import "fmt"

// CaptureState is the phase of a two-click point-pair capture.
type CaptureState int

const (
	CaptureIdle CaptureState = iota
	CaptureArmed
	CaptureAwaitingSecond
	CaptureReady
)

func (s CaptureState) String() string {
	switch s {
	case CaptureIdle:
		return "idle"
	case CaptureArmed:
		return "armed"
	case CaptureAwaitingSecond:
		return "awaiting-second"
	case CaptureReady:
		return "ready"
	}
	return fmt.Sprintf("CaptureState(%d)", int(s))
}

// MarshalText makes the state readable in JSON responses.
func (s CaptureState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PendingPair is a picked segment that has not been committed yet.
type PendingPair struct {
	P1       Point   `json:"p1"`
	P2       Point   `json:"p2"`
	PxLength float64 `json:"pxLength"`
}

// PointPair captures two clicked points and then commits them together with
// operator input of type In. Validation and commit failures leave the
// captured points in place so the operator can correct the input and retry.
type PointPair[In any] struct {
	state    CaptureState
	p1, p2   Point
	validate func(PendingPair, In) error
	commit   func(PendingPair, In) error
}

// NewPointPair builds a capture. validate may be nil.
func NewPointPair[In any](validate, commit func(PendingPair, In) error) *PointPair[In] {
	return &PointPair[In]{validate: validate, commit: commit}
}

// State returns the current phase.
func (c *PointPair[In]) State() CaptureState { return c.state }

// Arm starts a fresh capture, discarding any earlier points.
func (c *PointPair[In]) Arm() {
	c.state = CaptureArmed
	c.p1, c.p2 = Point{}, Point{}
}

// Pick records a clicked point. It returns false when the capture is not
// waiting for a point; clicks beyond the second are ignored.
func (c *PointPair[In]) Pick(p Point) bool {
	switch c.state {
	case CaptureArmed:
		c.p1 = p
		c.state = CaptureAwaitingSecond
		return true
	case CaptureAwaitingSecond:
		c.p2 = p
		c.state = CaptureReady
		return true
	}
	return false
}

// Pending returns the picked segment once both points are present.
func (c *PointPair[In]) Pending() (PendingPair, bool) {
	if c.state != CaptureReady {
		return PendingPair{}, false
	}
	return PendingPair{P1: c.p1, P2: c.p2, PxLength: Distance(c.p1, c.p2)}, true
}

// Cancel drops back to idle without side effects.
func (c *PointPair[In]) Cancel() {
	c.state = CaptureIdle
	c.p1, c.p2 = Point{}, Point{}
}

// Commit validates in against the pending segment and applies it. On
// success the capture returns to idle.
func (c *PointPair[In]) Commit(in In) error {
	pending, ok := c.Pending()
	if !ok {
		return ErrNoPendingPick
	}
	if c.validate != nil {
		if err := c.validate(pending, in); err != nil {
			return err
		}
	}
	if err := c.commit(pending, in); err != nil {
		return err
	}
	c.Cancel()
	return nil
}
