package plan

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CalibrationInput is what the operator types after picking the reference
// segment. Distance stays text so that non-numeric input can be rejected the
// same way as out-of-range input.
type CalibrationInput struct {
	Distance string `json:"distance"`
	Unit     Unit   `json:"unit"`
}

// CaptureMode names which flow is consuming clicks.
type CaptureMode string

const (
	ModeNone      CaptureMode = ""
	ModeCalibrate CaptureMode = "calibrate"
	ModeMeasure   CaptureMode = "measure"
)

// CaptureStatus is the read model of the point-pair captures.
type CaptureStatus struct {
	Mode    CaptureMode  `json:"mode"`
	State   CaptureState `json:"state"`
	Pending *PendingPair `json:"pending,omitempty"`
}

// ArmCalibration starts picking the reference segment on the active floor.
// Any measurement in progress is abandoned.
func (e *Engine) ArmCalibration() error {
	if e.st.activeFloorID == "" {
		return e.reject(ErrNoActiveFloor)
	}
	e.measuring.Cancel()
	e.calibration.Arm()
	return nil
}

// CancelCalibration discards the picked points.
func (e *Engine) CancelCalibration() {
	e.calibration.Cancel()
}

// PendingCalibration returns the picked reference segment once both points are in.
func (e *Engine) PendingCalibration() (PendingPair, bool) {
	return e.calibration.Pending()
}

// CommitCalibration stores pixelsPerMeter for the active floor, replacing
// any earlier calibration. Rejected input leaves everything unchanged.
func (e *Engine) CommitCalibration(in CalibrationInput) (Calibration, error) {
	if err := e.calibration.Commit(in); err != nil {
		return Calibration{}, e.reject(err)
	}
	f := e.ActiveFloor()
	return *f.Calibration, nil
}

func (e *Engine) validateCalibration(p PendingPair, in CalibrationInput) error {
	if indexOfFloor(e.st.floors, e.st.activeFloorID) < 0 {
		return ErrNoActiveFloor
	}
	d, err := ParseDistance(in.Distance)
	if err != nil {
		return err
	}
	if in.Unit != "" && !in.Unit.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownUnit, in.Unit)
	}
	if !finiteLength(p.PxLength) {
		return ErrInvalidPoint
	}
	if p.PxLength <= 0 {
		return ErrZeroLength
	}
	unit := in.Unit
	if unit == "" {
		unit = Meters
	}
	if ppm := p.PxLength / ToMeters(d, unit); !finiteLength(ppm) || ppm <= 0 {
		return fmt.Errorf("%w: %q gives a scale of %g px/m", ErrInvalidDistance, in.Distance, ppm)
	}
	return nil
}

func (e *Engine) applyCalibration(p PendingPair, in CalibrationInput) error {
	i := indexOfFloor(e.st.floors, e.st.activeFloorID)
	if i < 0 {
		return ErrNoActiveFloor
	}
	d, err := ParseDistance(in.Distance)
	if err != nil {
		return err
	}
	unit := in.Unit
	if unit == "" {
		unit = Meters
	}
	meters := ToMeters(d, unit)
	f := &e.st.floors[i]
	f.Calibration = &Calibration{
		P1:             p.P1,
		P2:             p.P2,
		PxLength:       p.PxLength,
		PixelsPerMeter: p.PxLength / meters,
		RealDistance:   d,
		Unit:           unit,
	}
	e.touchBuilding()
	e.changed(EventFloorCalibrated, f.ID, f.ID)
	e.info("Scale set: %.2f px/m", f.Calibration.PixelsPerMeter)
	return nil
}

// ParseDistance parses a positive, finite real-world distance.
func ParseDistance(text string) (float64, error) {
	d, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDistance, text)
	}
	return d, nil
}

// Pick feeds a clicked plan point to whichever capture is waiting for one.
// It returns false when no capture consumed the point. NaN and infinite
// coordinates are never consumed.
func (e *Engine) Pick(p Point) bool {
	if !p.finite() {
		return false
	}
	if waiting(e.calibration.State()) {
		return e.calibration.Pick(p)
	}
	if waiting(e.measuring.State()) {
		return e.measuring.Pick(p)
	}
	return false
}

// Capture reports which capture is active and what it has picked so far.
func (e *Engine) Capture() CaptureStatus {
	switch {
	case e.calibration.State() != CaptureIdle:
		return captureStatus(ModeCalibrate, e.calibration.State(), e.calibration.Pending)
	case e.measuring.State() != CaptureIdle:
		return captureStatus(ModeMeasure, e.measuring.State(), e.measuring.Pending)
	}
	return CaptureStatus{Mode: ModeNone, State: CaptureIdle}
}

func captureStatus(mode CaptureMode, st CaptureState, pending func() (PendingPair, bool)) CaptureStatus {
	cs := CaptureStatus{Mode: mode, State: st}
	if p, ok := pending(); ok {
		cs.Pending = &p
	}
	return cs
}

func waiting(s CaptureState) bool {
	return s == CaptureArmed || s == CaptureAwaitingSecond
}

func (e *Engine) cancelCaptures() {
	e.calibration.Cancel()
	e.measuring.Cancel()
}
