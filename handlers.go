package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/kwv/plannotate/plan"
)

const maxImportBytes = 10 << 20

// stateView is the read model served by /api/state.
type stateView struct {
	plan.Snapshot
	UnsavedChanges bool               `json:"unsavedChanges"`
	SelectedRoomID string             `json:"selectedRoomId,omitempty"`
	SelectedPanoID string             `json:"selectedPanoId,omitempty"`
	Capture        plan.CaptureStatus `json:"capture"`
}

// measurementView adds the derived length to a measurement.
type measurementView struct {
	plan.Measurement
	Length  float64   `json:"length"`
	In      plan.Unit `json:"in"`
	Display string    `json:"display"`
}

type selectionRequest struct {
	RoomID *string `json:"roomId"`
	PanoID *string `json:"panoId"`
}

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(app *App) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		status := struct {
			Status         string    `json:"status"`
			Timestamp      time.Time `json:"timestamp"`
			UnsavedChanges bool      `json:"unsavedChanges"`
		}{Status: "ok", Timestamp: time.Now()}
		_ = app.withEngine(func(e *plan.Engine) error {
			status.UnsavedChanges = e.UnsavedChanges()
			return nil
		})
		writeJSON(w, http.StatusOK, status)
	})

	mux.HandleFunc("GET /api/state", func(w http.ResponseWriter, r *http.Request) {
		var view stateView
		_ = app.withEngine(func(e *plan.Engine) error {
			view = stateView{
				Snapshot:       e.Snapshot(),
				UnsavedChanges: e.UnsavedChanges(),
				Capture:        e.Capture(),
			}
			if room := e.SelectedRoom(); room != nil {
				view.SelectedRoomID = room.ID
			}
			if pano := e.SelectedPano(); pano != nil {
				view.SelectedPanoID = pano.ID
			}
			return nil
		})
		writeJSON(w, http.StatusOK, view)
	})

	// Building and floors

	mux.HandleFunc("PUT /api/building", func(w http.ResponseWriter, r *http.Request) {
		var b plan.Building
		if !decodeJSON(w, r, &b) {
			return
		}
		_ = app.withEngine(func(e *plan.Engine) error {
			b = e.SetBuilding(b)
			return nil
		})
		writeJSON(w, http.StatusOK, b)
	})

	mux.HandleFunc("GET /api/floors", func(w http.ResponseWriter, r *http.Request) {
		var floors []plan.Floor
		_ = app.withEngine(func(e *plan.Engine) error {
			floors = e.Floors()
			return nil
		})
		writeJSON(w, http.StatusOK, floors)
	})

	mux.HandleFunc("PUT /api/floors", func(w http.ResponseWriter, r *http.Request) {
		var floors []plan.Floor
		if !decodeJSON(w, r, &floors) {
			return
		}
		_ = app.withEngine(func(e *plan.Engine) error {
			e.SetFloors(floors)
			floors = e.Floors()
			return nil
		})
		writeJSON(w, http.StatusOK, floors)
	})

	mux.HandleFunc("POST /api/floors", func(w http.ResponseWriter, r *http.Request) {
		var f plan.Floor
		if !decodeJSON(w, r, &f) {
			return
		}
		err := app.withEngine(func(e *plan.Engine) error {
			var err error
			f, err = e.AddFloor(f)
			return err
		})
		respond(w, http.StatusCreated, f, err)
	})

	mux.HandleFunc("GET /api/floors/by-order/{index}", func(w http.ResponseWriter, r *http.Request) {
		idx, err := strconv.Atoi(r.PathValue("index"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "order index must be an integer")
			return
		}
		var f *plan.Floor
		_ = app.withEngine(func(e *plan.Engine) error {
			f = e.FloorByOrder(idx)
			return nil
		})
		if f == nil {
			writeError(w, http.StatusNotFound, plan.ErrFloorNotFound.Error())
			return
		}
		writeJSON(w, http.StatusOK, f)
	})

	mux.HandleFunc("PATCH /api/floors/{id}", func(w http.ResponseWriter, r *http.Request) {
		var patch plan.FloorPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		id := r.PathValue("id")
		var f *plan.Floor
		err := app.withEngine(func(e *plan.Engine) error {
			if e.Floor(id) == nil {
				return fmt.Errorf("%w: %s", plan.ErrFloorNotFound, id)
			}
			if err := e.UpdateFloor(id, patch); err != nil {
				return err
			}
			f = e.Floor(id)
			return nil
		})
		respond(w, http.StatusOK, f, err)
	})

	mux.HandleFunc("DELETE /api/floors/{id}", func(w http.ResponseWriter, r *http.Request) {
		_ = app.withEngine(func(e *plan.Engine) error {
			e.DeleteFloor(r.PathValue("id"))
			return nil
		})
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("PUT /api/active-floor", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FloorID string `json:"floorId"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		var f *plan.Floor
		_ = app.withEngine(func(e *plan.Engine) error {
			e.SetActiveFloor(req.FloorID)
			f = e.ActiveFloor()
			return nil
		})
		writeJSON(w, http.StatusOK, f)
	})

	// Rooms

	mux.HandleFunc("GET /api/rooms", func(w http.ResponseWriter, r *http.Request) {
		var rooms []plan.Room
		_ = app.withEngine(func(e *plan.Engine) error {
			rooms = e.FloorRooms(r.URL.Query().Get("floor"))
			return nil
		})
		writeJSON(w, http.StatusOK, rooms)
	})

	mux.HandleFunc("POST /api/rooms", func(w http.ResponseWriter, r *http.Request) {
		var room plan.Room
		if !decodeJSON(w, r, &room) {
			return
		}
		err := app.withEngine(func(e *plan.Engine) error {
			var err error
			room, err = e.AddRoom(room)
			return err
		})
		respond(w, http.StatusCreated, room, err)
	})

	mux.HandleFunc("PATCH /api/rooms/{id}", func(w http.ResponseWriter, r *http.Request) {
		var patch plan.RoomPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		id := r.PathValue("id")
		var room *plan.Room
		err := app.withEngine(func(e *plan.Engine) error {
			if e.Room(id) == nil {
				return fmt.Errorf("%w: %s", plan.ErrRoomNotFound, id)
			}
			if err := e.UpdateRoom(id, patch); err != nil {
				return err
			}
			room = e.Room(id)
			return nil
		})
		respond(w, http.StatusOK, room, err)
	})

	mux.HandleFunc("DELETE /api/rooms/{id}", func(w http.ResponseWriter, r *http.Request) {
		_ = app.withEngine(func(e *plan.Engine) error {
			e.DeleteRoom(r.PathValue("id"))
			return nil
		})
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /api/rooms/{id}/panos", func(w http.ResponseWriter, r *http.Request) {
		var panos []plan.Pano
		_ = app.withEngine(func(e *plan.Engine) error {
			panos = e.RoomPanos(r.PathValue("id"))
			return nil
		})
		writeJSON(w, http.StatusOK, panos)
	})

	mux.HandleFunc("GET /api/rooms/{id}/area", func(w http.ResponseWriter, r *http.Request) {
		unit, ok := unitParam(w, r)
		if !ok {
			return
		}
		var area float64
		err := app.withEngine(func(e *plan.Engine) error {
			var err error
			area, err = e.RoomArea(r.PathValue("id"), unit)
			return err
		})
		respond(w, http.StatusOK, map[string]any{
			"area":    area,
			"unit":    unit,
			"display": plan.FormatArea(area, unit),
		}, err)
	})

	mux.HandleFunc("POST /api/rooms/{id}/simplify", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Tolerance float64 `json:"tolerance"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		var removed int
		var room *plan.Room
		_ = app.withEngine(func(e *plan.Engine) error {
			removed = e.SimplifyRoom(r.PathValue("id"), req.Tolerance)
			room = e.Room(r.PathValue("id"))
			return nil
		})
		if room == nil {
			writeError(w, http.StatusNotFound, plan.ErrRoomNotFound.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"removed": removed, "room": room})
	})

	mux.HandleFunc("GET /api/geojson/{floorId}", func(w http.ResponseWriter, r *http.Request) {
		var fc any
		err := app.withEngine(func(e *plan.Engine) error {
			features, err := e.FloorFeatures(r.PathValue("floorId"))
			fc = features
			return err
		})
		respond(w, http.StatusOK, fc, err)
	})

	// Panos

	mux.HandleFunc("GET /api/panos", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		unassigned := q.Get("unassigned") == "true"
		var panos []plan.Pano
		_ = app.withEngine(func(e *plan.Engine) error {
			panos = e.FilterPanos(q.Get("q"), unassigned)
			return nil
		})
		writeJSON(w, http.StatusOK, panos)
	})

	mux.HandleFunc("POST /api/panos", func(w http.ResponseWriter, r *http.Request) {
		var panos []plan.Pano
		if !decodeJSON(w, r, &panos) {
			return
		}
		_ = app.withEngine(func(e *plan.Engine) error {
			panos = e.AddPanos(panos...)
			return nil
		})
		writeJSON(w, http.StatusCreated, panos)
	})

	mux.HandleFunc("POST /api/panos/{id}/assign", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RoomID string `json:"roomId"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		var pano *plan.Pano
		err := app.withEngine(func(e *plan.Engine) error {
			if err := e.AssignPanoToRoom(r.PathValue("id"), req.RoomID); err != nil {
				return err
			}
			pano = e.Pano(r.PathValue("id"))
			return nil
		})
		if err == nil && pano == nil {
			err = plan.ErrPanoNotFound
		}
		respond(w, http.StatusOK, pano, err)
	})

	mux.HandleFunc("POST /api/panos/{id}/unassign", func(w http.ResponseWriter, r *http.Request) {
		var pano *plan.Pano
		_ = app.withEngine(func(e *plan.Engine) error {
			e.UnassignPano(r.PathValue("id"))
			pano = e.Pano(r.PathValue("id"))
			return nil
		})
		if pano == nil {
			writeError(w, http.StatusNotFound, plan.ErrPanoNotFound.Error())
			return
		}
		writeJSON(w, http.StatusOK, pano)
	})

	mux.HandleFunc("PUT /api/selection", func(w http.ResponseWriter, r *http.Request) {
		var req selectionRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		var sel struct {
			Room *plan.Room `json:"room"`
			Pano *plan.Pano `json:"pano"`
		}
		_ = app.withEngine(func(e *plan.Engine) error {
			if req.RoomID != nil {
				e.SelectRoom(*req.RoomID)
			}
			if req.PanoID != nil {
				e.SelectPano(*req.PanoID)
			}
			sel.Room = e.SelectedRoom()
			sel.Pano = e.SelectedPano()
			return nil
		})
		writeJSON(w, http.StatusOK, sel)
	})

	// Point capture: calibration and measurement

	mux.HandleFunc("GET /api/capture", func(w http.ResponseWriter, r *http.Request) {
		var cs plan.CaptureStatus
		_ = app.withEngine(func(e *plan.Engine) error {
			cs = e.Capture()
			return nil
		})
		writeJSON(w, http.StatusOK, cs)
	})

	mux.HandleFunc("POST /api/pick", func(w http.ResponseWriter, r *http.Request) {
		var p plan.Point
		if !decodeJSON(w, r, &p) {
			return
		}
		var cs plan.CaptureStatus
		var consumed bool
		_ = app.withEngine(func(e *plan.Engine) error {
			consumed = e.Pick(p)
			cs = e.Capture()
			return nil
		})
		if !consumed {
			writeError(w, http.StatusConflict, plan.ErrCaptureState.Error())
			return
		}
		writeJSON(w, http.StatusOK, cs)
	})

	mux.HandleFunc("POST /api/calibration/arm", captureAction(app, func(e *plan.Engine) error {
		return e.ArmCalibration()
	}))
	mux.HandleFunc("POST /api/calibration/cancel", captureAction(app, func(e *plan.Engine) error {
		e.CancelCalibration()
		return nil
	}))
	mux.HandleFunc("POST /api/calibration/commit", func(w http.ResponseWriter, r *http.Request) {
		var in plan.CalibrationInput
		if !decodeJSON(w, r, &in) {
			return
		}
		var cal plan.Calibration
		err := app.withEngine(func(e *plan.Engine) error {
			var err error
			cal, err = e.CommitCalibration(in)
			return err
		})
		respond(w, http.StatusOK, cal, err)
	})

	mux.HandleFunc("POST /api/measurements/arm", captureAction(app, func(e *plan.Engine) error {
		return e.ArmMeasurement()
	}))
	mux.HandleFunc("POST /api/measurements/cancel", captureAction(app, func(e *plan.Engine) error {
		e.CancelMeasurement()
		return nil
	}))
	mux.HandleFunc("POST /api/measurements/commit", func(w http.ResponseWriter, r *http.Request) {
		var in plan.MeasurementInput
		if !decodeJSON(w, r, &in) {
			return
		}
		var view measurementView
		err := app.withEngine(func(e *plan.Engine) error {
			m, err := e.CommitMeasurement(in)
			if err != nil {
				return err
			}
			view = newMeasurementView(e, m, "")
			return nil
		})
		respond(w, http.StatusCreated, view, err)
	})

	mux.HandleFunc("GET /api/measurements", func(w http.ResponseWriter, r *http.Request) {
		unit := plan.Unit("")
		if r.URL.Query().Get("unit") != "" {
			var ok bool
			if unit, ok = unitParam(w, r); !ok {
				return
			}
		}
		views := make([]measurementView, 0)
		_ = app.withEngine(func(e *plan.Engine) error {
			for _, m := range e.Measurements(r.URL.Query().Get("floor")) {
				views = append(views, newMeasurementView(e, m, unit))
			}
			return nil
		})
		writeJSON(w, http.StatusOK, views)
	})

	mux.HandleFunc("DELETE /api/measurements/{id}", func(w http.ResponseWriter, r *http.Request) {
		_ = app.withEngine(func(e *plan.Engine) error {
			e.DeleteMeasurement(r.PathValue("id"))
			return nil
		})
		w.WriteHeader(http.StatusNoContent)
	})

	// Import, persistence, notices

	mux.HandleFunc("POST /api/import", func(w http.ResponseWriter, r *http.Request) {
		table := plan.ParseCSV(http.MaxBytesReader(w, r.Body, maxImportBytes))
		var rooms []plan.Room
		err := app.withEngine(func(e *plan.Engine) error {
			var err error
			rooms, err = e.ImportRooms(r.URL.Query().Get("floor"), table)
			return err
		})
		respond(w, http.StatusCreated, rooms, err)
	})

	mux.HandleFunc("POST /api/save", func(w http.ResponseWriter, r *http.Request) {
		if err := app.Save(r.Context()); err != nil {
			log.Printf("[HTTP] save failed: %v", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"unsavedChanges": false})
	})

	mux.HandleFunc("GET /api/notices", func(w http.ResponseWriter, r *http.Request) {
		var notices []plan.Notice
		_ = app.withEngine(func(*plan.Engine) error {
			notices = app.Notices.Notices()
			return nil
		})
		writeJSON(w, http.StatusOK, notices)
	})

	// Wrap mux with logging middleware
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		mux.ServeHTTP(w, r)
	})
}

// captureAction wraps a body-less capture transition and replies with the
// resulting capture status.
func captureAction(app *App, fn func(e *plan.Engine) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cs plan.CaptureStatus
		err := app.withEngine(func(e *plan.Engine) error {
			if err := fn(e); err != nil {
				return err
			}
			cs = e.Capture()
			return nil
		})
		respond(w, http.StatusOK, cs, err)
	}
}

func newMeasurementView(e *plan.Engine, m plan.Measurement, unit plan.Unit) measurementView {
	if unit == "" {
		unit = m.Unit
	}
	length, _ := e.MeasurementLength(m.ID, unit)
	return measurementView{
		Measurement: m,
		Length:      length,
		In:          unit,
		Display:     plan.FormatLength(length, unit),
	}
}

func unitParam(w http.ResponseWriter, r *http.Request) (plan.Unit, bool) {
	raw := r.URL.Query().Get("unit")
	if raw == "" {
		return plan.Meters, true
	}
	u, err := plan.ParseUnit(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return u, true
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, plan.ErrRoomNotFound),
		errors.Is(err, plan.ErrFloorNotFound),
		errors.Is(err, plan.ErrPanoNotFound):
		return http.StatusNotFound
	case errors.Is(err, plan.ErrNoActiveFloor),
		errors.Is(err, plan.ErrNoPendingPick),
		errors.Is(err, plan.ErrDuplicateOrder):
		return http.StatusConflict
	}
	return http.StatusUnprocessableEntity
}

func respond(w http.ResponseWriter, status int, v any, err error) {
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, status, v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
