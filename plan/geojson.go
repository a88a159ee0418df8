package plan

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
)

// Feature layers written into the "layer" property of exported features.
const (
	LayerRoom        = "room"
	LayerMeasurement = "measurement"
)

// FloorFeatures exports the rooms and measurements of one floor as a GeoJSON
// FeatureCollection. Coordinates are meters from the image origin, using the
// floor's current calibration. Rooms without a drawn outline are skipped.
func FloorFeatures(snap Snapshot, floorID string) (*geojson.FeatureCollection, error) {
	var floor *Floor
	for i := range snap.Floors {
		if snap.Floors[i].ID == floorID {
			floor = &snap.Floors[i]
			break
		}
	}
	if floor == nil {
		return nil, fmt.Errorf("%w: %s", ErrFloorNotFound, floorID)
	}
	ppm := floor.PixelsPerMeter()
	toMeters := func(p Point) orb.Point {
		return orb.Point{PixelsToMeters(p.X, ppm), PixelsToMeters(p.Y, ppm)}
	}

	panoCount := make(map[string]int)
	for _, p := range snap.Panos {
		if id, ok := p.Room.RoomID(); ok {
			panoCount[id]++
		}
	}

	fc := geojson.NewFeatureCollection()
	for _, r := range snap.Rooms {
		if r.FloorID != floorID || !ValidPolygon(r.Polygon) {
			continue
		}
		ring := make(orb.Ring, 0, len(r.Polygon)+1)
		for _, p := range r.Polygon {
			ring = append(ring, toMeters(p))
		}
		ring = append(ring, ring[0])

		f := geojson.NewFeature(orb.Polygon{ring})
		f.ID = r.ID
		f.Properties["layer"] = LayerRoom
		f.Properties["name"] = r.Name
		f.Properties["area_m2"] = PolygonArea(r.Polygon) / (ppm * ppm)
		f.Properties["panos"] = panoCount[r.ID]
		if r.Type != "" {
			f.Properties["type"] = r.Type
		}
		if r.Capacity > 0 {
			f.Properties["capacity"] = r.Capacity
		}
		for k, v := range r.Properties {
			if _, taken := f.Properties[k]; !taken {
				f.Properties[k] = v
			}
		}
		fc.Append(f)
	}

	for _, m := range snap.Measurements {
		if m.FloorID != floorID {
			continue
		}
		f := geojson.NewFeature(orb.LineString{toMeters(m.P1), toMeters(m.P2)})
		f.ID = m.ID
		f.Properties["layer"] = LayerMeasurement
		f.Properties["name"] = m.Name
		f.Properties["length_m"] = PixelsToMeters(m.PxLength, ppm)
		f.Properties["unit"] = string(displayUnit(m.Unit))
		if m.RoomID != "" {
			f.Properties["roomId"] = m.RoomID
		}
		fc.Append(f)
	}
	return fc, nil
}

// FloorFeatures exports floorID from the current state.
func (e *Engine) FloorFeatures(floorID string) (*geojson.FeatureCollection, error) {
	return FloorFeatures(e.Snapshot(), floorID)
}

// SimplifyPolygon drops vertices closer than tolerance pixels to the outline
// through their neighbours (Douglas-Peucker). The input is returned unchanged
// when simplification would leave fewer than MinPolygonPoints vertices.
func SimplifyPolygon(poly []Point, tolerance float64) []Point {
	if tolerance <= 0 || !ValidPolygon(poly) {
		return poly
	}
	simplified, ok := simplify.DouglasPeucker(tolerance).Simplify(orbRing(poly).Clone()).(orb.Ring)
	if !ok {
		return poly
	}
	if simplified.Closed() {
		simplified = simplified[:len(simplified)-1]
	}
	if len(simplified) < MinPolygonPoints {
		return poly
	}
	out := make([]Point, len(simplified))
	for i, p := range simplified {
		out[i] = Point{X: p[0], Y: p[1]}
	}
	return out
}

// SimplifyRoom replaces a room outline by its simplified form. It reports
// how many vertices were removed. Unknown ids are ignored.
func (e *Engine) SimplifyRoom(id string, tolerance float64) int {
	i := e.indexOfRoom(id)
	if i < 0 {
		return 0
	}
	r := &e.st.rooms[i]
	simplified := SimplifyPolygon(r.Polygon, tolerance)
	removed := len(r.Polygon) - len(simplified)
	if removed <= 0 {
		return 0
	}
	r.Polygon = simplified
	e.changed(EventRoomUpdated, r.FloorID, id)
	return removed
}
