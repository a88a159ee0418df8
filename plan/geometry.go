package plan

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// MinPolygonPoints is the smallest number of vertices a drawn room may have.
const MinPolygonPoints = 3

func (p Point) orb() orb.Point {
	return orb.Point{p.X, p.Y}
}

// Distance returns the euclidean distance between two plan points, in pixels.
func Distance(a, b Point) float64 {
	return planar.Distance(a.orb(), b.orb())
}

// ValidPolygon reports whether poly has enough distinct vertices to enclose an area.
func ValidPolygon(poly []Point) bool {
	if len(poly) < MinPolygonPoints {
		return false
	}
	for _, p := range poly {
		if !p.finite() {
			return false
		}
	}
	return true
}

func (p Point) finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

func finiteLength(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// orbRing converts a room polygon to a closed orb.Ring. The first and last
// vertices of a room are implicitly connected, orb wants them repeated.
func orbRing(poly []Point) orb.Ring {
	ring := make(orb.Ring, 0, len(poly)+1)
	for _, p := range poly {
		ring = append(ring, p.orb())
	}
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}

// PolygonArea returns the enclosed area of poly in square pixels.
func PolygonArea(poly []Point) float64 {
	if !ValidPolygon(poly) {
		return 0
	}
	return math.Abs(planar.Area(orbRing(poly)))
}

// PolygonCentroid returns the area centroid of poly. Degenerate polygons
// fall back to the vertex average.
func PolygonCentroid(poly []Point) Point {
	if len(poly) == 0 {
		return Point{}
	}
	if ValidPolygon(poly) {
		c, area := planar.CentroidArea(orbRing(poly))
		if area != 0 {
			return Point{X: c[0], Y: c[1]}
		}
	}
	var sx, sy float64
	for _, p := range poly {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(poly))
	return Point{X: sx / n, Y: sy / n}
}

// PolygonContains reports whether pt lies inside poly.
func PolygonContains(poly []Point, pt Point) bool {
	if !ValidPolygon(poly) {
		return false
	}
	ring := orbRing(poly)
	if !ring.Bound().Contains(pt.orb()) {
		return false
	}
	return planar.RingContains(ring, pt.orb())
}
