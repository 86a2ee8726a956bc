package model

import (
	"math"

	"github.com/skoryh/dogtown/internal/geom"
)

// RoadWidth is the half-width of every road. A road's drivable region
// extends this far from its centerline on all sides.
const RoadWidth = 0.4

// Road is a horizontal or vertical segment of the road network. Endpoints
// are integer grid coordinates from the config; exactly one coordinate
// differs between start and end.
type Road struct {
	start geom.Position
	end   geom.Position
}

// NewHorizontalRoad builds a road from (x0, y0) to (x1, y0).
func NewHorizontalRoad(x0, y0, x1 float64) Road {
	return Road{start: geom.Position{X: x0, Y: y0}, end: geom.Position{X: x1, Y: y0}}
}

// NewVerticalRoad builds a road from (x0, y0) to (x0, y1).
func NewVerticalRoad(x0, y0, y1 float64) Road {
	return Road{start: geom.Position{X: x0, Y: y0}, end: geom.Position{X: x0, Y: y1}}
}

func (r Road) Start() geom.Position { return r.start }
func (r Road) End() geom.Position { return r.end }

func (r Road) IsHorizontal() bool { return r.start.Y == r.end.Y }
func (r Road) IsVertical() bool { return r.start.X == r.end.X }

func (r Road) MinX() float64 { return math.Min(r.start.X, r.end.X) }
func (r Road) MaxX() float64 { return math.Max(r.start.X, r.end.X) }
func (r Road) MinY() float64 { return math.Min(r.start.Y, r.end.Y) }
func (r Road) MaxY() float64 { return math.Max(r.start.Y, r.end.Y) }

// Contains reports whether pos lies inside the road's drivable rectangle,
// borders inclusive.
func (r Road) Contains(pos geom.Position) bool {
	return pos.X >= r.MinX()-RoadWidth && pos.X <= r.MaxX()+RoadWidth &&
		pos.Y >= r.MinY()-RoadWidth && pos.Y <= r.MaxY()+RoadWidth
}

// distanceTo returns the euclidean distance from pos to the road's
// centerline segment.
func (r Road) distanceTo(pos geom.Position) float64 {
	if r.IsHorizontal() {
		yDist := math.Abs(pos.Y - r.start.Y)
		xDist := 0.0
		if pos.X < r.MinX() {
			xDist = r.MinX() - pos.X
		} else if pos.X > r.MaxX() {
			xDist = pos.X - r.MaxX()
		}
		return math.Sqrt(yDist*yDist + xDist*xDist)
	}

	xDist := math.Abs(pos.X - r.start.X)
	yDist := 0.0
	if pos.Y < r.MinY() {
		yDist = r.MinY() - pos.Y
	} else if pos.Y > r.MaxY() {
		yDist = pos.Y - r.MaxY()
	}
	return math.Sqrt(xDist*xDist + yDist*yDist)
}

// projectToCenterline clamps pos onto the road's centerline.
func (r Road) projectToCenterline(pos geom.Position) geom.Position {
	if r.IsHorizontal() {
		return geom.Position{X: clamp(pos.X, r.MinX(), r.MaxX()), Y: r.start.Y}
	}
	return geom.Position{X: r.start.X, Y: clamp(pos.Y, r.MinY(), r.MaxY())}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
