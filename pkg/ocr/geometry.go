package ocr

import "math"

// Point is a pixel coordinate with the origin in the upper-left corner.
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Polygon describes a template area by its corners. Only polygons with exactly
// four points are usable.
type Polygon []Point

// Bounds returns the axis-aligned box of the polygon. ok is false when the
// polygon does not have exactly four points.
func (p Polygon) Bounds() (minX, minY, maxX, maxY float64, ok bool) {
	if len(p) != 4 {
		return 0, 0, 0, 0, false
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, pt := range p {
		minX = math.Min(minX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxX = math.Max(maxX, pt.X)
		maxY = math.Max(maxY, pt.Y)
	}
	return minX, minY, maxX, maxY, true
}

// Contains reports whether pt lies inside the polygon's bounding box. All four
// edges are inclusive.
func (p Polygon) Contains(pt Point) bool {
	minX, minY, maxX, maxY, ok := p.Bounds()
	if !ok {
		return false
	}
	return pt.X >= minX && pt.X <= maxX && pt.Y >= minY && pt.Y <= maxY
}

// Region is the area of a template where one field is printed. Optional regions
// may be absent from a screenshot without failing the extraction.
type Region struct {
	Field    Field   `yaml:"field"`
	Polygon  Polygon `yaml:"polygon"`
	Optional bool    `yaml:"optional"`
}

// Line is one unit of recognized text. BoundingBox holds the four corners
// flattened as x0,y0,x1,y1,x2,y2,x3,y3.
type Line struct {
	Text        string    `json:"text"`
	BoundingBox []float64 `json:"boundingBox"`
}

// Corners decodes the flattened bounding box. Trailing odd values are ignored.
func (l Line) Corners() []Point {
	pts := make([]Point, 0, len(l.BoundingBox)/2)
	for i := 0; i+1 < len(l.BoundingBox); i += 2 {
		pts = append(pts, Point{X: l.BoundingBox[i], Y: l.BoundingBox[i+1]})
	}
	return pts
}

// Center returns the midpoint of the diagonal between corner 0 and corner 2.
// ok is false when fewer than four corners are present.
func (l Line) Center() (Point, bool) {
	pts := l.Corners()
	if len(pts) < 4 {
		return Point{}, false
	}
	return Point{X: (pts[0].X + pts[2].X) / 2, Y: (pts[0].Y + pts[2].Y) / 2}, true
}

// MatchRegion returns every line whose center falls inside region, in input order.
func MatchRegion(lines []Line, region Region) []Line {
	var out []Line
	for _, l := range lines {
		c, ok := l.Center()
		if !ok {
			continue
		}
		if region.Polygon.Contains(c) {
			out = append(out, l)
		}
	}
	return out
}

// FirstMatch returns the first line inside region.
func FirstMatch(lines []Line, region Region) (Line, bool) {
	for _, l := range lines {
		c, ok := l.Center()
		if ok && region.Polygon.Contains(c) {
			return l, true
		}
	}
	return Line{}, false
}
