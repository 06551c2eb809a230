package defect

import (
	"encoding/json"
	"fmt"
)

// ShapeType tags the geometry payload variant.
type ShapeType string

const (
	ShapeRect    ShapeType = "rect"
	ShapeCircle  ShapeType = "circle"
	ShapePolygon ShapeType = "polygon"
)

// Point is one vertex in normalized image-fraction coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned box: top-left corner plus width/height.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Circle is a center point plus radius.
type Circle struct {
	CX float64 `json:"cx"`
	CY float64 `json:"cy"`
	R  float64 `json:"r"`
}

// Polygon is a closed vertex list.
type Polygon struct {
	Points []Point `json:"points"`
}

// Geometry is the tagged shape payload of one annotation. All coordinates
// are fractions of the image in [0, 1]. The zero Geometry is the empty
// placeholder used by the category convenience update.
type Geometry struct {
	Type    ShapeType
	Rect    *Rect
	Circle  *Circle
	Polygon *Polygon
}

// IsZero reports whether this is the empty placeholder geometry.
func (g Geometry) IsZero() bool {
	return g.Type == ""
}

type geometryWire struct {
	Type   ShapeType `json:"type,omitempty"`
	X      *float64  `json:"x,omitempty"`
	Y      *float64  `json:"y,omitempty"`
	W      *float64  `json:"w,omitempty"`
	H      *float64  `json:"h,omitempty"`
	CX     *float64  `json:"cx,omitempty"`
	CY     *float64  `json:"cy,omitempty"`
	R      *float64  `json:"r,omitempty"`
	Points []Point   `json:"points,omitempty"`
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// UnmarshalJSON decodes and validates the tagged payload. `{}` decodes to
// the empty placeholder.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	var wire geometryWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*g = Geometry{Type: wire.Type}
	switch wire.Type {
	case "":
		return nil
	case ShapeRect:
		g.Rect = &Rect{X: deref(wire.X), Y: deref(wire.Y), W: deref(wire.W), H: deref(wire.H)}
	case ShapeCircle:
		g.Circle = &Circle{CX: deref(wire.CX), CY: deref(wire.CY), R: deref(wire.R)}
	case ShapePolygon:
		g.Polygon = &Polygon{Points: wire.Points}
	default:
		return fmt.Errorf("unknown geometry type %q", wire.Type)
	}
	return g.Validate()
}

// MarshalJSON flattens the active variant alongside the type tag.
func (g Geometry) MarshalJSON() ([]byte, error) {
	wire := geometryWire{Type: g.Type}
	switch g.Type {
	case ShapeRect:
		if g.Rect != nil {
			wire.X, wire.Y, wire.W, wire.H = &g.Rect.X, &g.Rect.Y, &g.Rect.W, &g.Rect.H
		}
	case ShapeCircle:
		if g.Circle != nil {
			wire.CX, wire.CY, wire.R = &g.Circle.CX, &g.Circle.CY, &g.Circle.R
		}
	case ShapePolygon:
		if g.Polygon != nil {
			wire.Points = g.Polygon.Points
		}
	}
	return json.Marshal(wire)
}

func inUnit(vals ...float64) bool {
	for _, v := range vals {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// Validate checks the active variant's coordinates are normalized.
func (g Geometry) Validate() error {
	switch g.Type {
	case "":
		return nil
	case ShapeRect:
		if g.Rect == nil {
			return fmt.Errorf("rect geometry missing coordinates")
		}
		if !inUnit(g.Rect.X, g.Rect.Y, g.Rect.W, g.Rect.H) {
			return fmt.Errorf("rect coordinates must be normalized to [0,1]")
		}
	case ShapeCircle:
		if g.Circle == nil {
			return fmt.Errorf("circle geometry missing coordinates")
		}
		if !inUnit(g.Circle.CX, g.Circle.CY, g.Circle.R) {
			return fmt.Errorf("circle coordinates must be normalized to [0,1]")
		}
	case ShapePolygon:
		if g.Polygon == nil || len(g.Polygon.Points) < 3 {
			return fmt.Errorf("polygon requires at least 3 points")
		}
		for _, pt := range g.Polygon.Points {
			if !inUnit(pt.X, pt.Y) {
				return fmt.Errorf("polygon coordinates must be normalized to [0,1]")
			}
		}
	default:
		return fmt.Errorf("unknown geometry type %q", g.Type)
	}
	return nil
}
