package sighting

import "github.com/ufotracker/tracker/consts"

var shapeColors = map[string]string{
	"Light":     "#ffff00",
	"Circle":    "#ff6b6b",
	"Triangle":  "#4ecdc4",
	"Sphere":    "#a855f7",
	"Cigar":     "#f97316",
	"Fireball":  "#ef4444",
	"Disk":      "#06b6d4",
	"Chevron":   "#8b5cf6",
	"Oval":      "#ec4899",
	"Rectangle": "#14b8a6",
	"Orb":       "#f472b6",
	"Cylinder":  "#64748b",
	"Diamond":   "#f59e0b",
	"Cone":      "#84cc16",
}

// ShapeColor returns the marker colour for a shape. Shapes are an open set,
// anything unlisted gets the neutral colour.
func ShapeColor(shape string) string {
	if c, ok := shapeColors[shape]; ok {
		return c
	}
	return consts.UnknownShapeColor
}
