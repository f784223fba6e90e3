// Package geometry holds the point-in-polygon test, polygon rasterization,
// and tripwire line-side math shared between the pixel-level motion
// detector and the normalized-coordinate tracker. Both consumers need the
// same ray-casting semantics, so it lives in one place instead of being
// duplicated between the two consumers.
package geometry

import (
	"image"
	"image/color"
	"math"

	"github.com/shreyahuja108/sentryfeed/internal/models"
)

// PointInPolygon reports whether pt is inside the polygon described by
// vertices, using the standard ray-casting (even-odd) rule. Works for both
// normalized points and pixel points as long as vertices and pt share the
// same coordinate space.
func PointInPolygon(pt models.Point, vertices []models.Point) bool {
	if len(vertices) < 3 {
		return false
	}
	inside := false
	n := len(vertices)
	j := n - 1
	for i := 0; i < n; i++ {
		vi, vj := vertices[i], vertices[j]
		if (vi.Y > pt.Y) != (vj.Y > pt.Y) {
			slope := (pt.Y - vi.Y) / (vj.Y - vi.Y)
			xCross := vi.X + slope*(vj.X-vi.X)
			if pt.X < xCross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// RasterizePolygon draws the normalized polygon into a width×height
// single-channel mask (255 inside, 0 outside), for ANDing against a
// foreground mask in the ROI motion computation.
func RasterizePolygon(vertices []models.Point, width, height int) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, width, height))
	if len(vertices) < 3 {
		return mask
	}
	for y := 0; y < height; y++ {
		py := (float64(y) + 0.5) / float64(height)
		for x := 0; x < width; x++ {
			px := (float64(x) + 0.5) / float64(width)
			if PointInPolygon(models.Point{X: px, Y: py}, vertices) {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return mask
}

// LineSide computes the signed side of the directed line (x1,y1)->(x2,y2)
// that (px,py) falls on:
//
//	side = (px-x1)*(y2-y1) - (py-y1)*(x2-x1)
func LineSide(px, py, x1, y1, x2, y2 float64) float64 {
	return (px-x1)*(y2-y1) - (py-y1)*(x2-x1)
}

// LineLength is the Euclidean length of the segment (x1,y1)-(x2,y2).
func LineLength(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

// PerpendicularDistance returns |side| / lineLength, the distance from the
// point whose signed side is `side` to the line, in the same units as the
// line's own coordinates.
func PerpendicularDistance(side, lineLength float64) float64 {
	if lineLength == 0 {
		return math.Inf(1)
	}
	return math.Abs(side) / lineLength
}
