package geometry

import (
	"testing"

	"github.com/shreyahuja108/sentryfeed/internal/models"
)

func square() []models.Point {
	return []models.Point{
		{X: 0.3, Y: 0.3},
		{X: 0.7, Y: 0.3},
		{X: 0.7, Y: 0.7},
		{X: 0.3, Y: 0.7},
	}
}

func TestPointInPolygonInside(t *testing.T) {
	if !PointInPolygon(models.Point{X: 0.5, Y: 0.5}, square()) {
		t.Fatal("expected point strictly inside convex polygon to test true")
	}
}

func TestPointInPolygonOutside(t *testing.T) {
	if PointInPolygon(models.Point{X: 0.1, Y: 0.1}, square()) {
		t.Fatal("expected point strictly outside convex polygon to test false")
	}
}

func TestPointInPolygonTooFewVertices(t *testing.T) {
	if PointInPolygon(models.Point{X: 0.5, Y: 0.5}, []models.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}) {
		t.Fatal("polygon with < 3 vertices must never contain a point")
	}
}

func TestLineSideSignConvention(t *testing.T) {
	// horizontal tripwire y=0.5 from (0,0.5) to (1,0.5)
	below := LineSide(0.5, 0.8, 0, 0.5, 1, 0.5)
	above := LineSide(0.5, 0.2, 0, 0.5, 1, 0.5)
	if (below < 0) == (above < 0) {
		t.Fatalf("expected opposite signs on either side of the line, got %v and %v", below, above)
	}
}

func TestPerpendicularDistance(t *testing.T) {
	length := LineLength(0, 0.5, 1, 0.5)
	side := LineSide(0.5, 0.5, 0, 0.5, 1, 0.5)
	if d := PerpendicularDistance(side, length); d != 0 {
		t.Fatalf("point on the line should have zero distance, got %v", d)
	}
}

func TestRasterizePolygonMatchesPointInPolygon(t *testing.T) {
	mask := RasterizePolygon(square(), 10, 10)
	// center pixel should be inside, corner pixel outside
	if mask.GrayAt(5, 5).Y == 0 {
		t.Fatal("expected center pixel to be rasterized inside the ROI")
	}
	if mask.GrayAt(0, 0).Y != 0 {
		t.Fatal("expected corner pixel to be rasterized outside the ROI")
	}
}
