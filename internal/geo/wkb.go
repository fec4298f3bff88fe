package geo

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// encodeWKB converts a shapefile geometry to EWKB bytes with SRID 4326.
// Returns nil, nil for unsupported or empty shapes; boundary files
// occasionally carry degenerate records and the loader skips them.
func encodeWKB(shape shp.Shape) ([]byte, error) {
	if shape == nil {
		return nil, nil
	}

	var g geom.T
	switch s := shape.(type) {
	case *shp.Point:
		g = geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}).SetSRID(4326)
	case *shp.PolyLine:
		g = polyLineToMultiLineString(s)
	case *shp.Polygon:
		g = polygonToMultiPolygon(s)
	default:
		return nil, nil
	}
	if g == nil {
		return nil, nil
	}

	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode EWKB")
	}
	return data, nil
}

// partRange returns the [start, end) point indexes of part i.
func partRange(parts []int32, numPoints int, i int32) (int32, int32) {
	start := parts[i]
	if int(i+1) < len(parts) {
		return start, parts[i+1]
	}
	return start, int32(numPoints)
}

func polyLineToMultiLineString(pl *shp.PolyLine) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY).SetSRID(4326)
	for i := int32(0); i < pl.NumParts; i++ {
		start, end := partRange(pl.Parts, len(pl.Points), i)
		ls := geom.NewLineStringFlat(geom.XY, flatten(pl.Points[start:end]))
		if err := mls.Push(ls); err != nil {
			continue
		}
	}
	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for i := int32(0); i < p.NumParts; i++ {
		start, end := partRange(p.Parts, len(p.Points), i)
		ring := geom.NewLinearRingFlat(geom.XY, flatten(p.Points[start:end]))
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			continue
		}
		if err := mp.Push(poly); err != nil {
			continue
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

func flatten(points []shp.Point) []float64 {
	flat := make([]float64, 0, len(points)*2)
	for _, pt := range points {
		flat = append(flat, pt.X, pt.Y)
	}
	return flat
}
