package geo

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

func writeTestShapefile(t *testing.T, records []struct {
	code, name string
}) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "divisions.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	w.SetFields([]shp.Field{
		shp.StringField("ADM1_PCODE", 25),
		shp.StringField("ADM1_EN", 50),
	})

	for i, rec := range records {
		square := &shp.Polygon{
			Box:       shp.Box{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1},
			NumParts:  1,
			NumPoints: 5,
			Parts:     []int32{0},
			Points: []shp.Point{
				{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0},
			},
		}
		w.Write(square)
		w.WriteAttribute(i, 0, rec.code)
		w.WriteAttribute(i, 1, rec.name)
	}
	w.Close()
	return path
}

func TestParseShapefileMapsFields(t *testing.T) {
	path := writeTestShapefile(t, []struct{ code, name string }{
		{"KH-01", "Banteay Meanchey"},
		{"KH-02", "Battambang"},
	})

	rows, skipped, err := ParseShapefile(path, FieldMapping{
		CodeField: "ADM1_PCODE",
		NameField: "ADM1_EN",
		Level:     1,
	})
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, rows, 2)

	assert.Equal(t, "KH-01", rows[0].Code)
	assert.Equal(t, "Banteay Meanchey", rows[0].Name)
	assert.Equal(t, 1, rows[0].Level)

	g, err := ewkb.Unmarshal(rows[0].Boundary)
	require.NoError(t, err)
	assert.Equal(t, 4326, g.SRID())
}

func TestParseShapefileSkipsBlankCodes(t *testing.T) {
	path := writeTestShapefile(t, []struct{ code, name string }{
		{"KH-03", "Kampong Cham"},
		{"", "Unnamed"},
	})

	rows, skipped, err := ParseShapefile(path, FieldMapping{
		CodeField: "ADM1_PCODE",
		NameField: "ADM1_EN",
		Level:     1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, rows, 1)
	assert.Equal(t, "KH-03", rows[0].Code)
}

func TestParseShapefileFieldNamesCaseInsensitive(t *testing.T) {
	path := writeTestShapefile(t, []struct{ code, name string }{
		{"KH-04", "Kampong Chhnang"},
	})

	rows, _, err := ParseShapefile(path, FieldMapping{
		CodeField: "adm1_pcode",
		NameField: "adm1_en",
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Kampong Chhnang", rows[0].Name)
}
