package printer

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestMarkerFromIndoor(t *testing.T) {
	m := MarkerFromIndoor("printer", -140.5, 40.25)
	assert.Equal(t, 40.25, m.X)
	assert.Equal(t, 140.5, m.Y)
}

func TestGenerateFloorPlanSheet(t *testing.T) {
	pdf, err := GenerateFloorPlanSheet(SheetConfig{
		Title:    "Warehouse 1st floor",
		Subtitle: "Via del Corso, Roma",
		Image:    testPNG(t, 300, 200),
		Markers: []Marker{
			{Label: "printer", X: 40, Y: 140},
			{Label: "off the map", X: 900, Y: 10},
		},
		Link: "https://loci.example.com/locations/abc",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
}

func TestGenerateFloorPlanSheetRejectsGarbage(t *testing.T) {
	_, err := GenerateFloorPlanSheet(SheetConfig{Title: "x", Image: []byte("not an image")})
	assert.Error(t, err)

	_, err = GenerateFloorPlanSheet(SheetConfig{Title: "x"})
	assert.Error(t, err)
}
