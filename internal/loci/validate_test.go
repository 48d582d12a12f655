package loci

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelth-com/loci/internal/models"
)

func TestValidIndoor(t *testing.T) {
	tests := []struct {
		name   string
		typ    models.LocationType
		indoor string
		want   bool
	}{
		{"indoor empty", models.LocationIndoor, "", true},
		{"indoor pair", models.LocationIndoor, "10.5,-3", true},
		{"indoor pair with spaces", models.LocationIndoor, " 1 , 2 ", true},
		{"indoor single value", models.LocationIndoor, "10", false},
		{"indoor three values", models.LocationIndoor, "1,2,3", false},
		{"indoor not numeric", models.LocationIndoor, "a,b", false},
		{"indoor NaN", models.LocationIndoor, "NaN,1", false},
		{"indoor Inf", models.LocationIndoor, "1,Inf", false},
		{"outdoor empty", models.LocationOutdoor, "", true},
		{"outdoor with value", models.LocationOutdoor, "1,2", false},
		{"unknown type empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidIndoor(tt.typ, tt.indoor))
		})
	}
}

func TestParseIndoor(t *testing.T) {
	x, y, ok := ParseIndoor("12.5,-7")
	assert.True(t, ok)
	assert.Equal(t, 12.5, x)
	assert.Equal(t, -7.0, y)
}

func TestCleanLocation(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		errs := CleanLocation(&models.Location{})
		assert.Equal(t, []string{msgRequired}, errs["name"])
		assert.Equal(t, []string{msgRequired}, errs["type"])
		assert.Equal(t, []string{msgGeometryNull}, errs["geometry"])
	})

	t.Run("mobile without geometry", func(t *testing.T) {
		errs := CleanLocation(&models.Location{Name: "truck", Type: models.LocationOutdoor, IsMobile: true})
		assert.Empty(t, errs)
	})

	t.Run("bad type and long name", func(t *testing.T) {
		errs := CleanLocation(&models.Location{
			Name:     strings.Repeat("x", 76),
			Type:     "underground",
			Geometry: models.NewPoint(1, 2),
		})
		assert.True(t, errs.Has("name"))
		assert.True(t, errs.Has("type"))
		assert.False(t, errs.Has("geometry"))
	})

	t.Run("invalid geometry", func(t *testing.T) {
		for _, in := range []string{
			`{"type":"Circle","coordinates":[1,2]}`,
			`{"type":"Point","coordinates":[]}`,
			`{"type":"Point","coordinates":["a","b"]}`,
			`{"type":"Point","coordinates":[1]}`,
			`{"type":"Point","coordinates":[[1,2],[3]]}`,
			`{"type":"LineString","coordinates":[[1,2]]}`,
		} {
			g := &models.Geometry{}
			require.NoError(t, json.Unmarshal([]byte(in), g))
			errs := CleanLocation(&models.Location{
				Name:     "x",
				Type:     models.LocationOutdoor,
				Geometry: g,
			})
			assert.True(t, errs.Has("geometry"), in)
		}
	})
}

func TestCleanFloorPlanRequiresIndoor(t *testing.T) {
	errs := CleanFloorPlan(&models.FloorPlan{}, &models.Location{Type: models.LocationOutdoor})
	assert.Equal(t, []string{msgFloorplanIndoor}, errs[NonFieldErrors])

	errs = CleanFloorPlan(&models.FloorPlan{}, &models.Location{Type: models.LocationIndoor})
	assert.Empty(t, errs)
}

func TestCleanObjectLocation(t *testing.T) {
	loc := &models.Location{ID: "loc-a", Type: models.LocationIndoor}
	other := &models.FloorPlan{ID: "fp-b", LocationID: "loc-b"}

	t.Run("floorplan of another location", func(t *testing.T) {
		errs := CleanObjectLocation(&models.ObjectLocation{}, loc, other)
		assert.Equal(t, []string{msgFloorplanMismatch}, errs[NonFieldErrors])
	})

	t.Run("indoor on outdoor", func(t *testing.T) {
		outdoor := &models.Location{ID: "loc-c", Type: models.LocationOutdoor}
		errs := CleanObjectLocation(&models.ObjectLocation{Indoor: strPtr("1,2")}, outdoor, nil)
		assert.Equal(t, []string{msgInvalidIndoor}, errs["indoor"])
	})

	t.Run("too long", func(t *testing.T) {
		errs := CleanObjectLocation(&models.ObjectLocation{Indoor: strPtr(strings.Repeat("1", 65))}, loc, nil)
		assert.True(t, errs.Has("indoor"))
	})

	t.Run("no location", func(t *testing.T) {
		errs := CleanObjectLocation(&models.ObjectLocation{Indoor: strPtr("x")}, nil, nil)
		assert.Empty(t, errs)
	})
}

func TestErrorsRendering(t *testing.T) {
	errs := Errors{}
	assert.Nil(t, errs.Err())

	errs.Add("name", "a")
	errs.Add("indoor", "b")
	errs.Add("indoor", "c")
	assert.Equal(t, "indoor: b, c; name: a", errs.Error())

	got, ok := AsErrors(errs.Err())
	assert.True(t, ok)
	assert.Len(t, got, 2)
}
