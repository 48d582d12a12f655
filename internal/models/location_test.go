package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrdinal(t *testing.T) {
	cases := map[int]string{
		1: "1st", 2: "2nd", 3: "3rd", 4: "4th",
		11: "11th", 12: "12th", 13: "13th",
		21: "21st", 112: "112th", -1: "-1st", -2: "-2nd",
	}
	for n, want := range cases {
		assert.Equal(t, want, Ordinal(n), "n=%d", n)
	}
}

func TestFloorPlanString(t *testing.T) {
	loc := &Location{Name: "HQ"}
	assert.Equal(t, "HQ ground floor", FloorPlan{Floor: 0, Location: loc}.String())
	assert.Equal(t, "HQ 2nd floor", FloorPlan{Floor: 2, Location: loc}.String())
	assert.Equal(t, "HQ -1st floor", FloorPlan{Floor: -1, Location: loc}.String())
}

func TestLocationShortType(t *testing.T) {
	assert.Equal(t, "Outdoor", Location{Type: LocationOutdoor}.ShortType())
	assert.Equal(t, "Indoor", Location{Type: LocationIndoor}.ShortType())
	assert.Equal(t, "", Location{}.ShortType())
}

func TestObjectLocationKind(t *testing.T) {
	assert.Equal(t, "", ObjectLocation{}.Kind())
	assert.Equal(t, "indoor", ObjectLocation{Location: &Location{Type: LocationIndoor}}.Kind())
	assert.Equal(t, ObjectLocationMobile, ObjectLocation{Location: &Location{Type: LocationOutdoor, IsMobile: true}}.Kind())
}

func TestGeometry(t *testing.T) {
	p := NewPoint(12.5, 41.9)
	lng, lat, ok := p.Point()
	require.True(t, ok)
	assert.Equal(t, 12.5, lng)
	assert.Equal(t, 41.9, lat)
	assert.NoError(t, p.Validate())

	var empty *Geometry
	assert.True(t, empty.IsEmpty())
	assert.NoError(t, empty.Validate())

	circle := &Geometry{}
	circle.Type = "Circle"
	assert.Error(t, circle.Validate())
	bare := &Geometry{}
	bare.Type = "Point"
	assert.Error(t, bare.Validate())
}

func TestGeometryDecode(t *testing.T) {
	valid := map[string]string{
		"point":           `{"type":"Point","coordinates":[12.5,41.9]}`,
		"point altitude":  `{"type":"Point","coordinates":[12.5,41.9,20]}`,
		"multipoint":      `{"type":"MultiPoint","coordinates":[[1,2],[3,4]]}`,
		"linestring":      `{"type":"LineString","coordinates":[[1,2],[3,4]]}`,
		"multilinestring": `{"type":"MultiLineString","coordinates":[[[1,2],[3,4]]]}`,
		"polygon":         `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`,
		"multipolygon":    `{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,0]]]]}`,
		"collection":      `{"type":"GeometryCollection","geometries":[{"type":"Point","coordinates":[1,2]}]}`,
	}
	for name, in := range valid {
		t.Run(name, func(t *testing.T) {
			var g Geometry
			require.NoError(t, json.Unmarshal([]byte(in), &g))
			assert.NoError(t, g.Validate())
			assert.False(t, g.IsEmpty())
		})
	}

	malformed := map[string]string{
		"point no numbers":      `{"type":"Point","coordinates":[]}`,
		"point strings":         `{"type":"Point","coordinates":["a","b"]}`,
		"point one number":      `{"type":"Point","coordinates":[1]}`,
		"point four numbers":    `{"type":"Point","coordinates":[1,2,3,4]}`,
		"point nested":          `{"type":"Point","coordinates":[[1,2],[3]]}`,
		"point object":          `{"type":"Point","coordinates":{"x":1}}`,
		"point missing":         `{"type":"Point"}`,
		"linestring one":        `{"type":"LineString","coordinates":[[1,2]]}`,
		"linestring short pos":  `{"type":"LineString","coordinates":[[1,2],[3]]}`,
		"polygon open ring":     `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1]]]}`,
		"polygon short ring":    `{"type":"Polygon","coordinates":[[[0,0],[1,0],[0,0]]]}`,
		"polygon no rings":      `{"type":"Polygon","coordinates":[]}`,
		"multipolygon flat":     `{"type":"MultiPolygon","coordinates":[[0,0],[1,0]]}`,
		"collection bad member": `{"type":"GeometryCollection","geometries":[{"type":"Point","coordinates":[1]}]}`,
		"unknown type":          `{"type":"Circle","coordinates":[1,2]}`,
	}
	for name, in := range malformed {
		t.Run(name, func(t *testing.T) {
			var g Geometry
			require.NoError(t, json.Unmarshal([]byte(in), &g))
			assert.False(t, g.IsEmpty())
			assert.Error(t, g.Validate())
			_, _, ok := g.Point()
			assert.False(t, ok)
			_, err := g.Value()
			assert.Error(t, err)
		})
	}

	var g Geometry
	assert.Error(t, json.Unmarshal([]byte(`"Point"`), &g))
	require.NoError(t, json.Unmarshal([]byte(`null`), &g))
	assert.True(t, g.IsEmpty())
}

func TestGeometryScanValue(t *testing.T) {
	v, err := NewPoint(1, 2).Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Point","coordinates":[1,2]}`, v.(string))

	var g Geometry
	require.NoError(t, g.Scan([]byte(`{"type":"Point","coordinates":[1,2]}`)))
	assert.Equal(t, "Point", g.Type)

	require.NoError(t, g.Scan(nil))
	assert.True(t, g.IsEmpty())
	v, err = g.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.Error(t, g.Scan(42))
}

func TestUserPermissions(t *testing.T) {
	var nobody *UserAuth
	assert.False(t, nobody.CanViewLocations())

	viewer := &UserAuth{IsActive: true, IsStaff: true, Permissions: []string{PermViewLocation}}
	assert.True(t, viewer.CanViewLocations())
	assert.False(t, viewer.CanChangeLocations())

	changer := &UserAuth{IsActive: true, IsStaff: true, Permissions: []string{PermChangeLocation}}
	assert.True(t, changer.CanViewLocations())
	assert.True(t, changer.CanChangeLocations())

	notStaff := &UserAuth{IsActive: true, Permissions: []string{PermViewLocation}}
	assert.False(t, notStaff.CanViewLocations())

	root := &UserAuth{IsActive: true, IsSuperuser: true}
	assert.True(t, root.CanChangeLocations())
	root.IsActive = false
	assert.False(t, root.CanViewLocations())
}
