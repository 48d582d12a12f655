package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// GeoJSON geometry types accepted for Location.Geometry, with the array
// nesting depth of their positions.
var geometryDepth = map[string]int{
	"Point":           0,
	"MultiPoint":      1,
	"LineString":      1,
	"MultiLineString": 2,
	"Polygon":         2,
	"MultiPolygon":    3,
}

const geometryCollection = "GeometryCollection"

// Geometry is a GeoJSON geometry object stored as a JSON column.
// Positions are two dimensional; an altitude is accepted and dropped.
type Geometry struct {
	geojson.Geometry

	// shape problem found while decoding, reported by Validate
	invalid error
}

// NewPoint builds a Point geometry. GeoJSON order is longitude, latitude.
func NewPoint(lng, lat float64) *Geometry {
	return &Geometry{Geometry: *geojson.NewGeometry(orb.Point{lng, lat})}
}

// IsEmpty reports whether g carries no geometry at all.
func (g *Geometry) IsEmpty() bool {
	return g == nil || g.Type == ""
}

// Point returns longitude and latitude for Point geometries.
func (g *Geometry) Point() (lng, lat float64, ok bool) {
	if g.IsEmpty() || g.invalid != nil {
		return 0, 0, false
	}
	p, ok := g.Coordinates.(orb.Point)
	if !ok {
		return 0, 0, false
	}
	return p.Lon(), p.Lat(), true
}

// Validate checks the geometry is a well-formed GeoJSON geometry object.
func (g *Geometry) Validate() error {
	if g.IsEmpty() {
		return nil
	}
	if g.invalid != nil {
		return g.invalid
	}
	return validateGeometry(&g.Geometry)
}

func validateGeometry(g *geojson.Geometry) error {
	if g.Type == geometryCollection {
		for _, child := range g.Geometries {
			if child == nil {
				return errors.New("geometry collection member is null")
			}
			if err := validateGeometry(child); err != nil {
				return err
			}
		}
		return nil
	}
	if _, ok := geometryDepth[g.Type]; !ok {
		return fmt.Errorf("unsupported geometry type %q", g.Type)
	}
	if g.Coordinates == nil {
		return errors.New("geometry coordinates are missing")
	}
	if got := g.Coordinates.GeoJSONType(); got != g.Type {
		return fmt.Errorf("%s geometry holds %s coordinates", g.Type, got)
	}

	switch c := g.Coordinates.(type) {
	case orb.Point:
		return checkPoint(c)
	case orb.MultiPoint:
		return checkPoints(c)
	case orb.LineString:
		return checkLineString(c)
	case orb.MultiLineString:
		for _, ls := range c {
			if err := checkLineString(ls); err != nil {
				return err
			}
		}
	case orb.Polygon:
		return checkPolygon(c)
	case orb.MultiPolygon:
		for _, p := range c {
			if err := checkPolygon(p); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkPoint(p orb.Point) error {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("geometry position must be finite")
		}
	}
	return nil
}

func checkPoints(ps []orb.Point) error {
	for _, p := range ps {
		if err := checkPoint(p); err != nil {
			return err
		}
	}
	return nil
}

func checkLineString(ls orb.LineString) error {
	if len(ls) < 2 {
		return errors.New("a LineString needs at least 2 positions")
	}
	return checkPoints(ls)
}

func checkPolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return errors.New("a Polygon needs at least one ring")
	}
	for _, r := range p {
		if !r.Closed() {
			return errors.New("a Polygon ring needs at least 4 positions and must be closed")
		}
		if err := checkPoints(r); err != nil {
			return err
		}
	}
	return nil
}

// checkShape walks the raw coordinates down to each position. Decoding
// into orb pads short positions with zeros, so lengths are checked here.
func checkShape(data []byte) error {
	var raw struct {
		Type        string            `json:"type"`
		Coordinates json.RawMessage   `json:"coordinates"`
		Geometries  []json.RawMessage `json:"geometries"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid geometry: %w", err)
	}

	if raw.Type == geometryCollection {
		for _, child := range raw.Geometries {
			if err := checkShape(child); err != nil {
				return err
			}
		}
		return nil
	}
	depth, ok := geometryDepth[raw.Type]
	if !ok {
		return fmt.Errorf("unsupported geometry type %q", raw.Type)
	}
	if len(raw.Coordinates) == 0 || string(raw.Coordinates) == "null" {
		return errors.New("geometry coordinates are missing")
	}

	var coords interface{}
	if err := json.Unmarshal(raw.Coordinates, &coords); err != nil {
		return fmt.Errorf("invalid geometry coordinates: %w", err)
	}
	return checkNesting(coords, depth)
}

func checkNesting(v interface{}, depth int) error {
	arr, ok := v.([]interface{})
	if !ok {
		return errors.New("geometry coordinates must be an array")
	}
	if depth == 0 {
		if len(arr) < 2 || len(arr) > 3 {
			return fmt.Errorf("a position needs 2 or 3 numbers, got %d", len(arr))
		}
		for _, n := range arr {
			if _, ok := n.(float64); !ok {
				return errors.New("position values must be numbers")
			}
		}
		return nil
	}
	for _, el := range arr {
		if err := checkNesting(el, depth-1); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalJSON decodes a GeoJSON geometry. A malformed shape keeps the
// declared type so Validate can report it as a field error.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 || string(bytes.TrimSpace(data)) == "null" {
		*g = Geometry{}
		return nil
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	*g = Geometry{}
	g.Type = head.Type
	if err := checkShape(data); err != nil {
		g.invalid = err
		return nil
	}
	decoded, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		g.invalid = fmt.Errorf("invalid geometry: %w", err)
		return nil
	}
	g.Geometry = *decoded
	return nil
}

// MarshalJSON writes the GeoJSON geometry object
func (g Geometry) MarshalJSON() ([]byte, error) {
	return g.Geometry.MarshalJSON()
}

// Scan implements sql.Scanner
func (g *Geometry) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*g = Geometry{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal geometry value: %v", value)
	}
	return g.UnmarshalJSON(raw)
}

// Value implements driver.Valuer
func (g Geometry) Value() (driver.Value, error) {
	if g.Type == "" {
		return nil, nil
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	b, err := g.Geometry.MarshalJSON()
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return string(b), nil
}

// GormDataType gorm common data type
func (Geometry) GormDataType() string {
	return "json"
}

// GormDBDataType maps the column to jsonb on PostgreSQL
func (Geometry) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "JSONB"
	case "mysql":
		return "JSON"
	}
	return "JSON"
}
