package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LocationType classifies a Location
type LocationType string

const (
	LocationOutdoor LocationType = "outdoor" // street, square, garden, land
	LocationIndoor  LocationType = "indoor"  // building, roofs, subway, large vehicles
)

// ObjectLocationMobile is the derived kind of an ObjectLocation whose Location moves
const ObjectLocationMobile = "mobile"

// Valid reports whether t is one of the known location types
func (t LocationType) Valid() bool {
	return t == LocationOutdoor || t == LocationIndoor
}

// Location is a named place, outdoor or indoor, optionally mobile.
// Convention: Go PascalCase -> DB snake_case (GORM auto) -> JSON snake_case
type Location struct {
	ID        string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name      string       `gorm:"type:varchar(75);not null" json:"name"`
	Type      LocationType `gorm:"type:varchar(8);not null;index" json:"type"`
	IsMobile  bool         `gorm:"default:false;index" json:"is_mobile"`
	Address   string       `gorm:"type:varchar(256);index" json:"address"`
	Geometry  *Geometry    `json:"geometry"`
	CreatedAt time.Time    `json:"created"`
	UpdatedAt time.Time    `json:"modified"`

	// Relations
	FloorPlans []FloorPlan `gorm:"foreignKey:LocationID" json:"-"`
}

// TableName specifies the table name for Location model
func (Location) TableName() string {
	return "loci_locations"
}

// BeforeCreate assigns a UUID when the caller did not choose one
func (l *Location) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}

func (l Location) String() string {
	return l.Name
}

// ShortType returns the capitalized type, as shown in list views
func (l Location) ShortType() string {
	if l.Type == "" {
		return ""
	}
	s := string(l.Type)
	return strings.ToUpper(s[:1]) + s[1:]
}

// FloorPlan is the image of one floor of an indoor Location
type FloorPlan struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	LocationID  string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_floorplan_location_floor" json:"location"`
	Floor       int16     `gorm:"not null;uniqueIndex:idx_floorplan_location_floor" json:"floor"`
	Image       string    `gorm:"type:varchar(255);not null" json:"image"`
	ImageWidth  int       `json:"image_width"`
	ImageHeight int       `json:"image_height"`
	CreatedAt   time.Time `json:"created"`
	UpdatedAt   time.Time `json:"modified"`

	// Relations
	Location *Location `gorm:"foreignKey:LocationID" json:"-"`
}

// TableName specifies the table name for FloorPlan model
func (FloorPlan) TableName() string {
	return "loci_floorplans"
}

// BeforeCreate assigns a UUID when the caller did not choose one
func (f *FloorPlan) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return nil
}

// String renders e.g. "HQ 2nd floor" or "HQ ground floor".
// Location must be loaded for the name prefix.
func (f FloorPlan) String() string {
	name := ""
	if f.Location != nil {
		name = f.Location.Name
	}
	if f.Floor == 0 {
		return fmt.Sprintf("%s ground floor", name)
	}
	return fmt.Sprintf("%s %s floor", name, Ordinal(int(f.Floor)))
}

// Ordinal formats n as 1st, 2nd, 3rd, 4th, 11th, -1st ...
func Ordinal(n int) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}
	suffix := "th"
	if abs%100 < 11 || abs%100 > 13 {
		switch abs % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// ObjectLocation binds an arbitrary host object to a Location, optionally
// with a FloorPlan and an indoor position on it. One per host object.
type ObjectLocation struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ContentType string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_object_location_content" json:"content_type"`
	ObjectID    string    `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_object_location_content" json:"object_id"`
	LocationID  *string   `gorm:"type:varchar(36);index" json:"location"`
	FloorPlanID *string   `gorm:"column:floorplan_id;type:varchar(36);index" json:"floorplan"`
	Indoor      *string   `gorm:"type:varchar(64)" json:"indoor"`
	CreatedAt   time.Time `json:"created"`
	UpdatedAt   time.Time `json:"modified"`

	// Relations
	Location  *Location  `gorm:"foreignKey:LocationID" json:"-"`
	FloorPlan *FloorPlan `gorm:"foreignKey:FloorPlanID" json:"-"`
}

// TableName specifies the table name for ObjectLocation model
func (ObjectLocation) TableName() string {
	return "loci_object_locations"
}

// BeforeCreate assigns a UUID when the caller did not choose one
func (o *ObjectLocation) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}

// Kind derives outdoor/indoor/mobile from the related Location.
// Location must be loaded; an unbound record has no kind.
func (o ObjectLocation) Kind() string {
	if o.Location == nil {
		return ""
	}
	if o.Location.IsMobile {
		return ObjectLocationMobile
	}
	return string(o.Location.Type)
}
