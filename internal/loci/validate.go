package loci

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xelth-com/loci/internal/models"
)

const (
	msgRequired          = "This field is required."
	msgInvalidIndoor     = "invalid value"
	msgGeometryNull      = "geometry cannot be null"
	msgFloorplanIndoor   = `floorplans can only be associated to locations of type "indoor"`
	msgFloorplanMismatch = "Invalid floorplan (belongs to a different location)"
	msgFloorExists       = "Floor plan with this Location and Floor already exists."

	maxNameLength    = 75
	maxAddressLength = 256
	maxIndoorLength  = 64
)

func maxLength(limit int, value string) string {
	return fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", limit, utf8.RuneCountInString(value))
}

func invalidChoice(value string) string {
	return fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", value)
}

// ParseIndoor parses "x,y" into two finite floats. Anything else fails
// without saying which rule was broken.
func ParseIndoor(s string) (x, y float64, ok bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	var vals [2]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, false
		}
		vals[i] = v
	}
	return vals[0], vals[1], true
}

// ValidIndoor reports whether indoor is acceptable for a location of locType.
// Empty is valid for every type: indoor locations may not have received
// coordinates yet. Non-indoor locations accept nothing else.
func ValidIndoor(locType models.LocationType, indoor string) bool {
	if indoor == "" {
		return true
	}
	if locType != models.LocationIndoor {
		return false
	}
	_, _, ok := ParseIndoor(indoor)
	return ok
}

// CleanLocation validates the fields of a single location
func CleanLocation(loc *models.Location) Errors {
	errs := Errors{}
	if strings.TrimSpace(loc.Name) == "" {
		errs.Add("name", msgRequired)
	} else if utf8.RuneCountInString(loc.Name) > maxNameLength {
		errs.Add("name", maxLength(maxNameLength, loc.Name))
	}
	if loc.Type == "" {
		errs.Add("type", msgRequired)
	} else if !loc.Type.Valid() {
		errs.Add("type", invalidChoice(string(loc.Type)))
	}
	if utf8.RuneCountInString(loc.Address) > maxAddressLength {
		errs.Add("address", maxLength(maxAddressLength, loc.Address))
	}
	if loc.Geometry.IsEmpty() {
		if !loc.IsMobile {
			errs.Add("geometry", msgGeometryNull)
		}
	} else if err := loc.Geometry.Validate(); err != nil {
		errs.Add("geometry", "Invalid geometry value: "+err.Error())
	}
	return errs
}

// CleanFloorPlan checks the floorplan can belong to loc
func CleanFloorPlan(fp *models.FloorPlan, loc *models.Location) Errors {
	errs := Errors{}
	if loc == nil {
		errs.Add("location", msgRequired)
		return errs
	}
	if loc.Type != models.LocationIndoor {
		errs.Add(NonFieldErrors, msgFloorplanIndoor)
	}
	return errs
}

// CleanObjectLocation checks the cross-entity rules of an object location
// against its (already loaded) location and floorplan
func CleanObjectLocation(ol *models.ObjectLocation, loc *models.Location, fp *models.FloorPlan) Errors {
	errs := Errors{}
	if loc == nil {
		// nothing to check until a location is bound
		return errs
	}
	if loc.Type == models.LocationIndoor && fp != nil && fp.LocationID != loc.ID {
		errs.Add(NonFieldErrors, msgFloorplanMismatch)
	}
	indoor := ""
	if ol.Indoor != nil {
		indoor = *ol.Indoor
	}
	if utf8.RuneCountInString(indoor) > maxIndoorLength {
		errs.Add("indoor", maxLength(maxIndoorLength, indoor))
	} else if !ValidIndoor(loc.Type, indoor) {
		errs.Add("indoor", msgInvalidIndoor)
	}
	return errs
}
