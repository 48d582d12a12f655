package loci

import (
	"context"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/xelth-com/loci/internal/models"
)

// Selection values of location_selection and floorplan_selection
const (
	SelectionNew      = "new"
	SelectionExisting = "existing"
)

const (
	msgRequiredForType     = "this field is required for locations of type %s"
	msgNoFloorplan         = "No floorplan selected"
	msgFloorplanMissing    = "Selected floorplan does not exist"
	msgFloorplanOtherPlace = "This floorplan is associated to a different location"
	msgLocationMissing     = "Selected location does not exist"
	maxFormAddressLength   = 128
)

// Upload is an uploaded floorplan image
type Upload struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"data"`
}

// ObjectLocationForm is the submission that creates or updates the location
// data of one host object in a single step
type ObjectLocationForm struct {
	LocationSelection  string              `json:"location_selection"`
	Location           string              `json:"location"`
	Type               models.LocationType `json:"type"`
	IsMobile           bool                `json:"is_mobile"`
	Name               string              `json:"name"`
	Address            string              `json:"address"`
	Geometry           *models.Geometry    `json:"geometry"`
	FloorplanSelection string              `json:"floorplan_selection"`
	Floorplan          string              `json:"floorplan"`
	Floor              *int                `json:"floor"`
	Image              *Upload             `json:"image,omitempty"`
	Indoor             string              `json:"indoor"`
}

// cleanedForm is a validated form with its references resolved
type cleanedForm struct {
	ObjectLocationForm
	location  *models.Location
	floorplan *models.FloorPlan
}

func validSelection(s string) bool {
	return s == "" || s == SelectionNew || s == SelectionExisting
}

// cleanForm runs the whole validation pass, collecting every error
func cleanForm(ctx context.Context, tx *gorm.DB, form ObjectLocationForm) (*cleanedForm, Errors) {
	errs := Errors{}
	data := &cleanedForm{ObjectLocationForm: form}

	// field level
	if !validSelection(data.LocationSelection) {
		errs.Add("location_selection", invalidChoice(data.LocationSelection))
	}
	if !validSelection(data.FloorplanSelection) {
		errs.Add("floorplan_selection", invalidChoice(data.FloorplanSelection))
	}
	if data.Type == "" {
		errs.Add("type", msgRequired)
	} else if !data.Type.Valid() {
		errs.Add("type", invalidChoice(string(data.Type)))
	}
	if utf8.RuneCountInString(data.Name) > maxNameLength {
		errs.Add("name", maxLength(maxNameLength, data.Name))
	}
	if utf8.RuneCountInString(data.Address) > maxFormAddressLength {
		errs.Add("address", maxLength(maxFormAddressLength, data.Address))
	}
	if utf8.RuneCountInString(data.Indoor) > maxIndoorLength {
		errs.Add("indoor", maxLength(maxIndoorLength, data.Indoor))
	}
	if data.Floor != nil && (*data.Floor < math.MinInt16 || *data.Floor > math.MaxInt16) {
		errs.Add("floor", fmt.Sprintf("Ensure this value is between %d and %d.", math.MinInt16, math.MaxInt16))
	}
	if !data.Geometry.IsEmpty() {
		if err := data.Geometry.Validate(); err != nil {
			errs.Add("geometry", "Invalid geometry value: "+err.Error())
		}
	}
	if data.Location != "" {
		var loc models.Location
		err := tx.WithContext(ctx).Where("id = ?", data.Location).First(&loc).Error
		switch {
		case err == nil:
			data.location = &loc
		case errors.Is(err, gorm.ErrRecordNotFound):
			errs.Add("location", msgLocationMissing)
		default:
			errs.Add("location", err.Error())
		}
	}

	// floorplan resolution
	if fp, msg := cleanFloorplan(ctx, tx, data); msg != "" {
		errs.Add("floorplan", msg)
	} else {
		data.floorplan = fp
	}

	// form level: conditional requirements per type
	var required []string
	if !data.IsMobile && (data.Type == models.LocationOutdoor || data.Type == models.LocationIndoor) {
		required = append(required, "location_selection", "name", "address", "geometry")
		if data.LocationSelection == SelectionExisting {
			required = append(required, "location")
		}
	}
	if !data.IsMobile && data.Type == models.LocationIndoor {
		required = append(required, "floorplan_selection", "floor", "indoor")
		switch data.FloorplanSelection {
		case SelectionExisting:
			required = append(required, "floorplan")
		case SelectionNew:
			required = append(required, "image")
		}
	} else if data.IsMobile && data.location == nil && !errs.Has("location") {
		data.Name = ""
		data.Address = ""
		data.Geometry = nil
		data.LocationSelection = SelectionNew
	} else if data.IsMobile && data.location != nil {
		data.LocationSelection = SelectionExisting
	}
	for _, field := range required {
		if data.empty(field) && !errs.Has(field) {
			errs.Add(field, fmt.Sprintf(msgRequiredForType, data.Type))
		}
	}

	// indoor position against the submitted type
	if !errs.Has("indoor") && !ValidIndoor(data.Type, data.Indoor) {
		errs.Add("indoor", msgInvalidIndoor)
	}

	return data, errs
}

// cleanFloorplan resolves the selected floorplan. It returns a message
// when resolution fails; nil with no message means no floorplan is bound.
func cleanFloorplan(ctx context.Context, tx *gorm.DB, data *cleanedForm) (*models.FloorPlan, string) {
	if data.Type != models.LocationIndoor || data.FloorplanSelection == SelectionNew {
		return nil, ""
	}
	if data.Floorplan == "" {
		return nil, msgNoFloorplan
	}
	var fp models.FloorPlan
	if err := tx.WithContext(ctx).Where("id = ?", data.Floorplan).First(&fp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, msgFloorplanMissing
		}
		return nil, err.Error()
	}
	if data.location == nil || fp.LocationID != data.location.ID {
		return nil, msgFloorplanOtherPlace
	}
	return &fp, ""
}

func (d *cleanedForm) empty(field string) bool {
	switch field {
	case "location_selection":
		return d.LocationSelection == ""
	case "location":
		return d.Location == ""
	case "name":
		return d.Name == ""
	case "address":
		return d.Address == ""
	case "geometry":
		return d.Geometry.IsEmpty()
	case "floorplan_selection":
		return d.FloorplanSelection == ""
	case "floorplan":
		return d.Floorplan == ""
	case "floor":
		return d.Floor == nil
	case "image":
		return d.Image == nil || len(d.Image.Data) == 0
	case "indoor":
		return d.Indoor == ""
	}
	return false
}
