package loci

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/loci/internal/broadcast"
	"github.com/xelth-com/loci/internal/content"
	"github.com/xelth-com/loci/internal/models"
	"github.com/xelth-com/loci/internal/storage"
)

const msgInvalidImage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."

// Service owns every write to locations, floorplans and object locations so
// the consistency rules and the live broadcast run on each save
type Service struct {
	db          *gorm.DB
	assets      storage.AssetStore
	broadcaster *broadcast.Broadcaster
	registry    *content.Registry
}

// NewService wires the service. broadcaster may be nil to disable live updates.
func NewService(db *gorm.DB, assets storage.AssetStore, broadcaster *broadcast.Broadcaster, registry *content.Registry) *Service {
	return &Service{
		db:          db,
		assets:      assets,
		broadcaster: broadcaster,
		registry:    registry,
	}
}

// saveOutcome carries the side effects that must wait for the commit
type saveOutcome struct {
	location        *models.Location
	locationCreated bool
	staleAssets     []string
}

func (s *Service) finish(ctx context.Context, out *saveOutcome) {
	for _, key := range out.staleAssets {
		storage.RemoveQuietly(ctx, s.assets, key)
	}
	if out.location != nil {
		s.broadcaster.LocationSaved(out.location, out.locationCreated)
	}
}

// ---------------------------------------------------------------------------
// Locations

// LocationFilter narrows ListLocations
type LocationFilter struct {
	Type     models.LocationType
	IsMobile *bool
	Search   string
}

// ListLocations returns locations ordered by name
func (s *Service) ListLocations(ctx context.Context, f LocationFilter) ([]models.Location, error) {
	q := s.db.WithContext(ctx).Model(&models.Location{})
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.IsMobile != nil {
		q = q.Where("is_mobile = ?", *f.IsMobile)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("name LIKE ? OR address LIKE ?", like, like)
	}
	var locations []models.Location
	if err := q.Order("name").Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}

// GetLocation loads one location
func (s *Service) GetLocation(ctx context.Context, id string) (*models.Location, error) {
	return findLocation(s.db.WithContext(ctx), id)
}

// LocationExists reports whether id names a location
func (s *Service) LocationExists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Location{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// SaveLocation creates or updates loc. Changing an indoor location to any
// other type deletes its floorplans and clears the indoor data of the object
// locations that used them, in the same transaction.
func (s *Service) SaveLocation(ctx context.Context, loc *models.Location) error {
	var out *saveOutcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = saveLocation(tx, loc)
		return err
	})
	if err != nil {
		return err
	}
	s.finish(ctx, out)
	return nil
}

// DeleteLocation removes a location and its floorplans. Locations still bound
// to object locations are protected.
func (s *Service) DeleteLocation(ctx context.Context, id string) error {
	out := &saveOutcome{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loc, err := findLocation(tx, id)
		if err != nil {
			return err
		}
		var refs int64
		if err := tx.Model(&models.ObjectLocation{}).Where("location_id = ?", loc.ID).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("location %s: %w", loc.ID, ErrProtected)
		}
		out.staleAssets, err = deleteFloorPlansOf(tx, loc.ID)
		if err != nil {
			return err
		}
		return tx.Delete(loc).Error
	})
	if err != nil {
		return err
	}
	s.finish(ctx, out)
	return nil
}

func findLocation(tx *gorm.DB, id string) (*models.Location, error) {
	var loc models.Location
	if err := tx.Where("id = ?", id).First(&loc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("location %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &loc, nil
}

// saveLocation validates and writes loc inside tx
func saveLocation(tx *gorm.DB, loc *models.Location) (*saveOutcome, error) {
	if errs := CleanLocation(loc); len(errs) > 0 {
		return nil, errs
	}
	out := &saveOutcome{location: loc}

	exists := false
	if loc.ID != "" {
		var count int64
		if err := tx.Model(&models.Location{}).Where("id = ?", loc.ID).Count(&count).Error; err != nil {
			return nil, err
		}
		exists = count > 0
	}

	if !exists {
		if err := tx.Omit(clause.Associations).Create(loc).Error; err != nil {
			return nil, fmt.Errorf("creating location: %w", err)
		}
		out.locationCreated = true
		return out, nil
	}

	if loc.Type != models.LocationIndoor {
		// cascade: a non-indoor location cannot keep floorplans
		err := tx.Model(&models.ObjectLocation{}).
			Where("location_id = ?", loc.ID).
			Updates(map[string]interface{}{"floorplan_id": nil, "indoor": nil}).Error
		if err != nil {
			return nil, fmt.Errorf("clearing indoor positions: %w", err)
		}
		out.staleAssets, err = deleteFloorPlansOf(tx, loc.ID)
		if err != nil {
			return nil, err
		}
	}
	if err := tx.Omit(clause.Associations).Save(loc).Error; err != nil {
		return nil, fmt.Errorf("updating location: %w", err)
	}
	return out, nil
}

// deleteFloorPlansOf deletes the floorplans of a location and returns their image keys
func deleteFloorPlansOf(tx *gorm.DB, locationID string) ([]string, error) {
	var fps []models.FloorPlan
	if err := tx.Where("location_id = ?", locationID).Find(&fps).Error; err != nil {
		return nil, err
	}
	if len(fps) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(fps))
	for _, fp := range fps {
		keys = append(keys, fp.Image)
	}
	if err := tx.Where("location_id = ?", locationID).Delete(&models.FloorPlan{}).Error; err != nil {
		return nil, fmt.Errorf("deleting floorplans: %w", err)
	}
	log.Printf("🗑️ Deleted %d floorplans of location %s", len(fps), locationID)
	return keys, nil
}

// ---------------------------------------------------------------------------
// Floorplans

// FloorPlans lists the floorplans of a location ordered by floor
func (s *Service) FloorPlans(ctx context.Context, locationID string) ([]models.FloorPlan, error) {
	loc, err := s.GetLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	var fps []models.FloorPlan
	if err := s.db.WithContext(ctx).Where("location_id = ?", loc.ID).Order("floor").Find(&fps).Error; err != nil {
		return nil, err
	}
	for i := range fps {
		fps[i].Location = loc
	}
	return fps, nil
}

// GetFloorPlan loads one floorplan with its location
func (s *Service) GetFloorPlan(ctx context.Context, id string) (*models.FloorPlan, error) {
	return findFloorPlan(s.db.WithContext(ctx), id)
}

func findFloorPlan(tx *gorm.DB, id string) (*models.FloorPlan, error) {
	var fp models.FloorPlan
	if err := tx.Preload("Location").Where("id = ?", id).First(&fp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("floorplan %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &fp, nil
}

// CreateFloorPlan adds a floor to an indoor location
func (s *Service) CreateFloorPlan(ctx context.Context, locationID string, floor int16, image Upload) (*models.FloorPlan, error) {
	var fp *models.FloorPlan
	var uploaded string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loc, err := findLocation(tx, locationID)
		if err != nil {
			return err
		}
		fp = &models.FloorPlan{ID: uuid.New().String(), LocationID: loc.ID, Floor: floor, Location: loc}
		uploaded, err = s.writeFloorPlan(ctx, tx, fp, loc, &image, true)
		return err
	})
	if err != nil {
		if uploaded != "" {
			storage.RemoveQuietly(ctx, s.assets, uploaded)
		}
		return nil, err
	}
	return fp, nil
}

// UpdateFloorPlan changes the floor number and/or replaces the image.
// The image is stored under the same key, so the old bytes are overwritten.
func (s *Service) UpdateFloorPlan(ctx context.Context, id string, floor *int16, image *Upload) (*models.FloorPlan, error) {
	var fp *models.FloorPlan
	var stale string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		fp, err = findFloorPlan(tx, id)
		if err != nil {
			return err
		}
		if floor != nil {
			fp.Floor = *floor
		}
		previous := fp.Image
		if _, err := s.writeFloorPlan(ctx, tx, fp, fp.Location, image, false); err != nil {
			return err
		}
		if previous != fp.Image {
			stale = previous
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if stale != "" {
		storage.RemoveQuietly(ctx, s.assets, stale)
	}
	return fp, nil
}

// DeleteFloorPlan removes the record, then its image on a best-effort basis
func (s *Service) DeleteFloorPlan(ctx context.Context, id string) error {
	var key string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fp, err := findFloorPlan(tx, id)
		if err != nil {
			return err
		}
		var refs int64
		if err := tx.Model(&models.ObjectLocation{}).Where("floorplan_id = ?", fp.ID).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("floorplan %s: %w", fp.ID, ErrProtected)
		}
		key = fp.Image
		return tx.Delete(fp).Error
	})
	if err != nil {
		return err
	}
	storage.RemoveQuietly(ctx, s.assets, key)
	return nil
}

// writeFloorPlan validates fp, stores image when given and creates or
// updates the row. It returns the key it uploaded to.
func (s *Service) writeFloorPlan(ctx context.Context, tx *gorm.DB, fp *models.FloorPlan, loc *models.Location, image *Upload, create bool) (string, error) {
	errs := CleanFloorPlan(fp, loc)
	var clash int64
	if err := tx.Model(&models.FloorPlan{}).
		Where("location_id = ? AND floor = ? AND id <> ?", fp.LocationID, fp.Floor, fp.ID).
		Count(&clash).Error; err != nil {
		return "", err
	}
	if clash > 0 {
		errs.Add(NonFieldErrors, msgFloorExists)
	}
	if create && (image == nil || len(image.Data) == 0) {
		errs.Add("image", msgRequired)
	}
	var width, height int
	if image != nil && len(image.Data) > 0 {
		var err error
		width, height, err = storage.ImageSize(bytes.NewReader(image.Data))
		if err != nil {
			errs.Add("image", msgInvalidImage)
		}
	}
	if len(errs) > 0 {
		return "", errs
	}

	var uploaded string
	if image != nil && len(image.Data) > 0 {
		key := storage.FloorplanKey(fp.ID, image.Filename)
		contentType := image.ContentType
		if contentType == "" {
			contentType = storage.ContentTypeFor(key)
		}
		if _, err := s.assets.Put(ctx, key, bytes.NewReader(image.Data), int64(len(image.Data)), contentType); err != nil {
			return "", fmt.Errorf("storing floorplan image: %w", err)
		}
		uploaded = key
		fp.Image = key
		fp.ImageWidth = width
		fp.ImageHeight = height
	}

	var err error
	if create {
		err = tx.Omit(clause.Associations).Create(fp).Error
	} else {
		err = tx.Omit(clause.Associations).Save(fp).Error
	}
	if err != nil {
		return uploaded, fmt.Errorf("saving floorplan: %w", err)
	}
	return uploaded, nil
}

// ImageURL returns the public URL of a floorplan image
func (s *Service) ImageURL(fp *models.FloorPlan) string {
	return s.assets.URL(fp.Image)
}

// ---------------------------------------------------------------------------
// Object locations

// GetObjectLocation loads the object location of a host object
func (s *Service) GetObjectLocation(ctx context.Context, ref content.Ref) (*models.ObjectLocation, error) {
	return findObjectLocation(s.db.WithContext(ctx), ref)
}

func findObjectLocation(tx *gorm.DB, ref content.Ref) (*models.ObjectLocation, error) {
	var ol models.ObjectLocation
	err := tx.Preload("Location").Preload("FloorPlan").Preload("FloorPlan.Location").
		Where("content_type = ? AND object_id = ?", ref.Kind, ref.ID).
		First(&ol).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("object location of %s: %w", ref, ErrNotFound)
		}
		return nil, err
	}
	return &ol, nil
}

// ObjectLocationsOnFloorPlan lists the objects positioned on a floorplan
func (s *Service) ObjectLocationsOnFloorPlan(ctx context.Context, floorplanID string) ([]models.ObjectLocation, error) {
	var ols []models.ObjectLocation
	err := s.db.WithContext(ctx).Where("floorplan_id = ?", floorplanID).Order("created_at").Find(&ols).Error
	return ols, err
}

// SaveObjectLocation validates form and writes the host object's location,
// floorplan and object location as one transaction
func (s *Service) SaveObjectLocation(ctx context.Context, ref content.Ref, form ObjectLocationForm) (*models.ObjectLocation, error) {
	host, err := s.registry.Resolve(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	var out *saveOutcome
	var uploaded string
	var createdFloorPlan bool
	var ol *models.ObjectLocation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		data, errs := cleanForm(ctx, tx, form)
		if len(errs) > 0 {
			return errs
		}

		existing, err := findObjectLocation(tx, ref)
		switch {
		case err == nil:
			ol = existing
		case errors.Is(err, ErrNotFound):
			ol = &models.ObjectLocation{ContentType: ref.Kind, ObjectID: ref.ID}
		default:
			return err
		}

		// create or update location
		loc := data.location
		if loc == nil {
			loc = &models.Location{}
		}
		if data.Type != "" {
			loc.Type = data.Type
		}
		loc.IsMobile = data.IsMobile
		if data.Name != "" {
			loc.Name = data.Name
		}
		if data.Address != "" {
			loc.Address = data.Address
		}
		if !data.Geometry.IsEmpty() {
			loc.Geometry = data.Geometry
		}
		if loc.IsMobile && loc.Name == "" {
			loc.Name = host.DisplayName()
		}
		out, err = saveLocation(tx, loc)
		if err != nil {
			return err
		}
		ol.LocationID = &loc.ID
		ol.Location = loc

		// create or update floorplan
		var fp *models.FloorPlan
		if data.Type == models.LocationIndoor && (data.floorplan != nil || data.FloorplanSelection == SelectionNew) {
			fp = data.floorplan
			create := fp == nil
			if create {
				fp = &models.FloorPlan{ID: uuid.New().String()}
			}
			fp.LocationID = loc.ID
			fp.Location = loc
			if data.Floor != nil {
				fp.Floor = int16(*data.Floor)
			}
			previous := fp.Image
			createdFloorPlan = create
			uploaded, err = s.writeFloorPlan(ctx, tx, fp, loc, data.Image, create)
			if err != nil {
				return err
			}
			if previous != "" && previous != fp.Image {
				out.staleAssets = append(out.staleAssets, previous)
			}
		}
		if fp != nil {
			ol.FloorPlanID = &fp.ID
		} else {
			ol.FloorPlanID = nil
		}
		ol.FloorPlan = fp
		if data.Indoor != "" && data.Type == models.LocationIndoor {
			indoor := data.Indoor
			ol.Indoor = &indoor
		} else {
			ol.Indoor = nil
		}

		if errs := CleanObjectLocation(ol, loc, fp); len(errs) > 0 {
			return errs
		}
		if ol.ID == "" {
			return tx.Omit(clause.Associations).Create(ol).Error
		}
		return tx.Omit(clause.Associations).Save(ol).Error
	})
	if err != nil {
		if uploaded != "" && createdFloorPlan {
			storage.RemoveQuietly(ctx, s.assets, uploaded)
		}
		return nil, err
	}
	s.finish(ctx, out)
	return ol, nil
}

// DeleteObjectLocation unbinds a host object. Mobile locations belong to
// their object location and are deleted with it.
func (s *Service) DeleteObjectLocation(ctx context.Context, ref content.Ref) error {
	out := &saveOutcome{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ol, err := findObjectLocation(tx, ref)
		if err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Delete(ol).Error; err != nil {
			return err
		}
		if ol.Location == nil || !ol.Location.IsMobile {
			return nil
		}
		var others int64
		if err := tx.Model(&models.ObjectLocation{}).Where("location_id = ?", ol.Location.ID).Count(&others).Error; err != nil {
			return err
		}
		if others > 0 {
			return nil
		}
		out.staleAssets, err = deleteFloorPlansOf(tx, ol.Location.ID)
		if err != nil {
			return err
		}
		return tx.Delete(ol.Location).Error
	})
	if err != nil {
		return err
	}
	s.finish(ctx, out)
	return nil
}

// Describe returns the display name of a host object, or its reference when
// it cannot be resolved
func (s *Service) Describe(ctx context.Context, ref content.Ref) string {
	obj, err := s.registry.Resolve(ctx, ref)
	if err != nil || obj.DisplayName() == "" {
		return ref.String()
	}
	return obj.DisplayName()
}
