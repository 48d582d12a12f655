package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/xelth-com/loci/internal/content"
	"github.com/xelth-com/loci/internal/loci"
	"github.com/xelth-com/loci/internal/models"
)

// Fixtures is the seed file layout. Floorplan images are read relative to
// the fixture file.
type Fixtures struct {
	Users     []userFixture     `yaml:"users"`
	Devices   []deviceFixture   `yaml:"devices"`
	Locations []locationFixture `yaml:"locations"`
	Objects   []objectFixture   `yaml:"objects"`
}

type userFixture struct {
	Username    string   `yaml:"username"`
	Email       string   `yaml:"email"`
	Password    string   `yaml:"password"`
	Name        string   `yaml:"name"`
	Staff       bool     `yaml:"staff"`
	Superuser   bool     `yaml:"superuser"`
	Permissions []string `yaml:"permissions"`
}

type deviceFixture struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type locationFixture struct {
	Name       string             `yaml:"name"`
	Type       string             `yaml:"type"`
	Mobile     bool               `yaml:"mobile"`
	Address    string             `yaml:"address"`
	Lat        *float64           `yaml:"lat"`
	Lng        *float64           `yaml:"lng"`
	FloorPlans []floorPlanFixture `yaml:"floorplans"`
}

type floorPlanFixture struct {
	Floor int16  `yaml:"floor"`
	Image string `yaml:"image"`
}

// objectFixture places a device. Either Location names a seeded location
// (with Floor and Indoor when it is indoor) or Mobile is set with a position.
type objectFixture struct {
	Device   string   `yaml:"device"`
	Location string   `yaml:"location"`
	Floor    *int     `yaml:"floor"`
	Indoor   string   `yaml:"indoor"`
	Mobile   bool     `yaml:"mobile"`
	Lat      *float64 `yaml:"lat"`
	Lng      *float64 `yaml:"lng"`
}

// SeedResult counts what a seed run created
type SeedResult struct {
	Users      int
	Devices    int
	Locations  int
	FloorPlans int
	Objects    int
	Skipped    int
}

func newSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users, devices and locations from a YAML file",
		Long:  "Loads fixtures into the database. Records that already exist (matched by name) are skipped.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, file)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", defaultFixtureFile, "Fixture file")

	return cmd
}

func runSeed(cmd *cobra.Command, file string) error {
	fx, err := loadFixtures(file)
	if err != nil {
		return err
	}

	return withDeps(cmd.Context(), func(d *Deps) error {
		s := &seeder{db: d.DB, svc: d.Service, dir: filepath.Dir(file)}
		res, err := s.seed(cmd.Context(), fx)
		if err != nil {
			return err
		}
		fmt.Printf("Seeded %d users, %d devices, %d locations, %d floorplans, %d object locations",
			res.Users, res.Devices, res.Locations, res.FloorPlans, res.Objects)
		if res.Skipped > 0 {
			fmt.Printf(" (%d skipped)", res.Skipped)
		}
		fmt.Println()
		return nil
	})
}

func loadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixtures: %w", err)
	}
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parsing fixtures %s: %w", path, err)
	}
	return &fx, nil
}

type seeder struct {
	db  *gorm.DB
	svc *loci.Service
	dir string

	devices   map[string]*models.Device
	locations map[string]*models.Location
}

func (s *seeder) seed(ctx context.Context, fx *Fixtures) (*SeedResult, error) {
	s.devices = make(map[string]*models.Device)
	s.locations = make(map[string]*models.Location)
	res := &SeedResult{}

	for _, u := range fx.Users {
		if _, err := createUser(ctx, s.db, u); err != nil {
			if errors.Is(err, errUserExists) {
				res.Skipped++
				continue
			}
			return nil, err
		}
		res.Users++
	}

	for _, d := range fx.Devices {
		created, err := s.seedDevice(ctx, d)
		if err != nil {
			return nil, err
		}
		if created {
			res.Devices++
		} else {
			res.Skipped++
		}
	}

	for _, l := range fx.Locations {
		if err := s.seedLocation(ctx, l, res); err != nil {
			return nil, err
		}
	}

	for _, o := range fx.Objects {
		if err := s.seedObject(ctx, o); err != nil {
			return nil, fmt.Errorf("placing %s: %w", o.Device, err)
		}
		res.Objects++
	}

	return res, nil
}

func (s *seeder) seedDevice(ctx context.Context, d deviceFixture) (bool, error) {
	var existing models.Device
	err := s.db.WithContext(ctx).Where("name = ?", d.Name).First(&existing).Error
	if err == nil {
		s.devices[d.Name] = &existing
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("looking up device %s: %w", d.Name, err)
	}

	dev := &models.Device{ID: d.ID, Name: d.Name}
	if err := s.db.WithContext(ctx).Create(dev).Error; err != nil {
		return false, fmt.Errorf("creating device %s: %w", d.Name, err)
	}
	s.devices[d.Name] = dev
	return true, nil
}

func (s *seeder) seedLocation(ctx context.Context, l locationFixture, res *SeedResult) error {
	var loc models.Location
	err := s.db.WithContext(ctx).Where("name = ?", l.Name).First(&loc).Error
	switch {
	case err == nil:
		res.Skipped++
	case errors.Is(err, gorm.ErrRecordNotFound):
		loc = models.Location{
			Name:     l.Name,
			Type:     models.LocationType(l.Type),
			IsMobile: l.Mobile,
			Address:  l.Address,
			Geometry: point(l.Lat, l.Lng),
		}
		if err := s.svc.SaveLocation(ctx, &loc); err != nil {
			return fmt.Errorf("location %s: %w", l.Name, err)
		}
		res.Locations++
	default:
		return fmt.Errorf("looking up location %s: %w", l.Name, err)
	}
	s.locations[l.Name] = &loc

	if len(l.FloorPlans) == 0 {
		return nil
	}
	existing, err := s.svc.FloorPlans(ctx, loc.ID)
	if err != nil {
		return err
	}
	floors := make(map[int16]bool, len(existing))
	for _, fp := range existing {
		floors[fp.Floor] = true
	}
	for _, f := range l.FloorPlans {
		if floors[f.Floor] {
			res.Skipped++
			continue
		}
		path := f.Image
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.dir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("floorplan image: %w", err)
		}
		upload := loci.Upload{Filename: filepath.Base(path), Data: data}
		if _, err := s.svc.CreateFloorPlan(ctx, loc.ID, f.Floor, upload); err != nil {
			return fmt.Errorf("floorplan %d of %s: %w", f.Floor, l.Name, err)
		}
		res.FloorPlans++
	}
	return nil
}

func (s *seeder) seedObject(ctx context.Context, o objectFixture) error {
	dev, ok := s.devices[o.Device]
	if !ok {
		return fmt.Errorf("device %q is not in the fixtures", o.Device)
	}

	ref := content.Ref{Kind: "device", ID: dev.ID}

	var form loci.ObjectLocationForm
	if o.Mobile {
		form = loci.ObjectLocationForm{
			Type:     models.LocationOutdoor,
			IsMobile: true,
			Geometry: point(o.Lat, o.Lng),
		}
		// keep moving the same mobile location on re-runs
		ol, err := s.svc.GetObjectLocation(ctx, ref)
		switch {
		case err == nil && ol.Location != nil && ol.Location.IsMobile:
			form.LocationSelection = loci.SelectionExisting
			form.Location = ol.Location.ID
		case err != nil && !errors.Is(err, loci.ErrNotFound):
			return err
		}
	} else {
		loc, ok := s.locations[o.Location]
		if !ok {
			return fmt.Errorf("location %q is not in the fixtures", o.Location)
		}
		form = loci.ObjectLocationForm{
			LocationSelection: loci.SelectionExisting,
			Location:          loc.ID,
			Type:              loc.Type,
			Name:              loc.Name,
			Address:           loc.Address,
			Geometry:          loc.Geometry,
			Indoor:            o.Indoor,
		}
		if loc.Type == models.LocationIndoor && o.Floor != nil {
			fp, err := s.floorPlan(ctx, loc.ID, *o.Floor)
			if err != nil {
				return err
			}
			form.FloorplanSelection = loci.SelectionExisting
			form.Floorplan = fp.ID
			form.Floor = o.Floor
		}
	}

	_, err := s.svc.SaveObjectLocation(ctx, ref, form)
	return err
}

func (s *seeder) floorPlan(ctx context.Context, locationID string, floor int) (*models.FloorPlan, error) {
	fps, err := s.svc.FloorPlans(ctx, locationID)
	if err != nil {
		return nil, err
	}
	for i := range fps {
		if int(fps[i].Floor) == floor {
			return &fps[i], nil
		}
	}
	return nil, fmt.Errorf("no floorplan for floor %d", floor)
}

func point(lat, lng *float64) *models.Geometry {
	if lat == nil || lng == nil {
		return nil
	}
	return models.NewPoint(*lng, *lat)
}
