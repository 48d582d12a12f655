package loci

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/xelth-com/loci/internal/content"
	"github.com/xelth-com/loci/internal/printer"
	"github.com/xelth-com/loci/internal/storage"
)

// ErrNoStream is returned when the asset store cannot read images back
var ErrNoStream = errors.New("asset store cannot stream images")

// FloorPlanSheet renders a printable PDF of a floorplan with a marker for
// every positioned object. link is encoded in the QR code.
func (s *Service) FloorPlanSheet(ctx context.Context, floorplanID, link string) ([]byte, error) {
	fp, err := s.GetFloorPlan(ctx, floorplanID)
	if err != nil {
		return nil, err
	}
	opener, ok := s.assets.(storage.Opener)
	if !ok {
		return nil, ErrNoStream
	}
	rc, err := opener.Open(ctx, fp.Image)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("floorplan image %s: %w", fp.Image, ErrNotFound)
		}
		return nil, err
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("reading floorplan image: %w", err)
	}

	ols, err := s.ObjectLocationsOnFloorPlan(ctx, fp.ID)
	if err != nil {
		return nil, err
	}
	markers := make([]printer.Marker, 0, len(ols))
	for _, ol := range ols {
		if ol.Indoor == nil {
			continue
		}
		lat, lng, ok := ParseIndoor(*ol.Indoor)
		if !ok {
			continue
		}
		label := s.Describe(ctx, content.Ref{Kind: ol.ContentType, ID: ol.ObjectID})
		markers = append(markers, printer.MarkerFromIndoor(label, lat, lng))
	}

	subtitle := ""
	if fp.Location != nil {
		subtitle = fp.Location.Address
	}
	return printer.GenerateFloorPlanSheet(printer.SheetConfig{
		Title:       fp.String(),
		Subtitle:    subtitle,
		Image:       data,
		ImageWidth:  fp.ImageWidth,
		ImageHeight: fp.ImageHeight,
		Markers:     markers,
		Link:        link,
	})
}
