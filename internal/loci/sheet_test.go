package loci

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelth-com/loci/internal/models"
)

func TestFloorPlanSheet(t *testing.T) {
	f := newFixture(t)
	loc := f.location(t, "Warehouse", models.LocationIndoor)
	fp := f.floorplan(t, loc, 1)

	ref := f.device(t, "Forklift")
	_, err := f.svc.SaveObjectLocation(f.ctx, ref, ObjectLocationForm{
		LocationSelection:  SelectionExisting,
		Location:           loc.ID,
		Type:               models.LocationIndoor,
		Name:               loc.Name,
		Address:            loc.Address,
		Geometry:           loc.Geometry,
		FloorplanSelection: SelectionExisting,
		Floorplan:          fp.ID,
		Floor:              intPtr(1),
		Indoor:             "-10,20",
	})
	require.NoError(t, err)

	pdf, err := f.svc.FloorPlanSheet(f.ctx, fp.ID, "http://localhost/api/loci/locations/"+loc.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
}

func TestFloorPlanSheetErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.FloorPlanSheet(f.ctx, "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)

	loc := f.location(t, "Warehouse", models.LocationIndoor)
	fp := f.floorplan(t, loc, 0)
	require.NoError(t, f.store.Delete(f.ctx, fp.Image))
	_, err = f.svc.FloorPlanSheet(f.ctx, fp.ID, "")
	assert.ErrorIs(t, err, ErrNotFound)
}
