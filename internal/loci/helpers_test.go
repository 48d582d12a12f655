package loci

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/xelth-com/loci/internal/broadcast"
	"github.com/xelth-com/loci/internal/content"
	"github.com/xelth-com/loci/internal/database/dbtest"
	"github.com/xelth-com/loci/internal/models"
	"github.com/xelth-com/loci/internal/storage"
)

type published struct {
	topic   string
	payload []byte
}

type recorder struct {
	mu   sync.Mutex
	msgs []published
}

func (r *recorder) Publish(topic string, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, published{topic: topic, payload: payload})
}

func (r *recorder) topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.topic)
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.msgs = nil
	r.mu.Unlock()
}

type fixture struct {
	svc   *Service
	db    *gorm.DB
	store *storage.FileStore
	pub   *recorder
	ctx   context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	store, err := storage.NewFileStore(t.TempDir(), "/media")
	require.NoError(t, err)

	registry := content.NewRegistry()
	require.NoError(t, registry.Register("device", content.GormResolver[models.Device](db)))

	pub := &recorder{}
	return &fixture{
		svc:   NewService(db, store, broadcast.NewBroadcaster(pub), registry),
		db:    db,
		store: store,
		pub:   pub,
		ctx:   context.Background(),
	}
}

func (f *fixture) device(t *testing.T, name string) content.Ref {
	t.Helper()
	d := &models.Device{Name: name}
	require.NoError(t, f.db.Create(d).Error)
	return content.Ref{Kind: "device", ID: d.ID}
}

func (f *fixture) location(t *testing.T, name string, typ models.LocationType) *models.Location {
	t.Helper()
	loc := &models.Location{
		Name:     name,
		Type:     typ,
		Address:  "Via del Corso, Roma, Italia",
		Geometry: models.NewPoint(12.512124, 41.898903),
	}
	require.NoError(t, f.svc.SaveLocation(f.ctx, loc))
	return loc
}

func (f *fixture) floorplan(t *testing.T, loc *models.Location, floor int16) *models.FloorPlan {
	t.Helper()
	fp, err := f.svc.CreateFloorPlan(f.ctx, loc.ID, floor, pngUpload(t, "plan.png", 40, 20))
	require.NoError(t, err)
	return fp
}

func (f *fixture) assetExists(t *testing.T, key string) bool {
	t.Helper()
	_, err := os.Stat(filepath.Join(f.store.Root(), filepath.FromSlash(key)))
	return err == nil
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	return img
}

func pngUpload(t *testing.T, filename string, w, h int) Upload {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return Upload{Filename: filename, ContentType: "image/png", Data: buf.Bytes()}
}

func jpegUpload(t *testing.T, filename string, w, h int) Upload {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), nil))
	return Upload{Filename: filename, ContentType: "image/jpeg", Data: buf.Bytes()}
}

func intPtr(v int) *int { return &v }

func strPtr(s string) *string { return &s }
