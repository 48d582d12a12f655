package websocket

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/xelth-com/loci/internal/broadcast"
	"github.com/xelth-com/loci/internal/metrics"
	"github.com/xelth-com/loci/internal/middleware"
	"github.com/xelth-com/loci/internal/models"
)

// Directory answers the lookups the gateway needs before accepting a connection
type Directory interface {
	User(ctx context.Context, id string) (*models.UserAuth, error)
	LocationExists(ctx context.Context, id string) (bool, error)
}

// GormDirectory implements Directory on the application database
type GormDirectory struct {
	DB *gorm.DB
}

// User loads an active user by id
func (d GormDirectory) User(ctx context.Context, id string) (*models.UserAuth, error) {
	var user models.UserAuth
	if err := d.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// LocationExists checks the location table
func (d GormDirectory) LocationExists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := d.DB.WithContext(ctx).Model(&models.Location{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Gateway authorizes live-location connections and hands them to the hub
type Gateway struct {
	hub       *Hub
	dir       Directory
	jwtSecret string
}

// NewGateway creates a gateway
func NewGateway(hub *Hub, dir Directory, jwtSecret string) *Gateway {
	return &Gateway{hub: hub, dir: dir, jwtSecret: jwtSecret}
}

// ServeLocation handles /ws/loci/location/{id}/
func (g *Gateway) ServeLocation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	user := g.identify(r)
	if !user.CanViewLocations() || id == "" {
		g.reject(w)
		return
	}
	exists, err := g.dir.LocationExists(r.Context(), id)
	if err != nil || !exists {
		// indistinguishable from an authorization failure
		g.reject(w)
		return
	}
	metrics.WSConnectionsTotal.WithLabelValues("accepted").Inc()
	serve(g.hub, broadcast.LocationTopic(id), w, r)
}

// ServeAll handles /ws/loci/location/all/
func (g *Gateway) ServeAll(w http.ResponseWriter, r *http.Request) {
	user := g.identify(r)
	if !user.CanViewLocations() {
		g.reject(w)
		return
	}
	metrics.WSConnectionsTotal.WithLabelValues("accepted").Inc()
	serve(g.hub, broadcast.AllLocationsTopic, w, r)
}

// identify returns the user behind the request token, or nil
func (g *Gateway) identify(r *http.Request) *models.UserAuth {
	return middleware.Identify(r, g.jwtSecret, g.dir.User)
}

func (g *Gateway) reject(w http.ResponseWriter) {
	metrics.WSConnectionsTotal.WithLabelValues("rejected").Inc()
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}
