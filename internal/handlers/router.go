package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/xelth-com/loci/internal/buildinfo"
	"github.com/xelth-com/loci/internal/config"
	"github.com/xelth-com/loci/internal/geocoding"
	"github.com/xelth-com/loci/internal/loci"
	"github.com/xelth-com/loci/internal/metrics"
	"github.com/xelth-com/loci/internal/middleware"
	"github.com/xelth-com/loci/internal/models"
	"github.com/xelth-com/loci/internal/storage"
	"github.com/xelth-com/loci/internal/websocket"
)

// Options carries the collaborators of the router
type Options struct {
	DB       *gorm.DB
	Config   *config.Config
	Service  *loci.Service
	Geocoder *geocoding.Geocoder
	Gateway  *websocket.Gateway
	// Media is served under MEDIA_URL when assets live on the local disk
	Media *storage.FileStore
}

// Router wraps the mux router and its dependencies
type Router struct {
	*mux.Router
	db       *gorm.DB
	cfg      *config.Config
	svc      *loci.Service
	geocoder *geocoding.Geocoder
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(opts Options) *Router {
	r := &Router{
		Router:   mux.NewRouter(),
		db:       opts.DB,
		cfg:      opts.Config,
		svc:      opts.Service,
		geocoder: opts.Geocoder,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/refresh", r.refresh).Methods("POST")

	// Location API (protected)
	api := r.PathPrefix("/api/loci").Subrouter()
	api.Use(middleware.AuthMiddleware(r.cfg.JWTSecret, r.lookupUser))
	view := middleware.RequirePermission((*models.UserAuth).CanViewLocations)
	change := middleware.RequirePermission((*models.UserAuth).CanChangeLocations)

	api.Handle("/locations", view(http.HandlerFunc(r.listLocations))).Methods("GET")
	api.Handle("/locations", change(http.HandlerFunc(r.createLocation))).Methods("POST")
	api.Handle("/locations/{id}", view(http.HandlerFunc(r.getLocation))).Methods("GET")
	api.Handle("/locations/{id}", change(http.HandlerFunc(r.updateLocation))).Methods("PUT")
	api.Handle("/locations/{id}", change(http.HandlerFunc(r.deleteLocation))).Methods("DELETE")
	api.Handle("/locations/{id}/floorplans", view(http.HandlerFunc(r.listFloorPlans))).Methods("GET")
	api.Handle("/locations/{id}/floorplans", change(http.HandlerFunc(r.createFloorPlan))).Methods("POST")

	api.Handle("/floorplans/{id}", change(http.HandlerFunc(r.updateFloorPlan))).Methods("PUT")
	api.Handle("/floorplans/{id}", change(http.HandlerFunc(r.deleteFloorPlan))).Methods("DELETE")
	api.Handle("/floorplans/{id}/sheet.pdf", view(http.HandlerFunc(r.floorPlanSheet))).Methods("GET")

	api.Handle("/objects/{kind}/{id}/location", view(http.HandlerFunc(r.getObjectLocation))).Methods("GET")
	api.Handle("/objects/{kind}/{id}/location", change(http.HandlerFunc(r.saveObjectLocation))).Methods("PUT")
	api.Handle("/objects/{kind}/{id}/location", change(http.HandlerFunc(r.deleteObjectLocation))).Methods("DELETE")

	api.Handle("/geocode", view(http.HandlerFunc(r.geocode))).Methods("GET")
	api.Handle("/reverse-geocode", view(http.HandlerFunc(r.reverseGeocode))).Methods("GET")

	// Live location channels; "all" must be matched before {id}
	if opts.Gateway != nil {
		r.HandleFunc("/ws/loci/location/all/", opts.Gateway.ServeAll).Methods("GET")
		r.HandleFunc("/ws/loci/location/{id}/", opts.Gateway.ServeLocation).Methods("GET")
	}

	// Uploaded floorplans
	if opts.Media != nil {
		prefix := strings.TrimSuffix(r.cfg.Storage.MediaURL, "/") + "/"
		r.PathPrefix(prefix).Handler(http.StripPrefix(prefix, http.FileServer(http.Dir(opts.Media.Root()))))
	}

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"version":   buildinfo.String(),
		"startedAt": buildinfo.StartTime,
	})
}

func (r *Router) lookupUser(ctx context.Context, id string) (*models.UserAuth, error) {
	var user models.UserAuth
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondValidation sends field errors the way forms expect them
func respondValidation(w http.ResponseWriter, errs loci.Errors) {
	respondJSON(w, http.StatusBadRequest, map[string]interface{}{
		"errors": errs,
	})
}

// respondServiceError maps service errors to status codes
func respondServiceError(w http.ResponseWriter, err error) {
	if errs, ok := loci.AsErrors(err); ok {
		respondValidation(w, errs)
		return
	}
	switch {
	case errors.Is(err, loci.ErrNotFound):
		respondError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, loci.ErrProtected):
		respondError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("❌ Request failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
