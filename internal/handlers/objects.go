package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/xelth-com/loci/internal/content"
	"github.com/xelth-com/loci/internal/loci"
	"github.com/xelth-com/loci/internal/models"
)

type objectLocationResponse struct {
	ID          string           `json:"id"`
	ContentType string           `json:"content_type"`
	ObjectID    string           `json:"object_id"`
	Type        string           `json:"type"`
	Location    *models.Location `json:"location"`
	FloorPlan   *floorplanChoice `json:"floorplan"`
	Indoor      *string          `json:"indoor"`
}

func (r *Router) objectLocationResponse(ol *models.ObjectLocation) objectLocationResponse {
	resp := objectLocationResponse{
		ID:          ol.ID,
		ContentType: ol.ContentType,
		ObjectID:    ol.ObjectID,
		Type:        ol.Kind(),
		Location:    ol.Location,
		Indoor:      ol.Indoor,
	}
	if ol.FloorPlan != nil {
		c := r.choice(ol.FloorPlan)
		resp.FloorPlan = &c
	}
	return resp
}

func objectRef(req *http.Request) content.Ref {
	vars := mux.Vars(req)
	return content.Ref{Kind: vars["kind"], ID: vars["id"]}
}

func (r *Router) getObjectLocation(w http.ResponseWriter, req *http.Request) {
	ol, err := r.svc.GetObjectLocation(req.Context(), objectRef(req))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, r.objectLocationResponse(ol))
}

// saveObjectLocation accepts the whole location form as JSON; the floorplan
// image travels base64-encoded in image.data
func (r *Router) saveObjectLocation(w http.ResponseWriter, req *http.Request) {
	var form loci.ObjectLocationForm
	if err := json.NewDecoder(io.LimitReader(req.Body, maxUploadSize*2)).Decode(&form); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	ref := objectRef(req)
	if _, err := r.svc.SaveObjectLocation(req.Context(), ref, form); err != nil {
		respondServiceError(w, err)
		return
	}
	ol, err := r.svc.GetObjectLocation(req.Context(), ref)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, r.objectLocationResponse(ol))
}

func (r *Router) deleteObjectLocation(w http.ResponseWriter, req *http.Request) {
	if err := r.svc.DeleteObjectLocation(req.Context(), objectRef(req)); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// floorPlanSheet renders a printable PDF of the floorplan and the objects on it
func (r *Router) floorPlanSheet(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	fp, err := r.svc.GetFloorPlan(req.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	pdf, err := r.svc.FloorPlanSheet(req.Context(), id, baseURL(req)+"/api/loci/locations/"+fp.LocationID)
	if err != nil {
		if errors.Is(err, loci.ErrNoStream) {
			respondError(w, http.StatusNotImplemented, err.Error())
			return
		}
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="floorplan-`+fp.ID+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func baseURL(req *http.Request) string {
	scheme := "http"
	if req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + req.Host
}
