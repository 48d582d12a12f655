package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/xelth-com/loci/internal/loci"
	"github.com/xelth-com/loci/internal/models"
)

const maxUploadSize = 32 << 20

// locationPayload is the writable part of a location
type locationPayload struct {
	Name     string              `json:"name"`
	Type     models.LocationType `json:"type"`
	IsMobile bool                `json:"is_mobile"`
	Address  string              `json:"address"`
	Geometry *models.Geometry    `json:"geometry"`
}

func (p locationPayload) apply(loc *models.Location) {
	loc.Name = p.Name
	loc.Type = p.Type
	loc.IsMobile = p.IsMobile
	loc.Address = p.Address
	loc.Geometry = p.Geometry
}

// floorplanChoice is one entry of the floorplan select widget
type floorplanChoice struct {
	ID          string `json:"id"`
	Str         string `json:"str"`
	Floor       int16  `json:"floor"`
	Image       string `json:"image"`
	ImageWidth  int    `json:"image_width"`
	ImageHeight int    `json:"image_height"`
}

func (r *Router) choice(fp *models.FloorPlan) floorplanChoice {
	return floorplanChoice{
		ID:          fp.ID,
		Str:         fp.String(),
		Floor:       fp.Floor,
		Image:       r.svc.ImageURL(fp),
		ImageWidth:  fp.ImageWidth,
		ImageHeight: fp.ImageHeight,
	}
}

// listLocations supports ?type=, ?is_mobile= and ?search=
func (r *Router) listLocations(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	filter := loci.LocationFilter{
		Type:   models.LocationType(q.Get("type")),
		Search: q.Get("search"),
	}
	if v := q.Get("is_mobile"); v != "" {
		mobile, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid is_mobile value")
			return
		}
		filter.IsMobile = &mobile
	}
	locations, err := r.svc.ListLocations(req.Context(), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, locations)
}

func (r *Router) createLocation(w http.ResponseWriter, req *http.Request) {
	var payload locationPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	loc := &models.Location{}
	payload.apply(loc)
	if err := r.svc.SaveLocation(req.Context(), loc); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, loc)
}

// getLocation returns the fields the admin map widget reads
func (r *Router) getLocation(w http.ResponseWriter, req *http.Request) {
	loc, err := r.svc.GetLocation(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, locationPayload{
		Name:     loc.Name,
		Type:     loc.Type,
		IsMobile: loc.IsMobile,
		Address:  loc.Address,
		Geometry: loc.Geometry,
	})
}

func (r *Router) updateLocation(w http.ResponseWriter, req *http.Request) {
	loc, err := r.svc.GetLocation(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	var payload locationPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	payload.apply(loc)
	if err := r.svc.SaveLocation(req.Context(), loc); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, loc)
}

func (r *Router) deleteLocation(w http.ResponseWriter, req *http.Request) {
	if err := r.svc.DeleteLocation(req.Context(), mux.Vars(req)["id"]); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) listFloorPlans(w http.ResponseWriter, req *http.Request) {
	fps, err := r.svc.FloorPlans(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	choices := make([]floorplanChoice, 0, len(fps))
	for i := range fps {
		choices = append(choices, r.choice(&fps[i]))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"choices": choices})
}

func (r *Router) createFloorPlan(w http.ResponseWriter, req *http.Request) {
	floor, upload, errs := parseFloorPlanForm(req)
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}
	if floor == nil {
		respondValidation(w, loci.Errors{"floor": {"This field is required."}})
		return
	}
	var image loci.Upload
	if upload != nil {
		image = *upload
	}
	fp, err := r.svc.CreateFloorPlan(req.Context(), mux.Vars(req)["id"], *floor, image)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, r.choice(fp))
}

func (r *Router) updateFloorPlan(w http.ResponseWriter, req *http.Request) {
	floor, upload, errs := parseFloorPlanForm(req)
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}
	fp, err := r.svc.UpdateFloorPlan(req.Context(), mux.Vars(req)["id"], floor, upload)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, r.choice(fp))
}

func (r *Router) deleteFloorPlan(w http.ResponseWriter, req *http.Request) {
	if err := r.svc.DeleteFloorPlan(req.Context(), mux.Vars(req)["id"]); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseFloorPlanForm reads the multipart fields "floor" and "image"; both optional here
func parseFloorPlanForm(req *http.Request) (*int16, *loci.Upload, loci.Errors) {
	errs := loci.Errors{}
	if err := req.ParseMultipartForm(maxUploadSize); err != nil {
		errs.Add(loci.NonFieldErrors, "Invalid multipart form")
		return nil, nil, errs
	}

	var floor *int16
	if v := req.FormValue("floor"); v != "" {
		n, err := strconv.ParseInt(v, 10, 16)
		if err != nil {
			errs.Add("floor", "Enter a whole number.")
		} else {
			f := int16(n)
			floor = &f
		}
	}

	var upload *loci.Upload
	file, header, err := req.FormFile("image")
	if err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			errs.Add("image", "The submitted file is empty.")
		} else {
			upload = &loci.Upload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			}
		}
	}
	return floor, upload, errs
}
