package handlers

import (
	"net/http"
	"strconv"
)

// geocode resolves ?address= to {lat, lng}
func (r *Router) geocode(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	if _, ok := q["address"]; !ok {
		respondError(w, http.StatusBadRequest, "Address parameter not defined")
		return
	}
	p := r.geocoder.Geocode(req.Context(), q.Get("address"))
	if p == nil {
		respondError(w, http.StatusNotFound, "Not found location with given name")
		return
	}
	respondJSON(w, http.StatusOK, map[string]float64{"lat": p.Lat, "lng": p.Lng})
}

// reverseGeocode resolves ?lat=&lng= to {address}
func (r *Router) reverseGeocode(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	latStr, lngStr := q.Get("lat"), q.Get("lng")
	if latStr == "" || lngStr == "" {
		respondError(w, http.StatusBadRequest, "lat or lng parameter not defined")
		return
	}
	lat, errLat := strconv.ParseFloat(latStr, 64)
	lng, errLng := strconv.ParseFloat(lngStr, 64)
	if errLat != nil || errLng != nil {
		respondError(w, http.StatusBadRequest, "lat or lng parameter not valid")
		return
	}
	address := r.geocoder.Reverse(req.Context(), lat, lng)
	if address == "" {
		respondJSON(w, http.StatusNotFound, map[string]string{"address": ""})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"address": address})
}
