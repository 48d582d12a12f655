package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/xelth-com/loci/internal/models"
	"github.com/xelth-com/loci/internal/utils"
)

// LoginRequest accepts the email or the username in Email
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest carries a refresh token issued by login
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	Tokens utils.TokenPair  `json:"tokens"`
	User   *models.UserAuth `json:"user"`
}

func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var body LoginRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Email == "" {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	var user models.UserAuth
	err := r.db.WithContext(req.Context()).
		Where("email = ? OR username = ?", body.Email, body.Email).
		First(&user).Error
	if err != nil || !user.IsActive || !utils.CheckPasswordHash(body.Password, user.Password) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	now := time.Now()
	if err := r.db.Model(&user).Update("last_login", now).Error; err != nil {
		log.Printf("⚠️ Failed to record login of %s: %v", user.Username, err)
	}
	user.LastLogin = &now

	r.respondTokens(w, &user)
}

// refresh trades a valid refresh token for a new pair
func (r *Router) refresh(w http.ResponseWriter, req *http.Request) {
	var body RefreshRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.RefreshToken == "" {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	id, err := utils.RefreshTokenUserID(body.RefreshToken, r.cfg.JWTSecret)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	user, err := r.lookupUser(req.Context(), id)
	if err != nil || !user.IsActive {
		respondError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	r.respondTokens(w, user)
}

func (r *Router) respondTokens(w http.ResponseWriter, user *models.UserAuth) {
	pair, err := utils.IssueTokens(user, r.cfg.JWTSecret)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}
	respondJSON(w, http.StatusOK, tokenResponse{Tokens: pair, User: user})
}
