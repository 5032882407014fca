package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/deckster-app/deckster-api/auth"
	"github.com/deckster-app/deckster-api/middleware"
	"github.com/deckster-app/deckster-api/models"
)

func (db *DBHandler) GetProfiles(w http.ResponseWriter, r *http.Request) {
	var profiles []models.Profile

	if err := db.Find(&profiles).Error; err != nil {
		http.Error(w, "Failed to fetch profiles", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(profiles); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (db *DBHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if username == "" {
		http.Error(w, "Username is required", http.StatusBadRequest)
		return
	}

	var profile models.Profile
	result := db.Preload("CardDecks").Where("username = ?", username).First(&profile)
	if result.Error != nil {
		http.Error(w, "Profile not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(profile)
}

func (db *DBHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := db.Preload("CardDecks").First(profile, profile.ID).Error; err != nil {
		http.Error(w, "Profile not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(profile)
}

func (db *DBHandler) AddProfile(w http.ResponseWriter, r *http.Request) {
	var reqData struct {
		Username         string `json:"username"`
		Email            string `json:"email"`
		Password         string `json:"password"`
		SecurityQuestion string `json:"securityQuestion"`
		SecurityAnswer   string `json:"securityAnswer"`
	}

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&reqData); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if reqData.Username == "" || reqData.Email == "" || reqData.Password == "" ||
		reqData.SecurityQuestion == "" || reqData.SecurityAnswer == "" {
		http.Error(w, "Username, email, password, security question and answer are required", http.StatusBadRequest)
		return
	}

	var existing models.Profile
	if err := db.Where("username = ? OR email = ?", reqData.Username, reqData.Email).First(&existing).Error; err == nil {
		http.Error(w, "Username or email already taken", http.StatusConflict)
		return
	}

	publicID, err := gonanoid.New()
	if err != nil {
		http.Error(w, "Failed to generate ID", http.StatusInternalServerError)
		return
	}

	profile := models.Profile{
		PublicID:         publicID,
		Username:         reqData.Username,
		Email:            reqData.Email,
		Password:         reqData.Password,
		SecurityQuestion: reqData.SecurityQuestion,
		SecurityAnswer:   reqData.SecurityAnswer,
	}

	// Password and security answer are hashed by the model's save hook.
	if err := db.Create(&profile).Error; err != nil {
		http.Error(w, "Failed to create profile", http.StatusInternalServerError)
		log.Println("Database creation error:", err)
		return
	}

	tokenString, err := auth.CreateToken(profile.Username, profile.Email, profile.PublicID)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		log.Println("Token generation error:", err)
		return
	}

	response := map[string]interface{}{
		"token":   tokenString,
		"profile": profile,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

func (db *DBHandler) Login(w http.ResponseWriter, r *http.Request) {
	var reqData struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&reqData); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var profile models.Profile
	if err := db.Where("username = ?", reqData.Username).First(&profile).Error; err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if !auth.CheckSecret(reqData.Password, profile.Password) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	now := time.Now()
	if err := db.Model(&profile).UpdateColumn("last_login", now).Error; err != nil {
		log.Println("Failed to update last login:", err)
	}
	profile.LastLogin = &now

	tokenString, err := auth.CreateToken(profile.Username, profile.Email, profile.PublicID)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		log.Println("Token generation error:", err)
		return
	}

	response := map[string]interface{}{
		"token":   tokenString,
		"profile": profile,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func (db *DBHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var reqData struct {
		AvatarURL *string `json:"avatarUrl,omitempty"`
		Password  *string `json:"password,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&reqData); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if reqData.AvatarURL != nil {
		profile.AvatarURL = *reqData.AvatarURL
	}
	if reqData.Password != nil {
		if *reqData.Password == "" {
			http.Error(w, "Password must not be empty", http.StatusBadRequest)
			return
		}
		// Plaintext here; the save hook re-hashes the changed value.
		profile.Password = *reqData.Password
	}

	if err := db.Save(profile).Error; err != nil {
		http.Error(w, "Failed to update profile", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(profile)
}

func (db *DBHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var reqData struct {
		Username       string `json:"username"`
		SecurityAnswer string `json:"securityAnswer"`
		NewPassword    string `json:"newPassword"`
	}

	if err := json.NewDecoder(r.Body).Decode(&reqData); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if reqData.Username == "" || reqData.SecurityAnswer == "" || reqData.NewPassword == "" {
		http.Error(w, "Username, security answer and new password are required", http.StatusBadRequest)
		return
	}

	var profile models.Profile
	if err := db.Where("username = ?", reqData.Username).First(&profile).Error; err != nil {
		http.Error(w, "Profile not found", http.StatusNotFound)
		return
	}

	if !auth.CheckSecret(reqData.SecurityAnswer, profile.SecurityAnswer) {
		http.Error(w, "Security answer does not match", http.StatusForbidden)
		return
	}

	profile.Password = reqData.NewPassword
	if err := db.Save(&profile).Error; err != nil {
		http.Error(w, "Failed to reset password", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "success"})
}
