package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"erpdocs/models"
	"erpdocs/utils"
)

// Login authenticates by email/password and issues the JWT the rest of the
// API expects. Session management beyond token issuance lives elsewhere.
func Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if req.Email == "" || req.Password == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var user models.User
	err := userCollection.FindOne(ctx, bson.M{
		"email":    strings.ToLower(strings.TrimSpace(req.Email)),
		"isActive": true,
	}).Decode(&user)
	if err != nil || !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := utils.GenerateJWT(user.ID.Hex(), user.FullName(), user.Role, user.RoleLevel, user.Department)
	if err != nil {
		log.Printf("Login - token generation failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"token":   token,
		"user":    user,
		"success": true,
	})
}

// GetCurrentUser returns the authenticated caller's profile.
func GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	act, ok := actorFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "User ID required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var user models.User
	if err := userCollection.FindOne(ctx, bson.M{"_id": act.ID}).Decode(&user); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, user)
}
