// utils/utils.go
package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"erpdocs/models"
)

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// RespondWithDomainError maps the models error taxonomy onto HTTP codes.
func RespondWithDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotAuthorized):
		RespondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrNotFound):
		RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrConflict):
		RespondWithError(w, http.StatusConflict, err.Error())
	default:
		RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
