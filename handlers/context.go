package handlers

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// actor is the authenticated caller, assembled from the values the auth
// middleware stored in the request context.
type actor struct {
	ID         primitive.ObjectID
	IDHex      string
	Name       string
	Email      string
	Role       string
	RoleLevel  int
	Department string
}

func actorFromRequest(r *http.Request) (*actor, bool) {
	idHex, ok := r.Context().Value("userID").(string)
	if !ok || idHex == "" {
		return nil, false
	}
	id, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		return nil, false
	}

	act := &actor{ID: id, IDHex: idHex}
	act.Name, _ = r.Context().Value("userName").(string)
	act.Email, _ = r.Context().Value("userEmail").(string)
	act.Role, _ = r.Context().Value("userRole").(string)
	act.RoleLevel, _ = r.Context().Value("roleLevel").(int)
	act.Department, _ = r.Context().Value("department").(string)
	return act, true
}
