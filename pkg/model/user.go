package model

// User is a read-only projection of the account directory. The service never
// writes users; registration and credential handling live in the auth service.
type User struct {
	ID      string `json:"id,omitempty" bson:"_id,omitempty"`
	Name    string `json:"name" bson:"name"`
	Email   string `json:"email" bson:"email"`
	IsAdmin bool   `json:"is_admin" bson:"is_admin"`
}
