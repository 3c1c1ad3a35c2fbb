// Package api defines the JSON wire types shared by the client codec and the
// server handlers.
package api

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Login    string `json:"login" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// LoginRequest authenticates an account.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the bearer token for subsequent calls.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

// CapsuleRecord is the server's canonical view of an owned capsule.
type CapsuleRecord struct {
	SyncID int64   `json:"sync_id"`
	Name   string  `json:"name"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Etag   string  `json:"etag"`
}

// UpsertCapsuleRequest creates (SyncID=0) or updates an owned capsule.
// Etag must carry the last known version token on updates.
type UpsertCapsuleRequest struct {
	SyncID int64   `json:"sync_id,omitempty"`
	Name   string  `json:"name" validate:"required,max=200"`
	Lat    float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng    float64 `json:"lng" validate:"gte=-180,lte=180"`
	Etag   string  `json:"etag,omitempty"`
}

// CtagResponse carries the collection-version token.
type CtagResponse struct {
	Ctag string `json:"ctag"`
}

// ListCollectionResponse carries the full listing of a collection.
type ListCollectionResponse struct {
	Records []CapsuleRecord `json:"records"`
}

// ErrorResponse is the uniform error payload. Messages carries per-field
// validation details when present.
type ErrorResponse struct {
	Error    string   `json:"error"`
	Messages []string `json:"messages,omitempty"`
}
