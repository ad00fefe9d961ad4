// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import "time"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	Details        string `json:"details,omitempty"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// AuthenticateResponse represents the response for a successful
// authentication.
type AuthenticateResponse struct {
	SessionID        string `json:"sessionId"`
	UserID           string `json:"userId"`
	DisplayName      string `json:"displayName"`
	Institution      string `json:"institution,omitempty"`
	APIURL           string `json:"apiUrl"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

// SessionResponse describes the caller's session.
type SessionResponse struct {
	UserID           string    `json:"userId"`
	Institution      string    `json:"institution,omitempty"`
	APIURL           string    `json:"apiUrl"`
	Pinned           bool      `json:"pinned,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	LastUsedAt       time.Time `json:"lastUsedAt"`
	ExpiresInSeconds int64     `json:"expiresInSeconds"`
}

// LogoutResponse represents the response for a logout.
type LogoutResponse struct {
	Status string `json:"status"`
}

// PaginationResponse carries the page tokens of a Canvas list.  Each token
// is passed back as the page query parameter.
type PaginationResponse struct {
	Current string `json:"current,omitempty"`
	Next    string `json:"next,omitempty"`
	Prev    string `json:"prev,omitempty"`
	First   string `json:"first,omitempty"`
	Last    string `json:"last,omitempty"`
}

// OperationResponse represents the anonymized result of a Canvas read.
type OperationResponse struct {
	Operation  string              `json:"operation"`
	Data       interface{}         `json:"data"`
	Pagination *PaginationResponse `json:"pagination,omitempty"`
}
