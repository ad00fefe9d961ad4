// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// AuthenticateRequest represents the request body for opening a session.
type AuthenticateRequest struct {
	APIToken        string `json:"api_token" binding:"required"`
	APIURL          string `json:"api_url" binding:"required"`
	InstitutionName string `json:"institution_name,omitempty" binding:"omitempty,max=200"`
}
