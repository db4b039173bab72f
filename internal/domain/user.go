// Package domain contains core domain types for the Sentinel-Auth application.
package domain

// Credential is one entry of the fixed credential table.
type Credential struct {
	Username     string `json:"username"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
}
