package models

import "time"

// OAuth2Instance is the stored client configuration of one OAuth2
// authorization. ClientSecret holds ciphertext.
type OAuth2Instance struct {
	ID           string
	Backend      string
	ClientID     string
	ClientSecret string
	Scopes       []string
	RedirectURL  string
	Tenant       string
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
