package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Credentials carries the page identity and token for the publish calls.
// Core logic receives this struct from the composition root and never reads
// the environment itself.
type Credentials struct {
	PageID      string
	AccessToken string
}

const (
	envPageID      = "FB_PAGE_ID"
	envAccessToken = "FB_PAGE_ACCESS_TOKEN"
)

// LoadCredentials reads publishing credentials from the environment,
// seeding it from a .env file when one is present.
func LoadCredentials() (Credentials, error) {
	// Missing .env is fine, real deployments set the environment directly.
	_ = godotenv.Load()

	creds := Credentials{
		PageID:      os.Getenv(envPageID),
		AccessToken: os.Getenv(envAccessToken),
	}

	if creds.PageID == "" {
		return Credentials{}, fmt.Errorf("%s is not set", envPageID)
	}
	if creds.AccessToken == "" {
		return Credentials{}, fmt.Errorf("%s is not set", envAccessToken)
	}

	return creds, nil
}
