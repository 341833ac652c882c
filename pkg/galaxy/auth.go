package galaxy

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// CredentialsFile is the name of the file "galahad login" writes under ~/.galahad.
const CredentialsFile = "credentials.json"

// Credentials is the on-disk shape of the credentials file.
type Credentials struct {
	URL    string `json:"url"`
	APIKey string `json:"api_key"`
	Email  string `json:"email,omitempty"`
}

// Authenticate exchanges an email and password for the user's API key.
func (c *Client) Authenticate(ctx context.Context, email, password string) (string, error) {
	const op = "Authenticate"

	header := http.Header{}
	basic := base64.StdEncoding.EncodeToString([]byte(email + ":" + password))
	header.Set("Authorization", "Basic "+basic)

	body, err := c.doRequest(ctx, "GET", c.config.URL+"/api/authenticate/baseauth", nil, header)
	if err != nil {
		return "", WrapError(op, err)
	}
	var resp struct {
		APIKey string `json:"api_key"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", WrapError(op, fmt.Errorf("unmarshaling response: %w", err))
	}
	if resp.APIKey == "" {
		return "", NewError(op, "server returned no API key")
	}
	c.config.APIKey = resp.APIKey
	return resp.APIKey, nil
}

// CredentialsPath returns ~/.galahad/credentials.json.
func CredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".galahad", CredentialsFile), nil
}

// SaveCredentials writes creds to the credentials file with owner-only permissions.
func SaveCredentials(creds Credentials) (string, error) {
	path, err := CredentialsPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal credentials: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write credentials: %w", err)
	}
	return path, nil
}

// LoadCredentials reads the credentials file.
func LoadCredentials() (*Credentials, error) {
	path, err := CredentialsPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	creds.APIKey = strings.TrimSpace(creds.APIKey)
	return &creds, nil
}

// ResolveAPIKey loads an API key from the first available source:
//  1. GALAXY_API_KEY environment variable
//  2. ~/.galahad/credentials.json, if it was written for the same server
//     (or serverURL is empty)
func ResolveAPIKey(serverURL string) (string, error) {
	if key := os.Getenv("GALAXY_API_KEY"); key != "" {
		return strings.TrimSpace(key), nil
	}

	creds, err := LoadCredentials()
	if err != nil || creds.APIKey == "" {
		return "", ErrNoCredentials
	}
	if serverURL != "" && creds.URL != "" && strings.TrimRight(creds.URL, "/") != strings.TrimRight(serverURL, "/") {
		return "", ErrNoCredentials
	}
	return creds.APIKey, nil
}
