package domain

import "strings"

const redactedKeyPrefix = 5

// Credentials API key pair used to sign account requests.
// The secret never leaves the process.
type Credentials struct {
	APIKey    string
	APISecret string
}

// Empty reports whether either part of the credentials is missing.
func (c Credentials) Empty() bool {
	return strings.TrimSpace(c.APIKey) == "" || strings.TrimSpace(c.APISecret) == ""
}

// Validate returns a ValidationError naming the first missing field.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return &ValidationError{Field: "api_key", Message: "API key is required"}
	}
	if strings.TrimSpace(c.APISecret) == "" {
		return &ValidationError{Field: "api_secret", Message: "API secret is required"}
	}
	return nil
}

// Redacted returns the key prefix suitable for logs.
func (c Credentials) Redacted() string {
	if len(c.APIKey) <= redactedKeyPrefix {
		return "..."
	}
	return c.APIKey[:redactedKeyPrefix] + "..."
}

// String hides both the key and the secret from fmt output.
func (c Credentials) String() string {
	return "Credentials{" + c.Redacted() + "}"
}
