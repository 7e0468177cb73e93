// Package vault stores provider credentials in the OS keychain with an
// environment-variable fallback. Two kinds of secret live here: API keys
// for paid endpoints and refreshable session tokens for OAuth-backed
// providers, kept under separate keychain accounts so one never shadows
// the other.
package vault

import (
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	serviceName = "traduko"

	// sessionSuffix separates session-token accounts from API-key
	// accounts within the keychain service.
	sessionSuffix = "/session"
)

// knownProviders is the list of providers checked by List().
var knownProviders = []string{"anthropic", "openai", "deepseek", "qwen", "glm"}

// Credential describes one stored secret without exposing its value.
type Credential struct {
	Provider string
	Kind     string // "key" or "session"
	Source   string // "keyring" or "env"
}

// Vault provides secure credential storage using the OS keychain,
// with fallback to environment variables.
type Vault struct{}

// New creates a new Vault instance.
func New() *Vault {
	return &Vault{}
}

// Set stores an API key for the given provider in the OS keychain.
func (v *Vault) Set(provider, key string) error {
	return keyring.Set(serviceName, provider, key)
}

// SetToken stores a session token for the given provider.
func (v *Vault) SetToken(provider, token string) error {
	return keyring.Set(serviceName, provider+sessionSuffix, token)
}

// Get retrieves the API key for the given provider. It first checks the
// OS keychain, then falls back to the environment variable
// TRADUKO_KEY_{UPPER(provider)}.
func (v *Vault) Get(provider string) (string, error) {
	return v.lookup(provider, "TRADUKO_KEY_")
}

// GetToken retrieves the session token for the given provider, falling
// back to TRADUKO_TOKEN_{UPPER(provider)}.
func (v *Vault) GetToken(provider string) (string, error) {
	return v.lookup(provider+sessionSuffix, "TRADUKO_TOKEN_")
}

func (v *Vault) lookup(account, envPrefix string) (string, error) {
	secret, err := keyring.Get(serviceName, account)
	if err == nil && secret != "" {
		return secret, nil
	}

	provider := strings.TrimSuffix(account, sessionSuffix)
	envKey := envPrefix + strings.ToUpper(provider)
	if val := os.Getenv(envKey); val != "" {
		return val, nil
	}

	return "", fmt.Errorf("no credential for provider %q: not in keychain and %s not set", provider, envKey)
}

// Delete removes the API key for the given provider from the OS keychain.
func (v *Vault) Delete(provider string) error {
	return keyring.Delete(serviceName, provider)
}

// DeleteToken removes the session token for the given provider.
func (v *Vault) DeleteToken(provider string) error {
	return keyring.Delete(serviceName, provider+sessionSuffix)
}

// List returns the credentials present for the known providers, covering
// both keychain accounts and both environment namespaces.
func (v *Vault) List() ([]Credential, error) {
	var creds []Credential

	for _, provider := range knownProviders {
		if source, ok := v.present(provider, "TRADUKO_KEY_"); ok {
			creds = append(creds, Credential{Provider: provider, Kind: "key", Source: source})
		}
		if source, ok := v.present(provider+sessionSuffix, "TRADUKO_TOKEN_"); ok {
			creds = append(creds, Credential{Provider: provider, Kind: "session", Source: source})
		}
	}

	return creds, nil
}

func (v *Vault) present(account, envPrefix string) (string, bool) {
	if secret, err := keyring.Get(serviceName, account); err == nil && secret != "" {
		return "keyring", true
	}
	envKey := envPrefix + strings.ToUpper(strings.TrimSuffix(account, sessionSuffix))
	if os.Getenv(envKey) != "" {
		return "env", true
	}
	return "", false
}

// ResolveKeyRef parses a credential reference and retrieves the secret.
// Supported formats:
//   - "keyring://traduko/<provider>" (API key)
//   - "keyring://traduko/<provider>/session" (session token)
//   - "env:VARIABLE_NAME" (environment variable)
//   - "file:///path/to/key" (plain-text file)
//
// A reference that matches none of the schemes is treated as a bare
// provider name and looked up as an API key.
func (v *Vault) ResolveKeyRef(keyRef string) (string, error) {
	if strings.HasPrefix(keyRef, "keyring://") {
		path := strings.TrimPrefix(keyRef, "keyring://")
		parts := strings.SplitN(path, "/", 2)
		if len(parts) != 2 || parts[0] != serviceName || parts[1] == "" {
			return "", fmt.Errorf("invalid key reference format: %q (expected \"keyring://traduko/<provider>[/session]\")", keyRef)
		}
		if provider, ok := strings.CutSuffix(parts[1], sessionSuffix); ok && provider != "" {
			return v.GetToken(provider)
		}
		return v.Get(parts[1])
	}

	if strings.HasPrefix(keyRef, "env:") {
		envVar := strings.TrimPrefix(keyRef, "env:")
		if val := os.Getenv(envVar); val != "" {
			return val, nil
		}
		return "", fmt.Errorf("environment variable %q is not set", envVar)
	}

	if strings.HasPrefix(keyRef, "file://") {
		filePath := strings.TrimPrefix(keyRef, "file://")
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("reading key file %q: %w", filePath, err)
		}
		key := strings.TrimSpace(string(data))
		if key == "" {
			return "", fmt.Errorf("key file %q is empty", filePath)
		}
		return key, nil
	}

	return v.Get(keyRef)
}
