package vault

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveKeyRef_EnvFormat(t *testing.T) {
	v := New()

	const envVar = "TEST_TRADUKO_VAULT_KEY"
	const expected = "sk-test-1234"

	t.Setenv(envVar, expected)

	got, err := v.ResolveKeyRef("env:" + envVar)
	if err != nil {
		t.Fatalf("ResolveKeyRef(env:): %v", err)
	}
	if got != expected {
		t.Errorf("got %q, want %q", got, expected)
	}
}

func TestResolveKeyRef_EnvFormat_Unset(t *testing.T) {
	v := New()

	os.Unsetenv("NONEXISTENT_KEY_VAR")

	_, err := v.ResolveKeyRef("env:NONEXISTENT_KEY_VAR")
	if err == nil {
		t.Fatal("expected error for unset env var")
	}
}

func TestResolveKeyRef_FileFormat(t *testing.T) {
	v := New()

	dir := t.TempDir()
	keyFile := filepath.Join(dir, "apikey")
	if err := os.WriteFile(keyFile, []byte("  sk-from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := v.ResolveKeyRef("file://" + keyFile)
	if err != nil {
		t.Fatalf("ResolveKeyRef(file://): %v", err)
	}
	if got != "sk-from-file" {
		t.Errorf("got %q, want trimmed file contents", got)
	}
}

func TestResolveKeyRef_FileFormat_Empty(t *testing.T) {
	v := New()

	keyFile := filepath.Join(t.TempDir(), "apikey")
	if err := os.WriteFile(keyFile, []byte("   \n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := v.ResolveKeyRef("file://" + keyFile)
	if err == nil {
		t.Fatal("expected error for empty key file")
	}
}

func TestResolveKeyRef_FileFormat_Missing(t *testing.T) {
	v := New()

	_, err := v.ResolveKeyRef("file:///nonexistent/path/to/key")
	if err == nil {
		t.Fatal("expected error for missing key file")
	}
}

func TestResolveKeyRef_KeyringBadFormat(t *testing.T) {
	v := New()

	// Missing service/provider structure.
	_, err := v.ResolveKeyRef("keyring://badformat")
	if err == nil {
		t.Fatal("expected error for malformed keyring ref")
	}
}

func TestResolveKeyRef_KeyringWrongService(t *testing.T) {
	v := New()

	_, err := v.ResolveKeyRef("keyring://other-service/anthropic")
	if err == nil {
		t.Fatal("expected error for wrong service name")
	}
}

func TestGet_EnvFallback(t *testing.T) {
	v := New()

	t.Setenv("TRADUKO_KEY_DEEPSEEK", "sk-env-fallback")

	got, err := v.Get("deepseek")
	if err != nil {
		t.Fatalf("Get with env fallback: %v", err)
	}
	if got != "sk-env-fallback" {
		t.Errorf("got %q", got)
	}
}

func TestResolveKeyRef_BareNameUsesEnvFallback(t *testing.T) {
	v := New()

	t.Setenv("TRADUKO_KEY_QWEN", "sk-bare")

	got, err := v.ResolveKeyRef("qwen")
	if err != nil {
		t.Fatalf("ResolveKeyRef(bare): %v", err)
	}
	if got != "sk-bare" {
		t.Errorf("got %q", got)
	}
}

func TestGetToken_EnvFallback(t *testing.T) {
	v := New()

	t.Setenv("TRADUKO_TOKEN_ANTHROPIC", "tok-env-fallback")

	got, err := v.GetToken("anthropic")
	if err != nil {
		t.Fatalf("GetToken with env fallback: %v", err)
	}
	if got != "tok-env-fallback" {
		t.Errorf("got %q", got)
	}
}

func TestGetToken_DoesNotReadKeyNamespace(t *testing.T) {
	v := New()

	t.Setenv("TRADUKO_KEY_ANTHROPIC", "sk-only-a-key")

	if _, err := v.GetToken("anthropic"); err == nil {
		t.Fatal("expected error: API key must not satisfy a session-token lookup")
	}
}

func TestResolveKeyRef_SessionRef(t *testing.T) {
	v := New()

	t.Setenv("TRADUKO_TOKEN_QWEN", "tok-session")

	got, err := v.ResolveKeyRef("keyring://traduko/qwen/session")
	if err != nil {
		t.Fatalf("ResolveKeyRef(session): %v", err)
	}
	if got != "tok-session" {
		t.Errorf("got %q", got)
	}
}

func TestList_IncludesEnvProviders(t *testing.T) {
	v := New()

	t.Setenv("TRADUKO_KEY_GLM", "sk-glm")
	t.Setenv("TRADUKO_TOKEN_GLM", "tok-glm")

	creds, err := v.List()
	if err != nil {
		t.Fatal(err)
	}
	var key, session bool
	for _, c := range creds {
		if c.Provider == "glm" && c.Source == "env" {
			switch c.Kind {
			case "key":
				key = true
			case "session":
				session = true
			}
		}
	}
	if !key || !session {
		t.Errorf("List() = %v, want both key and session entries for glm", creds)
	}
}
