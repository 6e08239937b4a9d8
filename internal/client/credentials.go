package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Credential is the access/refresh token pair. Tokens are opaque strings;
// the store never inspects them.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// CredentialStore persists the token pair and the active AI config id
// across restarts. Every mutation writes through to disk so a refresh
// performed by one caller is visible to the next.
type CredentialStore struct {
	mu   sync.Mutex
	path string

	cred           Credential
	activeConfigID string
}

type credentialFile struct {
	AccessToken    string `json:"access_token,omitempty"`
	RefreshToken   string `json:"refresh_token,omitempty"`
	ActiveConfigID string `json:"active_ai_config_id,omitempty"`
}

// NewCredentialStore opens the store at path, loading any persisted state.
// A missing file is a fresh, logged-out store.
func NewCredentialStore(path string) (*CredentialStore, error) {
	s := &CredentialStore{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var f credentialFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	s.cred = Credential{AccessToken: f.AccessToken, RefreshToken: f.RefreshToken}
	s.activeConfigID = f.ActiveConfigID
	return s, nil
}

// SetCredential stores a fresh token pair after login
func (s *CredentialStore) SetCredential(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = Credential{AccessToken: access, RefreshToken: refresh}
	return s.persist()
}

// SetAccessToken replaces only the access token after a refresh
func (s *CredentialStore) SetAccessToken(access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred.AccessToken = access
	return s.persist()
}

// Clear removes both tokens. They always go together: a surviving refresh
// token after explicit logout would invite stale refresh attempts.
func (s *CredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = Credential{}
	return s.persist()
}

// Get returns the current token pair
func (s *CredentialStore) Get() Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred
}

// SetActiveConfigID remembers the AI config the user last selected
func (s *CredentialStore) SetActiveConfigID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeConfigID = id
	return s.persist()
}

// ActiveConfigID returns the persisted AI config selection, if any
func (s *CredentialStore) ActiveConfigID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeConfigID
}

func (s *CredentialStore) persist() error {
	data, err := json.MarshalIndent(credentialFile{
		AccessToken:    s.cred.AccessToken,
		RefreshToken:   s.cred.RefreshToken,
		ActiveConfigID: s.activeConfigID,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// DefaultCredentialPath places the store under the user's home directory
func DefaultCredentialPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".word-soul", "credentials.json")
}
