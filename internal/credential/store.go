// Package credential provides the bearer token used for Atlas API calls.
//
// The browser client kept its JWT in persistent client storage under a fixed
// key. Store reproduces that as a small JSON file of key/value pairs so the
// daemon, the CLI and the MCP server share one login.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// TokenKey is the client storage key holding the bearer JWT.
const TokenKey = "jwt"

// ErrMissingCredential reports that no token is present. Authenticated calls
// must not be attempted when this is returned.
var ErrMissingCredential = errors.New("missing credential: no token in client storage")

// Provider supplies the bearer token. oauth2.TokenSource is used directly so
// static tokens, refreshing sources and the file store are interchangeable.
type Provider = oauth2.TokenSource

// Store is a file-backed key/value client storage.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a store backed by the file at path. The file is created on
// the first Set.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Get returns the value stored under key, or "" if absent.
func (s *Store) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

// Remove deletes key from the store.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}

// Token implements oauth2.TokenSource. It reads the JWT on every call so a
// login from another process is picked up without a restart.
func (s *Store) Token() (*oauth2.Token, error) {
	jwt, err := s.Get(TokenKey)
	if err != nil {
		return nil, err
	}
	return tokenOrMissing(jwt)
}

func (s *Store) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read client storage: %w", err)
	}

	values := map[string]string{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode client storage %s: %w", s.path, err)
	}
	return values, nil
}

func (s *Store) save(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create client storage directory: %w", err)
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode client storage: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write client storage: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace client storage: %w", err)
	}
	return nil
}

// Static returns a provider for a fixed token. An empty token yields
// ErrMissingCredential.
func Static(jwt string) Provider {
	return staticSource(jwt)
}

type staticSource string

func (s staticSource) Token() (*oauth2.Token, error) {
	return tokenOrMissing(string(s))
}

func tokenOrMissing(jwt string) (*oauth2.Token, error) {
	jwt = strings.TrimSpace(jwt)
	if jwt == "" {
		return nil, ErrMissingCredential
	}
	return &oauth2.Token{AccessToken: jwt, TokenType: "Bearer"}, nil
}

// AccessToken resolves the raw JWT from a provider, mapping an empty token to
// ErrMissingCredential.
func AccessToken(p Provider) (string, error) {
	if p == nil {
		return "", ErrMissingCredential
	}
	tok, err := p.Token()
	if err != nil {
		return "", err
	}
	if tok == nil || strings.TrimSpace(tok.AccessToken) == "" {
		return "", ErrMissingCredential
	}
	return tok.AccessToken, nil
}
