// Package users is the file-backed account registry for the connection
// layer. Tokens gate the signal stream; a separate admin token unlocks the
// stats surface.
package users

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
)

// User is one registered account.
type User struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

// Service answers token checks against the loaded user file and the
// configured admin token.
type Service struct {
	mu         sync.RWMutex
	users      []User
	path       string
	adminToken string
	logger     *slog.Logger
}

// Load reads the user file and creates the service. A missing file is not
// an error; the service starts empty and only the admin token validates.
func Load(path, adminToken string, logger *slog.Logger) (*Service, error) {
	s := &Service{
		path:       path,
		adminToken: adminToken,
		logger:     logger.With(slog.String("component", "users")),
	}

	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("user file absent, starting empty", slog.String("path", path))
			return s, nil
		}
		return nil, fmt.Errorf("users: read %s: %w", path, err)
	}

	var loaded []User
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return nil, fmt.Errorf("users: parse %s: %w", path, err)
	}
	s.users = loaded

	s.logger.Info("users loaded", slog.Int("count", len(loaded)))
	return s, nil
}

// ValidateToken reports whether the token belongs to a registered user or
// is the admin token. An empty token never validates.
func (s *Service) ValidateToken(token string) bool {
	if token == "" {
		return false
	}
	if s.IsAdmin(token) {
		return true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Token == token {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the token is the configured admin token.
func (s *Service) IsAdmin(token string) bool {
	return s.adminToken != "" && token == s.adminToken
}

// Add registers a user and rewrites the backing file when one is
// configured.
func (s *Service) Add(u User) error {
	if u.Token == "" {
		return fmt.Errorf("users: add %q: empty token", u.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, u)

	if s.path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(s.users, "", "  ")
	if err != nil {
		return fmt.Errorf("users: marshal: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("users: write %s: %w", s.path, err)
	}
	return nil
}

// Count returns the number of registered users.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
