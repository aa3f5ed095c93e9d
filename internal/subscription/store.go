// Package subscription keeps the list of watched GitHub repositories in a
// JSON file.
package subscription

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/localrivet/githubsentinel/internal/errortypes"
)

var repoPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// Store is a JSON-file backed subscription list. A missing file reads as an
// empty list.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewStore creates a store backed by path.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger.WithGroup("subscriptions")}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// ValidateRepo checks that repo has the owner/name form.
func ValidateRepo(repo string) error {
	if !repoPattern.MatchString(repo) || strings.Contains(repo, "..") {
		return errortypes.ValidationError(
			fmt.Errorf("invalid repository %q", repo), "repository must be owner/name").
			WithField("repository", repo)
	}
	return nil
}

// List returns the subscribed repositories in insertion order.
func (s *Store) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Add subscribes to repo. Adding an existing subscription is a no-op.
func (s *Store) Add(repo string) ([]string, error) {
	repo = strings.TrimSpace(repo)
	if err := ValidateRepo(repo); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	repos, err := s.read()
	if err != nil {
		return nil, err
	}
	for _, r := range repos {
		if r == repo {
			return repos, nil
		}
	}

	repos = append(repos, repo)
	if err := s.write(repos); err != nil {
		return nil, err
	}
	s.logger.Info("Subscription added", "repository", repo)
	return repos, nil
}

// Remove unsubscribes from repo. Removing an unknown repo is a no-op.
func (s *Store) Remove(repo string) ([]string, error) {
	repo = strings.TrimSpace(repo)

	s.mu.Lock()
	defer s.mu.Unlock()

	repos, err := s.read()
	if err != nil {
		return nil, err
	}

	kept := repos[:0]
	for _, r := range repos {
		if r != repo {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(repos) {
		return kept, nil
	}

	if err := s.write(kept); err != nil {
		return nil, err
	}
	s.logger.Info("Subscription removed", "repository", repo)
	return kept, nil
}

func (s *Store) read() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, errortypes.InternalError(err, "failed to read subscriptions").WithField("path", s.path)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return []string{}, nil
	}

	var repos []string
	if err := json.Unmarshal(data, &repos); err != nil {
		return nil, errortypes.ValidationError(err, "subscriptions file is not a JSON array of strings").
			WithField("path", s.path)
	}
	if repos == nil {
		repos = []string{}
	}
	return repos, nil
}

// write replaces the file atomically.
func (s *Store) write(repos []string) error {
	data, err := json.MarshalIndent(repos, "", "    ")
	if err != nil {
		return errortypes.InternalError(err, "failed to encode subscriptions")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errortypes.InternalError(err, "failed to create subscriptions directory").WithField("path", dir)
	}

	tmp, err := os.CreateTemp(dir, ".subscriptions-*.json")
	if err != nil {
		return errortypes.InternalError(err, "failed to create temp file").WithField("path", dir)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errortypes.InternalError(err, "failed to write subscriptions")
	}
	if err := tmp.Close(); err != nil {
		return errortypes.InternalError(err, "failed to write subscriptions")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errortypes.InternalError(err, "failed to replace subscriptions file").WithField("path", s.path)
	}
	return nil
}
