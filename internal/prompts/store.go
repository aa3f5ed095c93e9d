// Package prompts loads the per-repository system prompts used for report
// generation.
package prompts

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/localrivet/githubsentinel/internal/errortypes"
)

// Dir is the directory, relative to the store root, that holds prompt files.
const Dir = "prompts"

// Store resolves repository identifiers to prompt files and reads them.
// Nothing is cached; every Load reads the file again.
type Store struct {
	fsys   fs.FS
	logger *slog.Logger
}

// NewStore creates a Store reading from fsys. fsys is the root that contains
// the prompts directory.
func NewStore(fsys fs.FS, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{fsys: fsys, logger: logger}
}

// NewDirStore creates a Store rooted at dir on the local filesystem.
func NewDirStore(dir string, logger *slog.Logger) *Store {
	return NewStore(os.DirFS(dir), logger)
}

// PromptPath returns the resource path for repositoryID.
func PromptPath(repositoryID string) string {
	return fmt.Sprintf("%s/%s.txt", Dir, repositoryID)
}

// Load returns the full prompt text for repositoryID.
func (s *Store) Load(repositoryID string) (string, error) {
	p := PromptPath(repositoryID)

	// Identifiers that would resolve outside the prompts directory name no
	// prompt resource at all.
	if strings.TrimSpace(repositoryID) == "" || !fs.ValidPath(p) {
		return "", errortypes.ResourceNotFound(fs.ErrNotExist, "no prompt for repository").
			WithField("repository", repositoryID)
	}

	data, err := fs.ReadFile(s.fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", errortypes.ResourceNotFound(err, "no prompt for repository").
				WithField("repository", repositoryID).
				WithField("path", p)
		}
		return "", errortypes.InternalError(err, "failed to read prompt").
			WithField("path", p)
	}

	s.logger.Debug("Loaded prompt", "repository", repositoryID, "path", p, "bytes", len(data))
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}
