package reportgen

import (
	"fmt"
	"strings"

	"github.com/localrivet/githubsentinel/internal/errortypes"
	"github.com/localrivet/githubsentinel/internal/subscription"
)

// DefaultDays is the report window when none is given.
const DefaultDays = 2

// MaxDays bounds the report window.
const MaxDays = 30

// Request asks for a report on one repository. Since, when set, takes
// precedence over Days and accepts natural-language dates.
type Request struct {
	Repository string `json:"repository"`
	Days       int    `json:"days,omitempty"`
	Since      string `json:"since,omitempty"`
	DryRun     bool   `json:"dry_run,omitempty"`
}

// Normalize trims the request and applies defaults.
func (r *Request) Normalize() error {
	r.Repository = strings.TrimSpace(r.Repository)
	r.Since = strings.TrimSpace(r.Since)

	if err := subscription.ValidateRepo(r.Repository); err != nil {
		return err
	}
	if r.Since != "" {
		return nil
	}
	if r.Days == 0 {
		r.Days = DefaultDays
	}
	if r.Days < 1 || r.Days > MaxDays {
		return errortypes.ValidationError(
			fmt.Errorf("days must be between 1 and %d, got %d", MaxDays, r.Days), "invalid report window").
			WithField("days", r.Days)
	}
	return nil
}
