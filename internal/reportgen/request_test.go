package reportgen

import (
	"testing"

	"github.com/localrivet/githubsentinel/internal/errortypes"
)

func TestRequestNormalize(t *testing.T) {
	r := Request{Repository: " octo/hello "}
	if err := r.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if r.Repository != "octo/hello" || r.Days != DefaultDays {
		t.Errorf("Unexpected request %+v", r)
	}

	r = Request{Repository: "octo/hello", Days: -1, Since: "last week"}
	if err := r.Normalize(); err != nil {
		t.Errorf("Since should bypass day validation, got %v", err)
	}

	for _, bad := range []Request{
		{Repository: "octo"},
		{Repository: "octo/hello", Days: MaxDays + 1},
		{Repository: "octo/hello", Days: -3},
	} {
		if err := bad.Normalize(); !errortypes.IsValidationError(err) {
			t.Errorf("Normalize(%+v): expected validation error, got %v", bad, err)
		}
	}
}
