package policy

import (
	"fmt"
	"strings"

	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
)

// CheckActionAllowed rejects actions missing from a non-empty allowlist.
func CheckActionAllowed(allowlist []string, action string) error {
	if len(allowlist) == 0 {
		return nil
	}
	want := normalize(action)
	for _, allowed := range allowlist {
		if normalize(allowed) == want {
			return nil
		}
	}
	return clierr.New(clierr.CodeBlocked, fmt.Sprintf("action %q blocked by --enable-actions policy", want))
}

// CheckActionsAllowed validates every action up front so a batch never starts
// with a step that would be refused.
func CheckActionsAllowed(allowlist, actions []string) error {
	for _, action := range actions {
		if err := CheckActionAllowed(allowlist, action); err != nil {
			return err
		}
	}
	return nil
}

func normalize(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.ReplaceAll(v, "_", "-")
}
