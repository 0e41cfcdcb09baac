package planner

import (
	"context"
	"strings"

	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/providers"
)

// Obligation is a lending position and the key object that authorises it.
type Obligation struct {
	ID    string
	KeyID string
}

// LookupObligation finds the owner's first obligation key and the obligation
// it points at. A key without a readable ownership path counts as absent.
func LookupObligation(ctx context.Context, chain providers.ChainReader, owner, keyType string) (Obligation, bool, error) {
	keys, err := chain.OwnedObjects(ctx, owner, keyType)
	if err != nil {
		return Obligation{}, false, clierr.Wrap(clierr.CodeExternal, "list obligation keys", err)
	}
	if len(keys) == 0 {
		return Obligation{}, false, nil
	}
	key := keys[0]
	ownership, ok := nestedMap(key.Fields, "ownership", "fields")
	if !ok {
		return Obligation{}, false, nil
	}
	for _, field := range []string{"owner_object_id", "of"} {
		if v, ok := ownership[field].(string); ok && strings.TrimSpace(v) != "" {
			return Obligation{ID: strings.TrimSpace(v), KeyID: key.ObjectID}, true, nil
		}
	}
	return Obligation{}, false, nil
}

func nestedMap(root map[string]any, path ...string) (map[string]any, bool) {
	current := root
	for _, key := range path {
		next, ok := current[key].(map[string]any)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, current != nil
}
