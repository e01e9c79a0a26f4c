package auth

import (
	"context"
	"fmt"
	"strings"
)

type Identity struct {
	KeyID string
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

// StaticAPIKeyValidator resolves bearer secrets against a fixed set parsed
// from configuration.
type StaticAPIKeyValidator struct {
	keys map[string]Identity
}

// NewStaticAPIKeyValidator parses a comma-separated list of key_id:secret
// entries. An empty spec yields a validator that rejects everything, which
// pairs with Auth.Required=false to disable the middleware entirely.
func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{keys: map[string]Identity{}}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return validator, nil
	}

	entries := strings.Split(spec, ",")
	for _, entry := range entries {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid static key entry %q: expected key_id:secret", entry)
		}
		keyID := strings.TrimSpace(parts[0])
		secret := strings.TrimSpace(parts[1])
		if keyID == "" || secret == "" {
			return nil, fmt.Errorf("invalid static key entry %q: empty key id or secret", entry)
		}
		if _, exists := validator.keys[secret]; exists {
			return nil, fmt.Errorf("invalid static key entry %q: duplicate secret", entry)
		}
		validator.keys[secret] = Identity{KeyID: keyID}
	}

	return validator, nil
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	identity, ok := v.keys[apiKey]
	return identity, ok
}
