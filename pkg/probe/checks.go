package probe

import (
	"context"
	"errors"
	"fmt"
)

// HealthChecker is anything with a health check, such as an llm.Provider.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ErrMissingKey is returned by Key for an empty credential.
var ErrMissingKey = errors.New("not configured")

// LLM checks the text-generation provider.
func LLM(h HealthChecker, critical bool) Probe {
	return Probe{Name: "LLM", Check: h.HealthCheck, Critical: critical}
}

// Database pings the story database.
func Database(p Pinger) Probe {
	return Probe{Name: "Database", Check: p.PingContext, Critical: true}
}

// Key checks that a credential is present. Without it the matching
// pipeline step always falls back, which is survivable.
func Key(name, value string) Probe {
	return Probe{
		Name: name,
		Check: func(context.Context) error {
			if value == "" {
				return fmt.Errorf("%s %w", name, ErrMissingKey)
			}
			return nil
		},
	}
}
