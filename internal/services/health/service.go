package health

import (
	"context"
	"time"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB and any other dependency with a liveness probe.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	checks map[string]Pinger
}

// NewService constructs a new health service. Nil dependencies are skipped.
func NewService(checks map[string]Pinger) *Service {
	s := &Service{checks: map[string]Pinger{}}
	for name, p := range checks {
		if p != nil {
			s.checks[name] = p
		}
	}
	return s
}

// Status pings every dependency and reports whether all of them answered.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	deps := map[string]string{}
	ok := true
	for name, p := range s.checks {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := p.PingContext(pctx)
		cancel()
		if err != nil {
			deps[name] = err.Error()
			ok = false
			continue
		}
		deps[name] = "ok"
	}
	return map[string]any{"ok": ok, "dependencies": deps}, ok
}
