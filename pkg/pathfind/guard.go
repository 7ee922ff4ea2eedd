package pathfind

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-isonav/pkg/logging"
	"github.com/opd-ai/go-isonav/pkg/physics"
)

var errNoPath = errors.New("no path")

// GuardSettings configures the breaker in front of a Finder.
type GuardSettings struct {
	// MaxRequests is how many trial searches a half-open breaker admits.
	MaxRequests uint32
	// Interval clears the failure counts while closed; zero never clears.
	Interval time.Duration
	// Timeout is how long the breaker stays open.
	Timeout time.Duration
	// MaxConsecutiveFailures trips the breaker.
	MaxConsecutiveFailures uint32
}

// DefaultGuardSettings sheds path requests for two seconds after ten
// searches in a row fail.
func DefaultGuardSettings() GuardSettings {
	return GuardSettings{
		MaxRequests:            1,
		Interval:               0,
		Timeout:                2 * time.Second,
		MaxConsecutiveFailures: 10,
	}
}

// Guard puts a circuit breaker in front of a Finder. Searches that come back
// empty count as failures; while the breaker is open requests return nil
// without searching, so a map where every goal is unreachable cannot spend
// the frame budget on exhausted searches.
type Guard struct {
	finder  Finder
	breaker *gobreaker.CircuitBreaker
}

// NewGuard wraps finder. A nil logger discards breaker transitions.
func NewGuard(finder Finder, settings GuardSettings, logger *logging.Logger) *Guard {
	if logger == nil {
		logger = logging.Discard()
	}
	def := DefaultGuardSettings()
	if settings.MaxRequests == 0 {
		settings.MaxRequests = def.MaxRequests
	}
	if settings.Timeout <= 0 {
		settings.Timeout = def.Timeout
	}
	if settings.MaxConsecutiveFailures == 0 {
		settings.MaxConsecutiveFailures = def.MaxConsecutiveFailures
	}

	st := gobreaker.Settings{
		Name:        "isonav-pathfind",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info(context.Background(), "path breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}
	return &Guard{
		finder:  finder,
		breaker: gobreaker.NewCircuitBreaker(st),
	}
}

// FindPath forwards to the wrapped Finder unless the breaker is open.
func (g *Guard) FindPath(start, goal physics.Vector2D, isBlocked BlockedFunc) []physics.Vector2D {
	res, err := g.breaker.Execute(func() (interface{}, error) {
		path := g.finder.FindPath(start, goal, isBlocked)
		if path == nil {
			return nil, errNoPath
		}
		return path, nil
	})
	if err != nil {
		return nil
	}
	return res.([]physics.Vector2D)
}

// State reports the breaker state as "closed", "half-open" or "open".
func (g *Guard) State() string {
	return g.breaker.State().String()
}

// Open reports whether path requests are currently being shed.
func (g *Guard) Open() bool {
	return g.breaker.State() == gobreaker.StateOpen
}
