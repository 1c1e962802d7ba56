// Package simulate drives a running ethos service with random-walk trait
// snapshots and verifies the resulting character state.
package simulate

import (
	"fmt"
	"runtime"
	"time"

	"github.com/okian/ethos/internal/domain/trait"
)

// Default run parameters.
const (
	DefaultBaseURL    = "http://localhost:9080"
	DefaultCharacters = 100
	DefaultSteps      = 20
	DefaultMaxStep    = 10
	DefaultTimeout    = 30 * time.Second
	DefaultSettle     = 30 * time.Second
	DefaultDuplicates = 10

	workerMultiplier = 2
)

// DefaultTraits is the trait set each simulated character carries.
var DefaultTraits = []string{"courage", "honesty", "wisdom", "greed", "wrath", "curiosity"}

// Config holds the parameters of one simulation run.
type Config struct {
	BaseURL    string        // base URL of the service
	Characters int           // number of distinct characters
	Steps      int           // snapshots per character
	Workers    int           // concurrent submitters
	Traits     []string      // trait names every snapshot carries
	MaxStep    int           // largest per-step move of a single trait
	Seed       uint64        // random walk seed; zero picks one from the clock
	Duplicates int           // events re-sent at the end to exercise deduplication
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // how long verification waits for async application
	OutputFile string        // optional JSON dump of the generated events
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		BaseURL:    DefaultBaseURL,
		Characters: DefaultCharacters,
		Steps:      DefaultSteps,
		Workers:    runtime.NumCPU() * workerMultiplier,
		Traits:     append([]string(nil), DefaultTraits...),
		MaxStep:    DefaultMaxStep,
		Duplicates: DefaultDuplicates,
		Timeout:    DefaultTimeout,
		Settle:     DefaultSettle,
	}
}

// Validate reports the first unusable field.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case c.Characters < 1:
		return fmt.Errorf("%w: characters must be positive", ErrInvalidConfig)
	case c.Steps < 1:
		return fmt.Errorf("%w: steps must be positive", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case len(c.Traits) == 0:
		return fmt.Errorf("%w: at least one trait is required", ErrInvalidConfig)
	case c.MaxStep < 1:
		return fmt.Errorf("%w: max step must be positive", ErrInvalidConfig)
	case c.Duplicates < 0:
		return fmt.Errorf("%w: duplicates must not be negative", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// Event is the wire form of a snapshot submission.
type Event struct {
	EventID     string         `json:"event_id"`
	CharacterID string         `json:"character_id"`
	Traits      trait.Snapshot `json:"traits"`
	TS          string         `json:"ts"`
}

// Stats summarizes a run.
type Stats struct {
	EventsGenerated    int
	EventsSubmitted    int
	EventsAccepted     int
	EventsDuplicate    int
	EventsFailed       int
	CharactersVerified int
	CharactersMismatch int
	ExpectedMilestones int
	ExpectedUnlocks    int
	Duration           time.Duration
}
