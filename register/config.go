package register

import (
	"strings"
	"time"

	"github.com/jacentio/incargo/internal/keypath"
)

// DefaultRoot is the store path all intake records live under.
const DefaultRoot = "DeptName/WareHouseDept2/InCargo"

// Config holds configuration for the register service.
type Config struct {
	// Root is the store path the register reads and writes under.
	// Default: "DeptName/WareHouseDept2/InCargo"
	Root string

	// Now is the clock used for collision suffixes, "today" and weekday moves.
	// Default: time.Now
	Now func() time.Time

	// OnChange is called after every completed mutation so views can
	// re-aggregate. It runs on the caller's goroutine.
	// Default: nil (no hook)
	OnChange func(Change)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Root: DefaultRoot,
		Now:  time.Now,
	}
}

// validate fills unset values with defaults.
func (c *Config) validate() {
	c.Root = keypath.Join(strings.TrimSpace(c.Root))
	if c.Root == "" {
		c.Root = DefaultRoot
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Op names the kind of mutation reported to OnChange.
type Op string

// Mutation kinds.
const (
	OpIntake  Op = "intake"
	OpDelete  Op = "delete"
	OpSetDate Op = "set-date"
	OpMove    Op = "move"
	OpMigrate Op = "migrate"
)

// Change describes a completed mutation.
type Change struct {
	Op    Op
	Paths []string
}
