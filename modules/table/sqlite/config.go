package sqlite

import "fmt"

const defaultBusyTimeout = 5000

// Config holds the table module configuration.
type Config struct {
	// Path is the database file path. Defaults to ":memory:".
	Path string `yaml:"path"`

	// WAL enables WAL journal mode for concurrent reads. Defaults to true.
	// Ignored for in-memory databases.
	WAL *bool `yaml:"wal"`

	// BusyTimeout is the milliseconds to wait on a busy lock. Defaults to 5000.
	BusyTimeout int `yaml:"busy_timeout"`
}

func (c *Config) defaults() {
	if c.Path == "" {
		c.Path = ":memory:"
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
}

func (c *Config) walEnabled() bool {
	return c.Path != ":memory:" && (c.WAL == nil || *c.WAL)
}

func (c *Config) validate() error {
	if c.BusyTimeout < 0 {
		return fmt.Errorf("table: busy_timeout must be non-negative, got %d", c.BusyTimeout)
	}
	return nil
}
