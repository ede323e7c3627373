package database

import (
	"fmt"
	"strings"
)

// DatabaseConfig holds database connection configuration for the pizza store
type DatabaseConfig struct {
	// Driver specifies the database driver (postgres, sqlite)
	Driver string

	// PostgreSQL-specific configuration
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string

	// SQLite-specific configuration
	Path string
}

// String returns a string representation with sensitive data masked
func (c *DatabaseConfig) String() string {
	return fmt.Sprintf("DatabaseConfig{Driver: %s, Host: %s, Port: %s, User: %s, Password: [REDACTED], Name: %s, SSLMode: %s, Path: %s}",
		c.Driver, c.Host, c.Port, c.User, c.Name, c.SSLMode, c.Path)
}

// NormalizedDriver returns the lowercased driver name, treating the empty
// string as sqlite so a bare config still yields a working local store.
func (c *DatabaseConfig) NormalizedDriver() string {
	driver := strings.ToLower(c.Driver)
	if driver == "" {
		return "sqlite"
	}
	return driver
}

// DSN builds a Data Source Name string based on the driver.
// Returns an error for unsupported drivers or an empty sqlite path.
func (c *DatabaseConfig) DSN() (string, error) {
	switch c.NormalizedDriver() {
	case "postgres", "postgresql":
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode), nil
	case "sqlite":
		if c.Path == "" {
			return "", fmt.Errorf("sqlite driver requires a database path")
		}
		return c.Path, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s (supported: postgres, sqlite)", c.Driver)
	}
}
