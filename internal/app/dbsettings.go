package app

import (
	"strings"

	"github.com/EvoluTechs/riftcollect/internal/database"
)

// DatabaseSettings converts the configured database section into connection
// options for the storage layer.
func (c *Config) DatabaseSettings() database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(c.Database.Driver)),
		Path:   strings.TrimSpace(c.Database.Path),
		DSN:    strings.TrimSpace(c.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(c.Database.Postgres.Host)
		dbCfg.Port = c.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(c.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(c.Database.Postgres.Username)
		dbCfg.Password = c.Database.Postgres.Password
	case "mysql", "mariadb":
		dbCfg.Driver = "mysql"
		dbCfg.Host = strings.TrimSpace(c.Database.MySQL.Host)
		dbCfg.Port = c.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(c.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(c.Database.MySQL.Username)
		dbCfg.Password = c.Database.MySQL.Password
	}

	return dbCfg
}

// FallbackSettings returns the embedded secondary store configuration, or
// false when fallback is disabled.
func (c *Config) FallbackSettings() (database.Config, bool) {
	if !c.Database.Fallback.Enabled {
		return database.Config{}, false
	}
	return database.Config{
		Driver: "sqlite",
		Path:   strings.TrimSpace(c.Database.Fallback.Path),
	}, true
}
