package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	appEnvVar              = "APP_ENV"
	environmentDevelopment = "development"
	environmentProduction  = "production"
	environmentStaging     = "staging"
)

const (
	// EnvironmentDevelopment is the canonical development environment
	// identifier.
	EnvironmentDevelopment = environmentDevelopment
	// EnvironmentProduction is the canonical production environment
	// identifier.
	EnvironmentProduction = environmentProduction
	// EnvironmentStaging is the canonical staging environment identifier.
	EnvironmentStaging = environmentStaging
)

var environmentAliases = map[string]string{
	"dev":   environmentDevelopment,
	"prod":  environmentProduction,
	"stag":  environmentStaging,
	"stage": environmentStaging,
}

// getAppEnvironment reads the application environment from APP_ENV and
// defaults to development when no value is provided.
func getAppEnvironment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv(appEnvVar)))
	if env == "" {
		return environmentDevelopment
	}
	if canonical, ok := environmentAliases[env]; ok {
		return canonical
	}
	return env
}

// AppEnvironment exposes the current application environment as configured
// through APP_ENV, normalised with the same alias rules ResolvePath uses.
func AppEnvironment() string {
	return getAppEnvironment()
}

// ResolvePath picks an environment specific variant of the default config
// file (config/config.production.yml for APP_ENV=production) when the caller
// did not ask for an explicit path and that variant exists.
func ResolvePath(path string) string {
	if path == "" {
		path = DefaultConfigPath
	}
	if path != DefaultConfigPath {
		return path
	}

	env := getAppEnvironment()
	if env == environmentDevelopment {
		return path
	}

	ext := filepath.Ext(path)
	candidate := strings.TrimSuffix(path, ext) + "." + env + ext
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return path
}
