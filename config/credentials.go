package config

import (
	"errors"
	"os"
	"strings"
)

// TokenEnvVar holds the PONTOS API token.
const TokenEnvVar = "PONTOS_TOKEN"

// ErrMissingToken is returned when no API token is configured.
var ErrMissingToken = errors.New("the " + TokenEnvVar + " environment variable has not been set")

// Token returns the PONTOS API token from the environment.
func Token() (string, error) {
	token := strings.TrimSpace(os.Getenv(TokenEnvVar))
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
