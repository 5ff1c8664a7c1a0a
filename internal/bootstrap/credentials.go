package bootstrap

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jsamuelsen/quotewidget/internal/platform/config"
)

// defaultAPIKeyHeader is used when credentials.header is empty.
const defaultAPIKeyHeader = "x-api-key"

var (
	errUnknownCredentialSource = errors.New("unknown credential source")
	errMissingCredential       = errors.New("credential not set")
)

// LookupEnvFunc reads an environment variable. It matches os.LookupEnv.
type LookupEnvFunc func(key string) (string, bool)

// authFunc builds the request decorator for the configured credential source.
// A nil func with a nil error means requests go out unauthenticated.
func authFunc(creds config.CredentialsConfig, lookup LookupEnvFunc) (func(*http.Request), error) {
	source := strings.ToLower(strings.TrimSpace(creds.Source))

	switch source {
	case "", config.CredentialSourceNone:
		return nil, nil

	case config.CredentialSourceAPIKey:
		secret, err := readSecret(creds.Env, lookup)
		if err != nil {
			return nil, err
		}

		header := creds.Header
		if header == "" {
			header = defaultAPIKeyHeader
		}

		return func(r *http.Request) { r.Header.Set(header, secret) }, nil

	case config.CredentialSourceBearer:
		secret, err := readSecret(creds.Env, lookup)
		if err != nil {
			return nil, err
		}

		return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+secret) }, nil

	default:
		return nil, fmt.Errorf("%w: %q", errUnknownCredentialSource, creds.Source)
	}
}

func readSecret(name string, lookup LookupEnvFunc) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: no environment variable configured", errMissingCredential)
	}

	secret, ok := lookup(name)
	if !ok || strings.TrimSpace(secret) == "" {
		return "", fmt.Errorf("%w: %s is empty", errMissingCredential, name)
	}

	return secret, nil
}
