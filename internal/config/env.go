package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/cyra/logpipe/internal/elastic"
	"github.com/cyra/logpipe/internal/errkind"
)

// Environment keys read by the pipeline.
const (
	EnvElasticHost           = "ELASTIC_HOST"
	EnvElasticUser           = "ELASTIC_USER"
	EnvElasticPass           = "ELASTIC_PASS"
	EnvElasticCertValidation = "ELASTIC_CERT_VALIDATION"
	EnvDefaultURLPrefix      = "DEFAULT_URL_"
)

// LookupFunc reads one environment key.
type LookupFunc func(key string) (string, bool)

// OSLookup reads from the process environment.
var OSLookup LookupFunc = os.LookupEnv

// DefaultURL resolves the URL source address stored under DEFAULT_URL_<suffix>.
func DefaultURL(lookup LookupFunc, suffix string) (string, error) {
	key := EnvDefaultURLPrefix + suffix
	addr, ok := lookup(key)
	if !ok || addr == "" {
		return "", errkind.Errorf(errkind.Config, "resolve url", "environment variable %s not set", key)
	}
	return addr, nil
}

// ElasticSettings merges the elastic section with the ELASTIC_* environment.
// Host, user and password are required.
func (c ElasticConfig) ElasticSettings(lookup LookupFunc) (elastic.Settings, error) {
	s := elastic.Settings{
		Host:     c.Host,
		User:     c.User,
		Password: c.Password,
	}

	var missing []string
	fill := func(dst *string, key string) {
		if *dst != "" {
			return
		}
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
			return
		}
		missing = append(missing, key)
	}
	fill(&s.Host, EnvElasticHost)
	fill(&s.User, EnvElasticUser)
	fill(&s.Password, EnvElasticPass)
	if len(missing) > 0 {
		return elastic.Settings{}, errkind.Errorf(errkind.Config, "resolve elastic settings",
			"missing %s", strings.Join(missing, ", "))
	}

	if c.CertValidation != nil {
		s.CertValidation = *c.CertValidation
	} else if v, ok := lookup(EnvElasticCertValidation); ok {
		s.CertValidation = parseBool(v)
	}
	return s, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "t", "1":
		return true
	default:
		return false
	}
}

// String hides the password in log output.
func (c ElasticConfig) String() string {
	return fmt.Sprintf("{host=%s user=%s}", c.Host, c.User)
}
