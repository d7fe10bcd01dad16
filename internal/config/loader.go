package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nexhop/gateway/internal/util"
)

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// RouteFile is the on-disk shape of the proxy configuration file.
type RouteFile struct {
	Proxies []RouteEntry `yaml:"proxies" json:"proxies"`
}

// LoadRoutes loads, defaults, and validates route entries from a YAML
// file. Order in the file is preserved.
func LoadRoutes(path string) ([]RouteEntry, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, util.NewConfigErrorWithCause("proxy_config_path",
			fmt.Sprintf("failed to resolve path %s", path), err)
	}

	data, err := os.ReadFile(absPath) //nolint:gosec // path is operator-supplied configuration
	if err != nil {
		return nil, util.NewConfigErrorWithCause("proxy_config_path",
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	return ParseRoutes(data)
}

// LoadRoutesFromReader loads route entries from an io.Reader.
func LoadRoutesFromReader(r io.Reader) ([]RouteEntry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, util.NewConfigErrorWithCause("proxy_config", "failed to read config", err)
	}
	return ParseRoutes(data)
}

// ParseRoutes parses YAML route configuration data. Environment
// variable references of the form ${VAR} and ${VAR:-default} are
// substituted before parsing.
func ParseRoutes(data []byte) ([]RouteEntry, error) {
	content := substituteEnvVars(string(data))

	var file RouteFile
	if err := yaml.Unmarshal([]byte(content), &file); err != nil {
		return nil, util.NewConfigErrorWithCause("proxy_config", "failed to parse YAML", err)
	}

	for i := range file.Proxies {
		file.Proxies[i].ApplyDefaults()
	}

	if err := ValidateEntries(file.Proxies); err != nil {
		return nil, err
	}

	return file.Proxies, nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment variable values. $$ escapes a literal dollar sign.
func substituteEnvVars(content string) string {
	content = strings.ReplaceAll(content, "$$", "\x00ESCAPED_DOLLAR\x00")

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		defaultValue := ""
		if len(submatches) >= 3 {
			defaultValue = submatches[2]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return defaultValue
	})

	return strings.ReplaceAll(result, "\x00ESCAPED_DOLLAR\x00", "$")
}
