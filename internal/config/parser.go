package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	cpherrors "github.com/alexisbeaulieu97/cph/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CPH_"

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty), then CPH_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			msg := "invalid YAML"
			if line := extractLine(err); line > 0 {
				msg = fmt.Sprintf("invalid YAML at line %d", line)
			}
			return nil, cpherrors.NewValidationError(path, msg, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv loads variables from a .env file into the process environment.
// A missing file is not an error; variables already set are kept.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from CPH_* variables resolved through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	var errs []error
	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := get("MAX_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, cpherrors.NewValidationError(EnvPrefix+"MAX_WORKERS", "must be an integer", err))
		} else {
			c.MaxWorkers = n
		}
	}
	for name, target := range map[string]*bool{"PARALLEL": &c.Parallel, "LINEAR": &c.Linear} {
		if v, ok := get(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, cpherrors.NewValidationError(EnvPrefix+name, "must be a boolean", err))
				continue
			}
			*target = b
		}
	}

	strs := map[string]*string{
		"CONTAINER":      &c.Container,
		"CONTEST_NAME":   &c.Context.ContestName,
		"PROBLEM_NAME":   &c.Context.ProblemName,
		"LANGUAGE":       &c.Context.Language,
		"ENV_TYPE":       &c.Context.EnvType,
		"WORKSPACE_PATH": &c.Context.WorkspacePath,
	}
	for name, target := range strs {
		if v, ok := get(name); ok {
			*target = v
		}
	}
	return errors.Join(errs...)
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	line, convErr := strconv.Atoi(matches[1])
	if convErr != nil {
		return 0
	}
	return line
}
