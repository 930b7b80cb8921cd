// Package config carries the runtime settings for scoring: whether candidate
// code is executed, whether missing analyzers may be installed, and the
// subprocess timeouts. Settings come from defaults, an optional YAML file,
// and environment toggles, in that order.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment toggles. Both are off-switches: setting them to a truthy value
// disables the corresponding behavior.
const (
	EnvSkipExec  = "TITAN_SKIP_EXEC"
	EnvNoInstall = "TITAN_NO_INSTALL"
)

// Default timeouts.
const (
	DefaultQualityTimeout = 60 * time.Second
	DefaultExecTimeout    = 20 * time.Second
)

// Settings controls how a scoring run behaves.
type Settings struct {
	RunExec        bool          // run candidate tests and smoke imports
	AllowInstall   bool          // install missing analyzers on demand
	QualityTimeout time.Duration // per-analyzer subprocess timeout
	ExecTimeout    time.Duration // candidate test-run timeout
}

// UnmarshalYAML overlays only the keys present in the document, so a partial
// file keeps the remaining defaults. Timeouts use Go duration syntax.
func (s *Settings) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		RunExec        *bool  `yaml:"run_exec"`
		AllowInstall   *bool  `yaml:"allow_install"`
		QualityTimeout string `yaml:"quality_timeout"`
		ExecTimeout    string `yaml:"exec_timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.RunExec != nil {
		s.RunExec = *raw.RunExec
	}
	if raw.AllowInstall != nil {
		s.AllowInstall = *raw.AllowInstall
	}
	if raw.QualityTimeout != "" {
		d, err := time.ParseDuration(raw.QualityTimeout)
		if err != nil {
			return fmt.Errorf("quality_timeout: %w", err)
		}
		s.QualityTimeout = d
	}
	if raw.ExecTimeout != "" {
		d, err := time.ParseDuration(raw.ExecTimeout)
		if err != nil {
			return fmt.Errorf("exec_timeout: %w", err)
		}
		s.ExecTimeout = d
	}
	return nil
}

// Default returns settings with execution and installs enabled.
func Default() *Settings {
	return &Settings{
		RunExec:        true,
		AllowInstall:   true,
		QualityTimeout: DefaultQualityTimeout,
		ExecTimeout:    DefaultExecTimeout,
	}
}

// ApplyFile overlays settings from a YAML file. A missing file is not an
// error; a malformed one is.
func (s *Settings) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	if s.QualityTimeout <= 0 {
		s.QualityTimeout = DefaultQualityTimeout
	}
	if s.ExecTimeout <= 0 {
		s.ExecTimeout = DefaultExecTimeout
	}
	return nil
}

// LoadFromEnv applies the environment off-switches. Unset or falsy values
// leave the settings alone.
func (s *Settings) LoadFromEnv() {
	if truthy(os.Getenv(EnvSkipExec)) {
		s.RunExec = false
	}
	if truthy(os.Getenv(EnvNoInstall)) {
		s.AllowInstall = false
	}
}

func truthy(value string) bool {
	switch value {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	}
	return false
}
