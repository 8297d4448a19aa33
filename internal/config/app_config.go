// Package config loads amalgam defaults from YAML files and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/temirov/amalgam/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
	// IgnoreEnvironment skips AMALGAM_* variables.
	IgnoreEnvironment bool
}

// ApplicationConfiguration holds the defaults applied when flags are not set.
type ApplicationConfiguration struct {
	Format      string             `mapstructure:"format"`
	Interactive *bool              `mapstructure:"interactive"`
	Summary     *bool              `mapstructure:"summary"`
	Tree        *bool              `mapstructure:"tree"`
	Copy        *bool              `mapstructure:"copy"`
	Fetch       FetchConfiguration `mapstructure:"fetch"`
	Merge       MergeConfiguration `mapstructure:"merge"`
	Tokens      TokenConfiguration `mapstructure:"tokens"`
}

// FetchConfiguration configures repository retrieval and path filtering.
type FetchConfiguration struct {
	Branch       string   `mapstructure:"branch"`
	Depth        *int     `mapstructure:"depth"`
	UseGitignore *bool    `mapstructure:"use_gitignore"`
	Exclude      []string `mapstructure:"exclude"`
	Include      []string `mapstructure:"include"`
}

// MergeConfiguration configures the merge engine.
type MergeConfiguration struct {
	Workers *int `mapstructure:"workers"`
}

// TokenConfiguration controls token counting defaults.
type TokenConfiguration struct {
	Enabled *bool  `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

var environmentKeys = []string{
	"format",
	"interactive",
	"summary",
	"tree",
	"copy",
	"fetch.branch",
	"fetch.depth",
	"fetch.use_gitignore",
	"fetch.exclude",
	"fetch.include",
	"merge.workers",
	"tokens.enabled",
	"tokens.model",
}

// LoadApplicationConfiguration loads configuration from the global file, the
// local file and the environment, in increasing order of precedence.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath, false)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Overlay(globalConfig)
	}

	localPath := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	localConfig, loadErr := loadConfigurationFromPath(localPath, options.ExplicitFilePath != "")
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	merged = merged.Overlay(localConfig)

	if !options.IgnoreEnvironment {
		environmentConfig, environmentErr := loadEnvironmentConfiguration()
		if environmentErr != nil {
			return ApplicationConfiguration{}, environmentErr
		}
		merged = merged.Overlay(environmentConfig)
	}

	merged.Fetch.Exclude = utils.DeduplicatePatterns(merged.Fetch.Exclude)
	merged.Fetch.Include = utils.DeduplicatePatterns(merged.Fetch.Include)

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) string {
	if explicitPath == "" {
		return filepath.Join(workingDirectory, utils.LocalConfigFileName)
	}
	if filepath.IsAbs(explicitPath) {
		return explicitPath
	}
	return filepath.Join(workingDirectory, explicitPath)
}

// loadConfigurationFromPath reads one YAML file. A missing file yields an
// empty configuration unless required is set.
func loadConfigurationFromPath(path string, required bool) (ApplicationConfiguration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) && !required {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// loadEnvironmentConfiguration decodes AMALGAM_* variables, for example
// AMALGAM_FETCH_DEPTH or AMALGAM_TOKENS_MODEL. Unset variables leave the
// corresponding fields empty.
func loadEnvironmentConfiguration() (ApplicationConfiguration, error) {
	reader := viper.New()
	reader.SetEnvPrefix(utils.EnvironmentPrefix)
	reader.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range environmentKeys {
		if bindErr := reader.BindEnv(key); bindErr != nil {
			return ApplicationConfiguration{}, fmt.Errorf("bind environment key %s: %w", key, bindErr)
		}
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode environment configuration: %w", decodeErr)
	}
	return config, nil
}

// Overlay applies override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Overlay(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.Interactive != nil {
		result.Interactive = cloneBool(override.Interactive)
	}
	if override.Summary != nil {
		result.Summary = cloneBool(override.Summary)
	}
	if override.Tree != nil {
		result.Tree = cloneBool(override.Tree)
	}
	if override.Copy != nil {
		result.Copy = cloneBool(override.Copy)
	}
	result.Fetch = result.Fetch.merge(override.Fetch)
	result.Merge = result.Merge.merge(override.Merge)
	result.Tokens = result.Tokens.merge(override.Tokens)
	return result
}

func (config FetchConfiguration) merge(override FetchConfiguration) FetchConfiguration {
	result := config
	if override.Branch != "" {
		result.Branch = override.Branch
	}
	if override.Depth != nil {
		result.Depth = cloneInt(override.Depth)
	}
	if override.UseGitignore != nil {
		result.UseGitignore = cloneBool(override.UseGitignore)
	}
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, utils.DeduplicatePatterns(override.Exclude)...)
	}
	if len(override.Include) > 0 {
		result.Include = append([]string{}, utils.DeduplicatePatterns(override.Include)...)
	}
	return result
}

func (config MergeConfiguration) merge(override MergeConfiguration) MergeConfiguration {
	result := config
	if override.Workers != nil {
		result.Workers = cloneInt(override.Workers)
	}
	return result
}

func (config TokenConfiguration) merge(override TokenConfiguration) TokenConfiguration {
	result := config
	if override.Enabled != nil {
		result.Enabled = cloneBool(override.Enabled)
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	return result
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
