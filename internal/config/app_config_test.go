package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temirov/amalgam/internal/utils"
)

func boolPointer(value bool) *bool {
	return &value
}

func intPointer(value int) *int {
	return &value
}

func prepareDirectories(t *testing.T, globalContent string, localContent string) string {
	t.Helper()
	homeDir := t.TempDir()
	workingDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("USERPROFILE", homeDir)
	if globalContent != "" {
		configDir := filepath.Join(homeDir, utils.GlobalConfigDirectoryName)
		require.NoError(t, os.MkdirAll(configDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(configDir, utils.ConfigFileName), []byte(globalContent), 0o600))
	}
	if localContent != "" {
		require.NoError(t, os.WriteFile(filepath.Join(workingDir, utils.LocalConfigFileName), []byte(localContent), 0o600))
	}
	return workingDir
}

func TestLoadApplicationConfigurationPrecedence(t *testing.T) {
	testCases := []struct {
		name          string
		globalContent string
		localContent  string
		expectFormat  string
		expectSummary *bool
		expectDepth   *int
		expectModel   string
		expectExclude []string
	}{
		{
			name: "no files",
		},
		{
			name:          "global only",
			globalContent: "format: json\nsummary: false\nfetch:\n  depth: 5\n",
			expectFormat:  "json",
			expectSummary: boolPointer(false),
			expectDepth:   intPointer(5),
		},
		{
			name:          "local overrides global",
			globalContent: "format: json\ntokens:\n  model: gpt-4\nfetch:\n  exclude: [\"*.log\"]\n",
			localContent:  "format: xml\nfetch:\n  exclude:\n    - vendor/\n    - vendor/\n    - \" \"\n",
			expectFormat:  "xml",
			expectModel:   "gpt-4",
			expectExclude: []string{"vendor/"},
		},
		{
			name:          "local keeps unset global values",
			globalContent: "summary: true\nfetch:\n  depth: 2\n",
			localContent:  "tokens:\n  enabled: true\n",
			expectSummary: boolPointer(true),
			expectDepth:   intPointer(2),
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			workingDir := prepareDirectories(t, testCase.globalContent, testCase.localContent)

			loaded, err := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDir, IgnoreEnvironment: true})
			require.NoError(t, err)

			assert.Equal(t, testCase.expectFormat, loaded.Format)
			assert.Equal(t, testCase.expectSummary, loaded.Summary)
			assert.Equal(t, testCase.expectDepth, loaded.Fetch.Depth)
			assert.Equal(t, testCase.expectModel, loaded.Tokens.Model)
			if testCase.expectExclude == nil {
				assert.Empty(t, loaded.Fetch.Exclude)
			} else {
				assert.Equal(t, testCase.expectExclude, loaded.Fetch.Exclude)
			}
		})
	}
}

func TestLoadApplicationConfigurationExplicitPath(t *testing.T) {
	workingDir := prepareDirectories(t, "", "format: json\n")
	explicitName := "custom.yaml"
	require.NoError(t, os.WriteFile(filepath.Join(workingDir, explicitName), []byte("format: xml\nmerge:\n  workers: 3\n"), 0o600))

	loaded, err := LoadApplicationConfiguration(LoadOptions{
		WorkingDirectory:  workingDir,
		ExplicitFilePath:  explicitName,
		IgnoreEnvironment: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "xml", loaded.Format)
	assert.Equal(t, intPointer(3), loaded.Merge.Workers)
}

func TestLoadApplicationConfigurationMissingExplicitPath(t *testing.T) {
	workingDir := prepareDirectories(t, "", "")

	_, err := LoadApplicationConfiguration(LoadOptions{
		WorkingDirectory:  workingDir,
		ExplicitFilePath:  "absent.yaml",
		IgnoreEnvironment: true,
	})
	require.Error(t, err)
}

func TestLoadApplicationConfigurationRejectsMalformedYAML(t *testing.T) {
	workingDir := prepareDirectories(t, "", "format: [unterminated\n")

	_, err := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDir, IgnoreEnvironment: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), utils.LocalConfigFileName)
}

func TestLoadApplicationConfigurationEnvironmentOverridesFiles(t *testing.T) {
	workingDir := prepareDirectories(t, "", "format: json\nfetch:\n  depth: 1\n")
	t.Setenv("AMALGAM_FORMAT", "xml")
	t.Setenv("AMALGAM_FETCH_DEPTH", "7")
	t.Setenv("AMALGAM_TOKENS_ENABLED", "true")

	loaded, err := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDir})
	require.NoError(t, err)
	assert.Equal(t, "xml", loaded.Format)
	assert.Equal(t, intPointer(7), loaded.Fetch.Depth)
	assert.Equal(t, boolPointer(true), loaded.Tokens.Enabled)
}

func TestOverlayClonesPointers(t *testing.T) {
	override := ApplicationConfiguration{Copy: boolPointer(true), Merge: MergeConfiguration{Workers: intPointer(4)}}
	merged := ApplicationConfiguration{}.Overlay(override)

	*override.Copy = false
	*override.Merge.Workers = 1

	assert.True(t, *merged.Copy)
	assert.Equal(t, 4, *merged.Merge.Workers)
}
