package cli

import (
	"runtime"

	"github.com/spf13/pflag"

	"github.com/temirov/amalgam/internal/config"
	"github.com/temirov/amalgam/internal/utils"
)

// runOptions is the fully resolved configuration of one merge run.
type runOptions struct {
	repository       string
	outputPath       string
	interactive      bool
	verbose          bool
	format           string
	branch           string
	depth            int
	excludePatterns  []string
	includePatterns  []string
	disableGitignore bool
	workers          int
	tokensEnabled    bool
	model            string
	summary          bool
	tree             bool
	copy             bool
}

// applyConfiguration fills every option whose flag was not set on the command
// line from configuration. Pattern lists accumulate: configured patterns
// come first, followed by the ones given as flags.
func (options *runOptions) applyConfiguration(flags *pflag.FlagSet, configuration config.ApplicationConfiguration) {
	unset := func(flagName string) bool {
		return !flags.Changed(flagName)
	}

	if unset(formatFlagName) && configuration.Format != "" {
		options.format = configuration.Format
	}
	if unset(interactiveFlagName) && configuration.Interactive != nil {
		options.interactive = *configuration.Interactive
	}
	if unset(summaryFlagName) && configuration.Summary != nil {
		options.summary = *configuration.Summary
	}
	if unset(treeFlagName) && configuration.Tree != nil {
		options.tree = *configuration.Tree
	}
	if unset(copyFlagName) && configuration.Copy != nil {
		options.copy = *configuration.Copy
	}
	if unset(branchFlagName) && configuration.Fetch.Branch != "" {
		options.branch = configuration.Fetch.Branch
	}
	if unset(depthFlagName) && configuration.Fetch.Depth != nil {
		options.depth = *configuration.Fetch.Depth
	}
	if unset(noGitignoreFlagName) && configuration.Fetch.UseGitignore != nil {
		options.disableGitignore = !*configuration.Fetch.UseGitignore
	}
	if unset(workersFlagName) && configuration.Merge.Workers != nil {
		options.workers = *configuration.Merge.Workers
	}
	if unset(tokensFlagName) && configuration.Tokens.Enabled != nil {
		options.tokensEnabled = *configuration.Tokens.Enabled
	}
	if unset(modelFlagName) && configuration.Tokens.Model != "" {
		options.model = configuration.Tokens.Model
	}

	options.excludePatterns = utils.DeduplicatePatterns(append(append([]string{}, configuration.Fetch.Exclude...), options.excludePatterns...))
	options.includePatterns = utils.DeduplicatePatterns(append(append([]string{}, configuration.Fetch.Include...), options.includePatterns...))
}

// effectiveWorkers maps non-positive worker counts to one worker per CPU.
func (options runOptions) effectiveWorkers() int {
	if options.workers > 0 {
		return options.workers
	}
	return runtime.NumCPU()
}
