// Package cli provides the command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/amalgam/internal/config"
	"github.com/temirov/amalgam/internal/fetch"
	"github.com/temirov/amalgam/internal/selection"
	"github.com/temirov/amalgam/internal/services/clipboard"
	"github.com/temirov/amalgam/internal/tokenizer"
	"github.com/temirov/amalgam/internal/types"
	"github.com/temirov/amalgam/internal/ui"
	"github.com/temirov/amalgam/internal/utils"
)

const (
	outputFlagName       = "output"
	outputFlagShorthand  = "o"
	interactiveFlagName  = "interactive"
	interactiveShorthand = "i"
	verboseFlagName      = "verbose"
	verboseShorthand     = "v"
	formatFlagName       = "format"
	branchFlagName       = "branch"
	depthFlagName        = "depth"
	exclusionFlagName    = "exclude"
	exclusionShorthand   = "e"
	includeFlagName      = "include"
	noGitignoreFlagName  = "no-gitignore"
	workersFlagName      = "workers"
	tokensFlagName       = "tokens"
	modelFlagName        = "model"
	summaryFlagName      = "summary"
	treeFlagName         = "tree"
	copyFlagName         = "copy"
	configFlagName       = "config"
	versionFlagName      = "version"
	globalFlagName       = "global"
	forceFlagName        = "force"

	versionTemplate      = "amalgam version: %s\n"
	initCompletedFormat  = "configuration written to %s\n"
	rootUse              = "amalgam <repository>"
	rootShortDescription = "merge a repository into one reviewable text artifact"
	rootLongDescription  = `amalgam fetches a git repository, lets you choose which files to keep,
and writes the selected files into a single framed stream.
The repository may be a clone URL or a local directory.
Use --format to select raw, json, or xml output, -i to pick files interactively,
and --version to print the application version.`
	rootUsageExample = `  # Merge every tracked file of a remote repository into one file
  amalgam https://github.com/typst/typst.git -o typst.txt

  # Pick files interactively and write JSON to stdout
  amalgam -i --format json https://github.com/spf13/cobra

  # Merge a local checkout, skipping tests, and count tokens
  amalgam . -e '*_test.go' --tokens -o out/context.txt`
	initUse              = "init"
	initShortDescription = "write a default configuration file"
	initLongDescription  = `Write a commented default configuration.
Without --global the file is .amalgam.yaml in the working directory;
with --global it is ~/.amalgam/config.yaml.`

	outputFlagDescription      = "destination file; - writes to stdout"
	interactiveFlagDescription = "select files interactively before merging"
	verboseFlagDescription     = "log progress details"
	formatFlagDescription      = "output format: raw, json, or xml"
	branchFlagDescription      = "branch to clone (default: remote HEAD)"
	depthFlagDescription       = "clone depth"
	exclusionFlagDescription   = "exclude path glob (repeatable)"
	includeFlagDescription     = "only include paths matching glob (repeatable)"
	noGitignoreFlagDescription = "do not apply .gitignore rules"
	workersFlagDescription     = "concurrent file reads (0 uses one per CPU)"
	tokensFlagDescription      = "include token counts"
	modelFlagDescription       = "tokenizer model to use for token counting"
	summaryFlagDescription     = "append a summary of merged files"
	treeFlagDescription        = "prepend a tree diagram of the selected files"
	copyFlagDescription        = "copy the merged output to the clipboard"
	configFlagDescription      = "configuration file (default ./" + utils.LocalConfigFileName + ")"
	versionFlagDescription     = "display application version"
	globalFlagDescription      = "write the global configuration instead of the local one"
	forceFlagDescription       = "overwrite an existing configuration file"

	invalidFormatMessage         = "invalid format value '%s'"
	errorLoadConfigurationFormat = "load configuration: %w"
	errorLoggerFormat            = "initialize logger: %w"
)

// ErrMissingRepository is returned when no repository argument is given.
var ErrMissingRepository = errors.New("a repository URL or directory is required")

// SelectFunc runs an interactive selection over session.
type SelectFunc func(session *selection.Session, options ui.Options) (ui.Outcome, selection.Result, error)

// Dependencies holds the collaborators the command reaches outside the
// process through. Zero fields fall back to the real implementations.
type Dependencies struct {
	Stdout io.Writer
	Stderr io.Writer
	// Copier receives the merged output when --copy is set.
	Copier clipboard.Copier
	// Select drives the interactive selection.
	Select SelectFunc
	// Clone retrieves remote repositories.
	Clone fetch.CloneFunc
	// Logger replaces the logger built from --verbose.
	Logger *zap.Logger
	// WorkingDirectory is where the local configuration file is looked up.
	WorkingDirectory string
}

func (dependencies Dependencies) withDefaults() Dependencies {
	if dependencies.Stdout == nil {
		dependencies.Stdout = os.Stdout
	}
	if dependencies.Stderr == nil {
		dependencies.Stderr = os.Stderr
	}
	if dependencies.Copier == nil {
		dependencies.Copier = clipboard.NewService()
	}
	if dependencies.Select == nil {
		dependencies.Select = ui.Run
	}
	if dependencies.Clone == nil {
		dependencies.Clone = fetch.CloneIntoMemory
	}
	return dependencies
}

// isSupportedFormat reports whether the provided format is recognized.
func isSupportedFormat(format string) bool {
	switch format {
	case types.FormatRaw, types.FormatJSON, types.FormatXML:
		return true
	default:
		return false
	}
}

// Execute runs the amalgam application with the process arguments.
// Interrupt and termination signals cancel the run.
func Execute() error {
	signalContext, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(signalContext, os.Args[1:], Dependencies{})
}

// Run executes the command tree with arguments.
func Run(ctx context.Context, arguments []string, dependencies Dependencies) error {
	rootCommand := createRootCommand(dependencies.withDefaults())
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, arguments))
	return rootCommand.ExecuteContext(ctx)
}

// createRootCommand builds the root Cobra command.
func createRootCommand(dependencies Dependencies) *cobra.Command {
	var options runOptions
	var showVersion bool
	var configurationPath string

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Example:       rootUsageExample,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if showVersion {
				_, writeError := fmt.Fprintf(dependencies.Stdout, versionTemplate, utils.GetApplicationVersion())
				return writeError
			}
			if len(arguments) == 0 {
				return ErrMissingRepository
			}
			options.repository = arguments[0]

			configuration, configurationError := config.LoadApplicationConfiguration(config.LoadOptions{
				WorkingDirectory: dependencies.WorkingDirectory,
				ExplicitFilePath: configurationPath,
			})
			if configurationError != nil {
				return fmt.Errorf(errorLoadConfigurationFormat, configurationError)
			}
			options.applyConfiguration(command.Flags(), configuration)
			options.format = strings.ToLower(strings.TrimSpace(options.format))
			if !isSupportedFormat(options.format) {
				return fmt.Errorf(invalidFormatMessage, options.format)
			}

			logger := dependencies.Logger
			if logger == nil {
				createdLogger, loggerError := utils.NewApplicationLogger(options.verbose)
				if loggerError != nil {
					return fmt.Errorf(errorLoggerFormat, loggerError)
				}
				logger = createdLogger
				defer func() { _ = logger.Sync() }()
			}
			return runPipeline(command.Context(), options, dependencies, logger)
		},
	}

	flags := rootCommand.Flags()
	flags.StringVarP(&options.outputPath, outputFlagName, outputFlagShorthand, utils.StandardStreamPath, outputFlagDescription)
	registerBooleanFlag(flags, &options.interactive, interactiveFlagName, interactiveShorthand, false, interactiveFlagDescription)
	registerBooleanFlag(flags, &options.verbose, verboseFlagName, verboseShorthand, false, verboseFlagDescription)
	flags.StringVar(&options.format, formatFlagName, types.FormatRaw, formatFlagDescription)
	flags.StringVar(&options.branch, branchFlagName, "", branchFlagDescription)
	flags.IntVar(&options.depth, depthFlagName, fetch.DefaultDepth, depthFlagDescription)
	flags.StringArrayVarP(&options.excludePatterns, exclusionFlagName, exclusionShorthand, nil, exclusionFlagDescription)
	flags.StringArrayVar(&options.includePatterns, includeFlagName, nil, includeFlagDescription)
	registerBooleanFlag(flags, &options.disableGitignore, noGitignoreFlagName, "", false, noGitignoreFlagDescription)
	flags.IntVar(&options.workers, workersFlagName, 0, workersFlagDescription)
	registerBooleanFlag(flags, &options.tokensEnabled, tokensFlagName, "", false, tokensFlagDescription)
	flags.StringVar(&options.model, modelFlagName, tokenizer.DefaultModel, modelFlagDescription)
	registerBooleanFlag(flags, &options.summary, summaryFlagName, "", false, summaryFlagDescription)
	registerBooleanFlag(flags, &options.tree, treeFlagName, "", false, treeFlagDescription)
	registerBooleanFlag(flags, &options.copy, copyFlagName, "", false, copyFlagDescription)
	flags.StringVar(&configurationPath, configFlagName, "", configFlagDescription)
	flags.BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)

	rootCommand.SetOut(dependencies.Stdout)
	rootCommand.SetErr(dependencies.Stderr)
	rootCommand.AddCommand(createInitCommand(dependencies))
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// createInitCommand returns the init subcommand.
func createInitCommand(dependencies Dependencies) *cobra.Command {
	var global bool
	var force bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			destinationPath, initError := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            force,
				WorkingDirectory: dependencies.WorkingDirectory,
			})
			if initError != nil {
				return initError
			}
			_, writeError := fmt.Fprintf(dependencies.Stdout, initCompletedFormat, destinationPath)
			return writeError
		},
	}
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, "", false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, "", false, forceFlagDescription)
	return initCommand
}
