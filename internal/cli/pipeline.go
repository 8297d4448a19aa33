package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/temirov/amalgam/internal/fetch"
	"github.com/temirov/amalgam/internal/merge"
	"github.com/temirov/amalgam/internal/output"
	"github.com/temirov/amalgam/internal/selection"
	"github.com/temirov/amalgam/internal/tokenizer"
	"github.com/temirov/amalgam/internal/tree"
	"github.com/temirov/amalgam/internal/ui"
	"github.com/temirov/amalgam/internal/utils"
)

const (
	errorFilterFormat       = "compile path patterns: %w"
	errorFetchFormat        = "fetch %s: %w"
	errorListFormat         = "list %s: %w"
	errorBuildTreeFormat    = "build tree for %s: %w"
	errorSelectionFormat    = "interactive selection: %w"
	errorTokenizerFormat    = "initialize tokenizer: %w"
	errorCreateOutputFormat = "create output %s: %w"
	errorMergeFormat        = "merge into %s: %w"
	errorCloseOutputFormat  = "close output %s: %w"
	standardOutputLabel     = "stdout"
	outputDirectoryMode     = 0o755

	logMessageFetching      = "Fetching repository"
	logMessageFetched       = "Fetched repository"
	logMessageBuildingTree  = "Building tree"
	logMessageSelecting     = "Waiting for interactive selection"
	logMessageCancelled     = "Selection cancelled; nothing written"
	logMessageEmptySelected = "No files selected; nothing written"
	logMessageMerging       = "Merging"
	logMessageCopied        = "Copied output to clipboard"
	logMessageCopyFailed    = "Failed to copy output to clipboard"
	logMessageComplete      = "Complete"
	logFieldRepository      = "repository"
	logFieldFiles           = "files"
	logFieldDirectories     = "directories"
	logFieldSize            = "size"
	logFieldSelected        = "selected"
	logFieldFormat          = "format"
	logFieldWorkers         = "workers"
	logFieldOutput          = "output"
	logFieldSummary         = "summary"
	logFieldError           = "error"
)

// runPipeline fetches the repository, selects files, and merges them into the
// configured destination.
func runPipeline(ctx context.Context, options runOptions, dependencies Dependencies, logger *zap.Logger) error {
	filter, filterError := utils.NewPathFilter(options.includePatterns, options.excludePatterns)
	if filterError != nil {
		return fmt.Errorf(errorFilterFormat, filterError)
	}

	fetchOptions := fetch.Options{
		Branch:       options.branch,
		Depth:        options.depth,
		UseGitignore: !options.disableGitignore,
		Filter:       filter,
		Logger:       logger,
	}
	if options.verbose {
		fetchOptions.Progress = dependencies.Stderr
	}
	fetcher := fetch.NewFetcherWithCloner(fetchOptions, dependencies.Clone)

	logger.Info(logMessageFetching, zap.String(logFieldRepository, options.repository))
	repository, fetchError := fetcher.Fetch(ctx, options.repository)
	if fetchError != nil {
		return fmt.Errorf(errorFetchFormat, options.repository, fetchError)
	}
	entries, listError := repository.Entries()
	if listError != nil {
		return fmt.Errorf(errorListFormat, repository.Location, listError)
	}
	var totalBytes int64
	for _, entry := range entries {
		totalBytes += entry.Size
	}

	logger.Info(logMessageBuildingTree, zap.String(logFieldRepository, repository.Name))
	repositoryTree, buildError := tree.Build(entries)
	if buildError != nil {
		return fmt.Errorf(errorBuildTreeFormat, repository.Location, buildError)
	}
	fileCount, directoryCount := repositoryTree.Counts()
	logger.Info(logMessageFetched,
		zap.String(logFieldRepository, repository.Location),
		zap.Int(logFieldFiles, fileCount),
		zap.Int(logFieldDirectories, directoryCount),
		zap.String(logFieldSize, utils.FormatFileSize(totalBytes)),
	)

	var selected selection.Result
	if options.interactive {
		logger.Debug(logMessageSelecting)
		outcome, result, selectError := dependencies.Select(selection.NewSession(repositoryTree), ui.Options{
			Title:  repository.Name,
			Output: dependencies.Stderr,
		})
		if selectError != nil {
			return fmt.Errorf(errorSelectionFormat, selectError)
		}
		if outcome != ui.OutcomeConfirmed {
			logger.Info(logMessageCancelled)
			return nil
		}
		selected = result
	} else {
		selected = selection.AllFiles(repositoryTree)
	}
	if len(selected) == 0 {
		logger.Warn(logMessageEmptySelected)
		return nil
	}

	return writeMerged(ctx, options, dependencies, logger, repository, repositoryTree, selected)
}

func writeMerged(
	ctx context.Context,
	options runOptions,
	dependencies Dependencies,
	logger *zap.Logger,
	repository *fetch.Repository,
	repositoryTree *tree.Tree,
	selected selection.Result,
) (err error) {
	var tokenCounter tokenizer.Counter
	var tokenModel string
	if options.tokensEnabled {
		createdCounter, resolvedModel, counterError := tokenizer.NewCounter(tokenizer.Config{Model: options.model})
		if counterError != nil {
			return fmt.Errorf(errorTokenizerFormat, counterError)
		}
		tokenCounter = createdCounter
		tokenModel = resolvedModel
	}

	destination, destinationLabel, closeDestination, openError := openDestination(options.outputPath, dependencies.Stdout)
	if openError != nil {
		return openError
	}
	defer func() {
		if closeError := closeDestination(); closeError != nil && err == nil {
			err = fmt.Errorf(errorCloseOutputFormat, destinationLabel, closeError)
		}
	}()

	var captured bytes.Buffer
	writer := destination
	if options.copy {
		writer = io.MultiWriter(destination, &captured)
	}

	rendererOptions := output.Options{IncludeSummary: options.summary}
	if options.tree {
		rendererOptions.Tree = repositoryTree
		rendererOptions.TreeLabel = repository.Name
	}
	renderer, rendererError := output.NewRenderer(options.format, writer, rendererOptions)
	if rendererError != nil {
		return rendererError
	}

	workers := options.effectiveWorkers()
	logger.Info(logMessageMerging,
		zap.Int(logFieldSelected, len(selected)),
		zap.String(logFieldFormat, options.format),
		zap.Int(logFieldWorkers, workers),
	)
	engine := merge.NewEngine(merge.Options{
		Workers: workers,
		Counter: tokenCounter,
		Model:   tokenModel,
		Logger:  logger,
	})
	summary, mergeError := engine.Merge(ctx, selected, repository, renderer)
	if mergeError != nil {
		return fmt.Errorf(errorMergeFormat, destinationLabel, mergeError)
	}

	if options.copy {
		copyToClipboard(dependencies, logger, captured.String())
	}
	logger.Info(logMessageComplete,
		zap.String(logFieldOutput, destinationLabel),
		zap.String(logFieldSummary, output.FormatSummaryLine(summary)),
	)
	return nil
}

// openDestination returns a buffered writer for path, creating missing parent
// directories. The standard stream path selects stdout, which is never closed.
func openDestination(path string, stdout io.Writer) (io.Writer, string, func() error, error) {
	if path == "" || path == utils.StandardStreamPath {
		return stdout, standardOutputLabel, func() error { return nil }, nil
	}
	if mkdirError := os.MkdirAll(filepath.Dir(path), outputDirectoryMode); mkdirError != nil {
		return nil, path, nil, fmt.Errorf(errorCreateOutputFormat, path, mkdirError)
	}
	file, createError := os.Create(path)
	if createError != nil {
		return nil, path, nil, fmt.Errorf(errorCreateOutputFormat, path, createError)
	}
	buffered := bufio.NewWriter(file)
	closeFile := func() error {
		flushError := buffered.Flush()
		closeError := file.Close()
		if flushError != nil {
			return flushError
		}
		return closeError
	}
	return buffered, path, closeFile, nil
}

// copyToClipboard only logs failures.
func copyToClipboard(dependencies Dependencies, logger *zap.Logger, text string) {
	if copyError := dependencies.Copier.Copy(text); copyError != nil {
		logger.Warn(logMessageCopyFailed, zap.String(logFieldError, copyError.Error()))
		return
	}
	logger.Debug(logMessageCopied)
}

var _ merge.Reader = (*fetch.Repository)(nil)
