// Package fetch retrieves repositories into memory and lists their entries.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"go.uber.org/zap"

	"github.com/temirov/amalgam/internal/utils"
)

const (
	// DefaultDepth is the clone depth used when none is configured.
	DefaultDepth = 1

	errorCloneFormat        = "clone %s: %w"
	errorAbsolutePathFormat = "abs failed for '%s': %w"

	logMessageResolved = "Resolving repository URL"
	logMessageCloning  = "Cloning repository"
	logMessageCloned   = "Cloned repository"
	logMessageLocal    = "Opening local directory"
	logFieldLocation   = "location"
	logFieldURL        = "url"
	logFieldBranch     = "branch"
	logFieldDepth      = "depth"
	logFieldPath       = "path"
)

// ErrEmptyLocation is returned when Fetch receives no repository location.
var ErrEmptyLocation = errors.New("repository location is empty")

// Options configures retrieval and listing.
type Options struct {
	// Branch selects a branch to clone; the remote HEAD is used when empty.
	Branch string
	// Depth limits clone history; values below one use DefaultDepth.
	Depth int
	// UseGitignore applies .gitignore rules found in the repository.
	UseGitignore bool
	// Filter applies include and exclude globs.
	Filter *utils.PathFilter
	// Progress receives git transfer progress when set.
	Progress io.Writer
	Logger   *zap.Logger
}

// CloneFunc populates a filesystem with the worktree of url.
type CloneFunc func(ctx context.Context, url string, options Options) (billy.Filesystem, error)

// Fetcher turns a repository location into a Repository.
type Fetcher struct {
	options Options
	clone   CloneFunc
	logger  *zap.Logger
}

// NewFetcher constructs a Fetcher that clones remote repositories with go-git.
func NewFetcher(options Options) *Fetcher {
	return NewFetcherWithCloner(options, CloneIntoMemory)
}

// NewFetcherWithCloner constructs a Fetcher using clone for remote locations.
func NewFetcherWithCloner(options Options, clone CloneFunc) *Fetcher {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	options.Logger = logger
	if options.Depth < 1 {
		options.Depth = DefaultDepth
	}
	return &Fetcher{options: options, clone: clone, logger: logger}
}

// Fetch opens an existing local directory in place, or clones any other
// location after normalizing it with ResolveURL.
func (fetcher *Fetcher) Fetch(ctx context.Context, location string) (*Repository, error) {
	if location == "" {
		return nil, ErrEmptyLocation
	}
	if information, statError := os.Stat(location); statError == nil && information.IsDir() {
		absolutePath, absolutePathError := filepath.Abs(location)
		if absolutePathError != nil {
			return nil, fmt.Errorf(errorAbsolutePathFormat, location, absolutePathError)
		}
		fetcher.logger.Info(logMessageLocal, zap.String(logFieldPath, absolutePath))
		return NewRepository(absolutePath, osfs.New(absolutePath), fetcher.options), nil
	}

	resolvedURL := ResolveURL(location)
	fetcher.logger.Debug(logMessageResolved, zap.String(logFieldLocation, location), zap.String(logFieldURL, resolvedURL))
	fetcher.logger.Info(logMessageCloning,
		zap.String(logFieldURL, resolvedURL),
		zap.String(logFieldBranch, fetcher.options.Branch),
		zap.Int(logFieldDepth, fetcher.options.Depth),
	)
	filesystem, cloneError := fetcher.clone(ctx, resolvedURL, fetcher.options)
	if cloneError != nil {
		return nil, fmt.Errorf(errorCloneFormat, resolvedURL, cloneError)
	}
	fetcher.logger.Debug(logMessageCloned, zap.String(logFieldURL, resolvedURL))
	return NewRepository(resolvedURL, filesystem, fetcher.options), nil
}

// CloneIntoMemory performs a shallow single-branch clone into an in-memory
// worktree backed by in-memory object storage.
func CloneIntoMemory(ctx context.Context, url string, options Options) (billy.Filesystem, error) {
	worktree := memfs.New()
	cloneOptions := &git.CloneOptions{
		URL:          url,
		Depth:        options.Depth,
		SingleBranch: true,
		Tags:         git.NoTags,
		Progress:     options.Progress,
	}
	if options.Branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(options.Branch)
	}
	if _, cloneError := git.CloneContext(ctx, memory.NewStorage(), worktree, cloneOptions); cloneError != nil {
		return nil, cloneError
	}
	return worktree, nil
}
