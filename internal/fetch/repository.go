package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"go.uber.org/zap"

	"github.com/temirov/amalgam/internal/types"
	"github.com/temirov/amalgam/internal/utils"
)

const (
	walkRoot              = ""
	pathSeparator         = "/"
	errorReadIgnoreFormat = "read gitignore patterns: %w"
	errorWalkFormat       = "walk repository %s: %w"

	logMessageListed    = "Listed repository entries"
	logFieldFiles       = "files"
	logFieldDirectories = "empty_directories"
	logFieldIgnored     = "ignored"
)

// Repository is a retrieved source tree backed by a billy filesystem.
type Repository struct {
	Location     string
	Name         string
	filesystem   billy.Filesystem
	useGitignore bool
	filter       *utils.PathFilter
	logger       *zap.Logger
}

// NewRepository wraps filesystem. Location and name are used for logging and labels.
func NewRepository(location string, filesystem billy.Filesystem, options Options) *Repository {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{
		Location:     location,
		Name:         RepositoryName(location),
		filesystem:   filesystem,
		useGitignore: options.UseGitignore,
		filter:       options.Filter,
		logger:       logger,
	}
}

// Filesystem returns the underlying filesystem.
func (repository *Repository) Filesystem() billy.Filesystem {
	return repository.filesystem
}

// Entries lists the files of the repository, plus directories that have no
// children at all, sorted by path. The .git directory is never listed;
// .gitignore rules, exclude globs, and include globs are applied in that order.
func (repository *Repository) Entries() ([]types.Entry, error) {
	var ignoreMatcher gitignore.Matcher
	if repository.useGitignore {
		patterns, readError := gitignore.ReadPatterns(repository.filesystem, nil)
		if readError != nil {
			return nil, fmt.Errorf(errorReadIgnoreFormat, readError)
		}
		ignoreMatcher = gitignore.NewMatcher(patterns)
	}

	var entries []types.Entry
	directoryHasChildren := map[string]bool{}
	var visitedDirectories []string
	ignoredCount := 0

	walkError := util.Walk(repository.filesystem, walkRoot, func(walkPath string, info os.FileInfo, walkError error) error {
		if walkError != nil {
			return walkError
		}
		relativePath := strings.TrimPrefix(filepath.ToSlash(walkPath), pathSeparator)
		if relativePath == "" || relativePath == "." {
			return nil
		}
		isDirectory := info.IsDir()
		parentPath := parentOf(relativePath)
		directoryHasChildren[parentPath] = true

		if isDirectory && info.Name() == utils.GitDirectoryName {
			return filepath.SkipDir
		}
		if !isDirectory && !info.Mode().IsRegular() {
			return nil
		}
		if ignoreMatcher != nil && ignoreMatcher.Match(strings.Split(relativePath, pathSeparator), isDirectory) {
			ignoredCount++
			return skipResult(isDirectory)
		}
		if repository.filter.Excludes(relativePath, isDirectory) {
			ignoredCount++
			return skipResult(isDirectory)
		}
		if isDirectory {
			visitedDirectories = append(visitedDirectories, relativePath)
			return nil
		}
		if !repository.filter.Includes(relativePath) {
			return nil
		}
		entries = append(entries, types.Entry{Path: relativePath, Kind: types.EntryKindFile, Size: info.Size()})
		return nil
	})
	if walkError != nil {
		return nil, fmt.Errorf(errorWalkFormat, repository.Location, walkError)
	}

	emptyDirectories := 0
	if !repository.filter.HasIncludes() {
		for _, directoryPath := range visitedDirectories {
			if !directoryHasChildren[directoryPath] {
				entries = append(entries, types.Entry{Path: directoryPath, Kind: types.EntryKindDirectory})
				emptyDirectories++
			}
		}
	}

	sort.Slice(entries, func(left, right int) bool {
		return entries[left].Path < entries[right].Path
	})
	repository.logger.Debug(logMessageListed,
		zap.Int(logFieldFiles, len(entries)-emptyDirectories),
		zap.Int(logFieldDirectories, emptyDirectories),
		zap.Int(logFieldIgnored, ignoredCount),
	)
	return entries, nil
}

// ReadBytes returns the content of a slash-separated repository path.
func (repository *Repository) ReadBytes(path string) ([]byte, error) {
	return util.ReadFile(repository.filesystem, path)
}

func parentOf(relativePath string) string {
	if separatorIndex := strings.LastIndex(relativePath, pathSeparator); separatorIndex >= 0 {
		return relativePath[:separatorIndex]
	}
	return ""
}

func skipResult(isDirectory bool) error {
	if isDirectory {
		return filepath.SkipDir
	}
	return nil
}
