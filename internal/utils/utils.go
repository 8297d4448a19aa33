// Package utils contains general helper functions used across the amalgam tool.
package utils

import (
	"fmt"
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// Repository file constants used across the project.
const (
	// GitIgnoreFileName is the name of the Git ignore file.
	GitIgnoreFileName = ".gitignore"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
)

const (
	pathSegmentSeparator      = "/"
	globSeparator             = '/'
	errorCompilePatternFormat = "compile pattern %q: %w"
)

// DeduplicatePatterns removes duplicate and blank patterns from a slice while preserving order.
// The first occurrence of each unique pattern is kept.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{})
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		trimmedPattern := strings.TrimSpace(pattern)
		if trimmedPattern == "" {
			continue
		}
		if _, exists := encounteredPatterns[trimmedPattern]; !exists {
			encounteredPatterns[trimmedPattern] = struct{}{}
			result = append(result, trimmedPattern)
		}
	}
	return result
}

type compiledPattern struct {
	source        string
	matcher       glob.Glob
	directoryOnly bool
	anchored      bool
}

// PathFilter decides which repository paths survive include and exclude globs.
// Patterns without a slash match the last path segment; patterns with a slash
// match the whole relative path, where "*" stays within one segment and "**"
// spans segments. A trailing slash restricts a pattern to directories.
type PathFilter struct {
	includePatterns []compiledPattern
	excludePatterns []compiledPattern
}

// NewPathFilter compiles the include and exclude globs.
func NewPathFilter(includePatterns []string, excludePatterns []string) (*PathFilter, error) {
	compiledIncludes, includeError := compilePatterns(includePatterns)
	if includeError != nil {
		return nil, includeError
	}
	compiledExcludes, excludeError := compilePatterns(excludePatterns)
	if excludeError != nil {
		return nil, excludeError
	}
	return &PathFilter{includePatterns: compiledIncludes, excludePatterns: compiledExcludes}, nil
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	var compiled []compiledPattern
	for _, pattern := range DeduplicatePatterns(patterns) {
		normalizedPattern := strings.ReplaceAll(pattern, "\\", pathSegmentSeparator)
		normalizedPattern = strings.TrimPrefix(normalizedPattern, "./")
		directoryOnly := strings.HasSuffix(normalizedPattern, pathSegmentSeparator)
		normalizedPattern = strings.Trim(normalizedPattern, pathSegmentSeparator)
		if normalizedPattern == "" {
			continue
		}
		matcher, compileError := glob.Compile(normalizedPattern, globSeparator)
		if compileError != nil {
			return nil, fmt.Errorf(errorCompilePatternFormat, pattern, compileError)
		}
		compiled = append(compiled, compiledPattern{
			source:        pattern,
			matcher:       matcher,
			directoryOnly: directoryOnly,
			anchored:      strings.Contains(normalizedPattern, pathSegmentSeparator),
		})
	}
	return compiled, nil
}

func (pattern compiledPattern) matches(relativePath string, isDirectory bool) bool {
	if pattern.directoryOnly && !isDirectory {
		return false
	}
	if pattern.anchored {
		return pattern.matcher.Match(relativePath)
	}
	return pattern.matcher.Match(path.Base(relativePath))
}

// Excludes reports whether relativePath, or any directory above it, matches an exclude pattern.
func (filter *PathFilter) Excludes(relativePath string, isDirectory bool) bool {
	if filter == nil || len(filter.excludePatterns) == 0 {
		return false
	}
	segments := strings.Split(relativePath, pathSegmentSeparator)
	for segmentIndex := range segments {
		candidatePath := strings.Join(segments[:segmentIndex+1], pathSegmentSeparator)
		candidateIsDirectory := isDirectory || segmentIndex < len(segments)-1
		for _, pattern := range filter.excludePatterns {
			if pattern.matches(candidatePath, candidateIsDirectory) {
				return true
			}
		}
	}
	return false
}

// Includes reports whether a file path matches an include pattern.
// Without include patterns every path is included.
func (filter *PathFilter) Includes(relativePath string) bool {
	if filter == nil || len(filter.includePatterns) == 0 {
		return true
	}
	for _, pattern := range filter.includePatterns {
		if pattern.matches(relativePath, false) {
			return true
		}
	}
	return false
}

// HasIncludes reports whether include patterns were supplied.
func (filter *PathFilter) HasIncludes() bool {
	return filter != nil && len(filter.includePatterns) > 0
}
