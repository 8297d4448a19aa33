package fetch

import (
	"strings"
)

const (
	gitSuffix      = ".git"
	trailingSlash  = "/"
	defaultRepoTag = "repository"
)

// ResolveURL normalizes a repository URL by dropping one trailing slash and a
// trailing ".git" suffix, so "https://host/owner/name.git/" becomes
// "https://host/owner/name".
func ResolveURL(location string) string {
	resolved := strings.TrimSpace(location)
	resolved = strings.TrimSuffix(resolved, trailingSlash)
	resolved = strings.TrimSuffix(resolved, gitSuffix)
	return resolved
}

// RepositoryName returns the last path segment of a resolved location.
func RepositoryName(resolvedLocation string) string {
	trimmed := strings.TrimRight(strings.ReplaceAll(resolvedLocation, "\\", trailingSlash), trailingSlash)
	if separatorIndex := strings.LastIndex(trimmed, trailingSlash); separatorIndex >= 0 {
		trimmed = trimmed[separatorIndex+1:]
	}
	if colonIndex := strings.LastIndex(trimmed, ":"); colonIndex >= 0 {
		trimmed = trimmed[colonIndex+1:]
	}
	if trimmed == "" {
		return defaultRepoTag
	}
	return trimmed
}
