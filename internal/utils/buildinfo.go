package utils

import (
	"errors"
	"runtime/debug"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

const (
	unknownVersion      = "unknown"
	develVersion        = "(devel)"
	developmentPrefix   = "dev-"
	shortCommitHashSize = 7
)

var errTagFound = errors.New("tag found")

// GetApplicationVersion attempts to determine the application version using various methods.
// It checks Go build info first, then falls back to the tag or commit of the enclosing
// git checkout when one exists.
func GetApplicationVersion() string {
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if buildInfoAvailable && buildInfo.Main.Version != "" && buildInfo.Main.Version != develVersion {
		return buildInfo.Main.Version
	}
	return describeWorkingRepository(".")
}

func describeWorkingRepository(startDirectory string) string {
	repository, openError := git.PlainOpenWithOptions(startDirectory, &git.PlainOpenOptions{DetectDotGit: true})
	if openError != nil {
		return unknownVersion
	}
	headReference, headError := repository.Head()
	if headError != nil {
		return unknownVersion
	}
	if tagName := exactTagName(repository, headReference.Hash()); tagName != "" {
		return tagName
	}
	return developmentPrefix + headReference.Hash().String()[:shortCommitHashSize]
}

// exactTagName returns the name of a lightweight or annotated tag pointing at commitHash.
func exactTagName(repository *git.Repository, commitHash plumbing.Hash) string {
	tagReferences, tagsError := repository.Tags()
	if tagsError != nil {
		return ""
	}
	var matchedTag string
	iterationError := tagReferences.ForEach(func(reference *plumbing.Reference) error {
		targetHash := reference.Hash()
		if tagObject, tagObjectError := repository.TagObject(targetHash); tagObjectError == nil {
			targetHash = tagObject.Target
		}
		if targetHash == commitHash {
			matchedTag = reference.Name().Short()
			return errTagFound
		}
		return nil
	})
	if iterationError != nil && !errors.Is(iterationError, errTagFound) && !errors.Is(iterationError, storer.ErrStop) {
		return ""
	}
	return matchedTag
}
