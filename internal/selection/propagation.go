package selection

import (
	"github.com/temirov/amalgam/internal/tree"
)

// Derive computes a directory state from the states of its children:
// Included when every child is Included, Excluded when every child is
// Excluded, PartiallyIncluded otherwise. No children derive to Included.
func Derive(childStates []tree.State) tree.State {
	if len(childStates) == 0 {
		return tree.Included
	}
	allIncluded := true
	allExcluded := true
	for _, childState := range childStates {
		if childState != tree.Included {
			allIncluded = false
		}
		if childState != tree.Excluded {
			allExcluded = false
		}
	}
	switch {
	case allIncluded:
		return tree.Included
	case allExcluded:
		return tree.Excluded
	default:
		return tree.PartiallyIncluded
	}
}

// holdsFiles reports whether id takes part in propagation. Directories
// without files keep whatever state they were given and never affect their parent.
func holdsFiles(repositoryTree *tree.Tree, id tree.NodeID) bool {
	return repositoryTree.FileCount(id) > 0
}

func deriveDirectory(repositoryTree *tree.Tree, directoryID tree.NodeID) tree.State {
	children := repositoryTree.Children(directoryID)
	childStates := make([]tree.State, 0, len(children))
	for _, childID := range children {
		if holdsFiles(repositoryTree, childID) {
			childStates = append(childStates, repositoryTree.State(childID))
		}
	}
	return Derive(childStates)
}

// Recompute re-derives every ancestor of id bottom-up, from its parent to the root.
func Recompute(repositoryTree *tree.Tree, id tree.NodeID) {
	for ancestorID := repositoryTree.Parent(id); ancestorID != tree.NoParent; ancestorID = repositoryTree.Parent(ancestorID) {
		if holdsFiles(repositoryTree, ancestorID) {
			repositoryTree.SetState(ancestorID, deriveDirectory(repositoryTree, ancestorID))
		}
	}
}

// RecomputeAll re-derives every directory holding files in post-order.
func RecomputeAll(repositoryTree *tree.Tree) {
	recomputeSubtree(repositoryTree, repositoryTree.Root())
}

func recomputeSubtree(repositoryTree *tree.Tree, id tree.NodeID) {
	children := repositoryTree.Children(id)
	if len(children) == 0 || !holdsFiles(repositoryTree, id) {
		return
	}
	for _, childID := range children {
		recomputeSubtree(repositoryTree, childID)
	}
	repositoryTree.SetState(id, deriveDirectory(repositoryTree, id))
}

// SetSubtree assigns state to id and every descendant, then re-derives the ancestors of id.
func SetSubtree(repositoryTree *tree.Tree, id tree.NodeID, state tree.State) {
	repositoryTree.SetState(id, state)
	for _, descendantID := range repositoryTree.Descendants(id) {
		repositoryTree.SetState(descendantID, state)
	}
	Recompute(repositoryTree, id)
}

// Consistent reports whether every directory holding files has the state derived from its children.
func Consistent(repositoryTree *tree.Tree) bool {
	consistent := true
	repositoryTree.Walk(func(id tree.NodeID, depth int) bool {
		if repositoryTree.Node(id).IsDirectory() && holdsFiles(repositoryTree, id) && repositoryTree.State(id) != deriveDirectory(repositoryTree, id) {
			consistent = false
		}
		return consistent
	})
	return consistent
}

// Collect returns the paths of Included file nodes in pre-order.
func Collect(repositoryTree *tree.Tree) Result {
	result := Result{}
	for _, fileID := range repositoryTree.Files() {
		if repositoryTree.State(fileID) == tree.Included {
			result = append(result, repositoryTree.Path(fileID))
		}
	}
	return result
}

// AllFiles returns every file path in pre-order regardless of state.
func AllFiles(repositoryTree *tree.Tree) Result {
	result := Result{}
	for _, fileID := range repositoryTree.Files() {
		result = append(result, repositoryTree.Path(fileID))
	}
	return result
}
