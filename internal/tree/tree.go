// Package tree builds the in-memory repository tree that selection and merging operate on.
//
// Nodes live in an arena owned by Tree and are addressed by NodeID. Every
// directory keeps an ordered list of child ids; the parent id stored on a node
// is a lookup aid and never owns anything.
package tree

import (
	"sort"
	"strings"

	"github.com/temirov/amalgam/internal/types"
)

// NodeID addresses a node inside a Tree.
type NodeID int

const (
	// RootID is the id of the synthesized root directory.
	RootID NodeID = 0
	// NoParent is the parent id of the root.
	NoParent NodeID = -1

	pathSeparator = "/"

	reasonEmpty        = "empty path"
	reasonAbsolute     = "absolute path"
	reasonEmptySegment = "empty segment"
	reasonDotSegment   = "relative segment"
)

// State is the tri-state selection status of a node.
type State int

const (
	// Included marks a node whose content is part of the merge.
	Included State = iota
	// Excluded marks a node left out of the merge.
	Excluded
	// PartiallyIncluded marks a directory whose descendants are mixed.
	PartiallyIncluded
)

// String returns a short label for the state.
func (state State) String() string {
	switch state {
	case Included:
		return "included"
	case Excluded:
		return "excluded"
	case PartiallyIncluded:
		return "partial"
	default:
		return "unknown"
	}
}

// Node is one entry of the repository placed in the tree.
type Node struct {
	Entry    types.Entry
	Name     string
	Parent   NodeID
	Children []NodeID
	State    State
}

// IsDirectory reports whether the node is a directory.
func (node Node) IsDirectory() bool {
	return node.Entry.Kind == types.EntryKindDirectory
}

// Tree is an arena of nodes rooted at RootID.
type Tree struct {
	nodes []Node
	// fileCounts holds the number of files in the subtree of each node.
	fileCounts []int
}

// Build inserts every entry into a new tree, synthesizing intermediate
// directories, and sorts the children of every directory by name.
// All nodes start Included.
func Build(entries []types.Entry) (*Tree, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	repositoryTree := &Tree{
		nodes: []Node{{
			Entry:  types.Entry{Kind: types.EntryKindDirectory},
			Parent: NoParent,
			State:  Included,
		}},
	}
	nodeIndex := map[string]NodeID{"": RootID}

	for _, entry := range entries {
		segments, validationError := validatePath(entry.Path)
		if validationError != nil {
			return nil, validationError
		}

		parentID := RootID
		for segmentIndex := 0; segmentIndex < len(segments)-1; segmentIndex++ {
			directoryPath := strings.Join(segments[:segmentIndex+1], pathSeparator)
			directoryID, exists := nodeIndex[directoryPath]
			if !exists {
				directoryID = repositoryTree.attach(parentID, types.Entry{Path: directoryPath, Kind: types.EntryKindDirectory}, segments[segmentIndex])
				nodeIndex[directoryPath] = directoryID
			} else if !repositoryTree.nodes[directoryID].IsDirectory() {
				return nil, &ConflictingPathKindError{Path: directoryPath}
			}
			parentID = directoryID
		}

		leafPath := strings.Join(segments, pathSeparator)
		normalizedEntry := types.Entry{Path: leafPath, Kind: entry.Kind, Size: entry.Size}
		if existingID, exists := nodeIndex[leafPath]; exists {
			existingNode := &repositoryTree.nodes[existingID]
			switch {
			case existingNode.Entry.Kind != entry.Kind:
				return nil, &ConflictingPathKindError{Path: leafPath}
			case entry.Kind == types.EntryKindFile:
				return nil, &DuplicateEntryError{Path: leafPath}
			default:
				existingNode.Entry = normalizedEntry
			}
			continue
		}
		nodeIndex[leafPath] = repositoryTree.attach(parentID, normalizedEntry, segments[len(segments)-1])
	}

	for nodeIndexValue := range repositoryTree.nodes {
		children := repositoryTree.nodes[nodeIndexValue].Children
		sort.Slice(children, func(left, right int) bool {
			return repositoryTree.nodes[children[left]].Name < repositoryTree.nodes[children[right]].Name
		})
	}
	repositoryTree.countFiles()
	return repositoryTree, nil
}

// countFiles fills fileCounts. Children are always attached after their
// parent, so a reverse scan sees every child before its parent.
func (repositoryTree *Tree) countFiles() {
	repositoryTree.fileCounts = make([]int, len(repositoryTree.nodes))
	for nodeIndex := len(repositoryTree.nodes) - 1; nodeIndex >= 0; nodeIndex-- {
		node := repositoryTree.nodes[nodeIndex]
		if !node.IsDirectory() {
			repositoryTree.fileCounts[nodeIndex]++
		}
		if node.Parent != NoParent {
			repositoryTree.fileCounts[node.Parent] += repositoryTree.fileCounts[nodeIndex]
		}
	}
}

func (repositoryTree *Tree) attach(parentID NodeID, entry types.Entry, name string) NodeID {
	nodeID := NodeID(len(repositoryTree.nodes))
	repositoryTree.nodes = append(repositoryTree.nodes, Node{
		Entry:  entry,
		Name:   name,
		Parent: parentID,
		State:  Included,
	})
	parentNode := &repositoryTree.nodes[parentID]
	parentNode.Children = append(parentNode.Children, nodeID)
	return nodeID
}

func validatePath(entryPath string) ([]string, error) {
	if entryPath == "" {
		return nil, &InvalidPathError{Path: entryPath, Reason: reasonEmpty}
	}
	if strings.HasPrefix(entryPath, pathSeparator) {
		return nil, &InvalidPathError{Path: entryPath, Reason: reasonAbsolute}
	}
	segments := strings.Split(entryPath, pathSeparator)
	for _, segment := range segments {
		switch segment {
		case "":
			return nil, &InvalidPathError{Path: entryPath, Reason: reasonEmptySegment}
		case ".", "..":
			return nil, &InvalidPathError{Path: entryPath, Reason: reasonDotSegment}
		}
	}
	return segments, nil
}

// Root returns the id of the root directory.
func (repositoryTree *Tree) Root() NodeID {
	return RootID
}

// Len returns the number of nodes including the root.
func (repositoryTree *Tree) Len() int {
	return len(repositoryTree.nodes)
}

// Valid reports whether id addresses a node of the tree.
func (repositoryTree *Tree) Valid(id NodeID) bool {
	return id >= 0 && int(id) < len(repositoryTree.nodes)
}

// Node returns a copy of the node addressed by id.
func (repositoryTree *Tree) Node(id NodeID) Node {
	return repositoryTree.nodes[id]
}

// Children returns the ordered child ids of a directory.
func (repositoryTree *Tree) Children(id NodeID) []NodeID {
	return repositoryTree.nodes[id].Children
}

// Parent returns the parent of id, or NoParent for the root.
func (repositoryTree *Tree) Parent(id NodeID) NodeID {
	return repositoryTree.nodes[id].Parent
}

// State returns the selection state of id.
func (repositoryTree *Tree) State(id NodeID) State {
	return repositoryTree.nodes[id].State
}

// SetState overwrites the selection state of id without propagating it.
func (repositoryTree *Tree) SetState(id NodeID, state State) {
	repositoryTree.nodes[id].State = state
}

// Path returns the slash-separated path of id. The root has an empty path.
func (repositoryTree *Tree) Path(id NodeID) string {
	return repositoryTree.nodes[id].Entry.Path
}

// Counts returns the number of file and directory nodes, excluding the root.
func (repositoryTree *Tree) Counts() (files int, directories int) {
	for nodeIndex := 1; nodeIndex < len(repositoryTree.nodes); nodeIndex++ {
		if repositoryTree.nodes[nodeIndex].IsDirectory() {
			directories++
		} else {
			files++
		}
	}
	return files, directories
}

// Walk visits nodes depth-first in sorted child order starting at the root.
// Returning false from visit skips the node's descendants.
func (repositoryTree *Tree) Walk(visit func(id NodeID, depth int) bool) {
	repositoryTree.walkFrom(RootID, 0, visit)
}

func (repositoryTree *Tree) walkFrom(id NodeID, depth int, visit func(id NodeID, depth int) bool) {
	if !visit(id, depth) {
		return
	}
	for _, childID := range repositoryTree.nodes[id].Children {
		repositoryTree.walkFrom(childID, depth+1, visit)
	}
}

// Files returns the ids of every file node in pre-order.
func (repositoryTree *Tree) Files() []NodeID {
	var fileIDs []NodeID
	repositoryTree.Walk(func(id NodeID, depth int) bool {
		if !repositoryTree.nodes[id].IsDirectory() {
			fileIDs = append(fileIDs, id)
		}
		return true
	})
	return fileIDs
}

// Descendants returns every node below id in pre-order.
func (repositoryTree *Tree) Descendants(id NodeID) []NodeID {
	var descendantIDs []NodeID
	for _, childID := range repositoryTree.nodes[id].Children {
		repositoryTree.walkFrom(childID, 0, func(visitedID NodeID, depth int) bool {
			descendantIDs = append(descendantIDs, visitedID)
			return true
		})
	}
	return descendantIDs
}

// FileCount returns the number of files in the subtree of id; a file counts itself.
func (repositoryTree *Tree) FileCount(id NodeID) int {
	return repositoryTree.fileCounts[id]
}

// Depth returns the number of edges between id and the root.
func (repositoryTree *Tree) Depth(id NodeID) int {
	depth := 0
	for current := repositoryTree.nodes[id].Parent; current != NoParent; current = repositoryTree.nodes[current].Parent {
		depth++
	}
	return depth
}
