package output

import (
	"io"
	"strings"

	"github.com/temirov/amalgam/internal/tree"
)

const (
	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "
	defaultTreeLabel    = "."
	directorySuffix     = "/"
)

// WriteTreeDiagram draws the nodes of repositoryTree that are not Excluded
// using box-drawing connectors, one node per line, under a root label.
func WriteTreeDiagram(writer io.Writer, repositoryTree *tree.Tree, rootLabel string) error {
	if rootLabel == "" {
		rootLabel = defaultTreeLabel
	}
	var builder strings.Builder
	builder.WriteString(rootLabel)
	builder.WriteString("\n")
	writeTreeChildren(&builder, repositoryTree, repositoryTree.Root(), "")
	_, writeError := io.WriteString(writer, builder.String())
	return writeError
}

func writeTreeChildren(builder *strings.Builder, repositoryTree *tree.Tree, parentID tree.NodeID, prefix string) {
	var visibleChildren []tree.NodeID
	for _, childID := range repositoryTree.Children(parentID) {
		if repositoryTree.State(childID) != tree.Excluded {
			visibleChildren = append(visibleChildren, childID)
		}
	}
	for childIndex, childID := range visibleChildren {
		isLast := childIndex == len(visibleChildren)-1
		connector := treeBranchConnector
		padding := treeBranchPadding
		if isLast {
			connector = treeLastConnector
			padding = treeLastPadding
		}
		node := repositoryTree.Node(childID)
		builder.WriteString(prefix)
		builder.WriteString(connector)
		builder.WriteString(node.Name)
		if node.IsDirectory() {
			builder.WriteString(directorySuffix)
		}
		builder.WriteString("\n")
		if node.IsDirectory() {
			writeTreeChildren(builder, repositoryTree, childID, prefix+padding)
		}
	}
}
