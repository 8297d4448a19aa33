// Package selection implements the interactive include/exclude state machine over a repository tree.
package selection

import (
	"errors"

	"github.com/temirov/amalgam/internal/tree"
)

// ErrAlreadyFinalized is returned for any command issued after Confirm or Cancel.
var ErrAlreadyFinalized = errors.New("selection session already finalized")

// Result is the ordered list of selected file paths.
type Result []string

// Phase is the lifecycle stage of a Session.
type Phase int

const (
	// PhaseActive accepts commands.
	PhaseActive Phase = iota
	// PhaseFinalized follows Confirm.
	PhaseFinalized
	// PhaseCancelled follows Cancel.
	PhaseCancelled
)

// Direction selects how MoveFocus travels over the visible rows.
type Direction int

const (
	DirectionUp Direction = iota
	DirectionDown
	DirectionFirst
	DirectionLast
	DirectionParent
)

// Row is one visible line of the tree as a renderer shows it.
type Row struct {
	ID          tree.NodeID
	Depth       int
	Name        string
	IsDirectory bool
	HasChildren bool
	State       tree.State
	Expanded    bool
	Focused     bool
}

// Session owns the tree while the user edits the selection.
type Session struct {
	repositoryTree *tree.Tree
	focus          tree.NodeID
	expanded       map[tree.NodeID]bool
	phase          Phase
	result         Result
}

// NewSession starts an active session focused on the first top-level entry.
// The root is always expanded and never shown as a row.
func NewSession(repositoryTree *tree.Tree) *Session {
	session := &Session{
		repositoryTree: repositoryTree,
		focus:          repositoryTree.Root(),
		expanded:       map[tree.NodeID]bool{repositoryTree.Root(): true},
	}
	if rootChildren := repositoryTree.Children(repositoryTree.Root()); len(rootChildren) > 0 {
		session.focus = rootChildren[0]
	}
	return session
}

// Tree returns the tree the session edits.
func (session *Session) Tree() *tree.Tree {
	return session.repositoryTree
}

// Phase returns the current lifecycle stage.
func (session *Session) Phase() Phase {
	return session.phase
}

// Focus returns the focused node id.
func (session *Session) Focus() tree.NodeID {
	return session.focus
}

// Expanded reports whether a directory shows its children.
func (session *Session) Expanded(id tree.NodeID) bool {
	return session.expanded[id]
}

// Result returns the confirmed selection, or nil before Confirm.
func (session *Session) Result() Result {
	return session.result
}

func (session *Session) ensureActive() error {
	if session.phase != PhaseActive {
		return ErrAlreadyFinalized
	}
	return nil
}

// ToggleFocused flips the focused node. A directory flips as a unit: Included
// becomes Excluded, Excluded or PartiallyIncluded becomes Included, and every
// descendant follows. A directory without children is left unchanged.
func (session *Session) ToggleFocused() error {
	if err := session.ensureActive(); err != nil {
		return err
	}
	return session.toggle(session.focus)
}

// ToggleAll toggles the root directory.
func (session *Session) ToggleAll() error {
	if err := session.ensureActive(); err != nil {
		return err
	}
	return session.toggle(session.repositoryTree.Root())
}

func (session *Session) toggle(id tree.NodeID) error {
	node := session.repositoryTree.Node(id)
	if node.IsDirectory() && session.repositoryTree.FileCount(id) == 0 {
		return nil
	}
	nextState := tree.Included
	if node.State == tree.Included {
		nextState = tree.Excluded
	}
	SetSubtree(session.repositoryTree, id, nextState)
	return nil
}

// MoveFocus changes the focused row without touching selection state.
func (session *Session) MoveFocus(direction Direction) error {
	if err := session.ensureActive(); err != nil {
		return err
	}
	visibleIDs := session.visibleIDs()
	if len(visibleIDs) == 0 {
		return nil
	}
	currentIndex := 0
	for rowIndex, visibleID := range visibleIDs {
		if visibleID == session.focus {
			currentIndex = rowIndex
			break
		}
	}
	switch direction {
	case DirectionUp:
		if currentIndex > 0 {
			currentIndex--
		}
	case DirectionDown:
		if currentIndex < len(visibleIDs)-1 {
			currentIndex++
		}
	case DirectionFirst:
		currentIndex = 0
	case DirectionLast:
		currentIndex = len(visibleIDs) - 1
	case DirectionParent:
		parentID := session.repositoryTree.Parent(visibleIDs[currentIndex])
		if parentID != tree.NoParent && parentID != session.repositoryTree.Root() {
			session.focus = parentID
		}
		return nil
	}
	session.focus = visibleIDs[currentIndex]
	return nil
}

// ToggleExpanded shows or hides the children of the focused directory.
func (session *Session) ToggleExpanded() error {
	if err := session.ensureActive(); err != nil {
		return err
	}
	node := session.repositoryTree.Node(session.focus)
	if !node.IsDirectory() || session.focus == session.repositoryTree.Root() {
		return nil
	}
	session.expanded[session.focus] = !session.expanded[session.focus]
	return nil
}

// ExpandAll expands every directory.
func (session *Session) ExpandAll() error {
	if err := session.ensureActive(); err != nil {
		return err
	}
	session.repositoryTree.Walk(func(id tree.NodeID, depth int) bool {
		if session.repositoryTree.Node(id).IsDirectory() {
			session.expanded[id] = true
		}
		return true
	})
	return nil
}

// Confirm finalizes the session and returns the Included files in pre-order.
func (session *Session) Confirm() (Result, error) {
	if err := session.ensureActive(); err != nil {
		return nil, err
	}
	session.phase = PhaseFinalized
	session.result = Collect(session.repositoryTree)
	return session.result, nil
}

// Cancel ends the session without a result.
func (session *Session) Cancel() error {
	if err := session.ensureActive(); err != nil {
		return err
	}
	session.phase = PhaseCancelled
	return nil
}

func (session *Session) visibleIDs() []tree.NodeID {
	var visibleIDs []tree.NodeID
	session.repositoryTree.Walk(func(id tree.NodeID, depth int) bool {
		if id != session.repositoryTree.Root() {
			visibleIDs = append(visibleIDs, id)
		}
		return session.expanded[id]
	})
	return visibleIDs
}

// Rows returns the visible rows in display order.
func (session *Session) Rows() []Row {
	var rows []Row
	session.repositoryTree.Walk(func(id tree.NodeID, depth int) bool {
		if id != session.repositoryTree.Root() {
			node := session.repositoryTree.Node(id)
			rows = append(rows, Row{
				ID:          id,
				Depth:       depth - 1,
				Name:        node.Name,
				IsDirectory: node.IsDirectory(),
				HasChildren: len(node.Children) > 0,
				State:       node.State,
				Expanded:    session.expanded[id],
				Focused:     id == session.focus,
			})
		}
		return session.expanded[id]
	})
	return rows
}

// IncludedCount returns the number of Included files.
func (session *Session) IncludedCount() int {
	return len(Collect(session.repositoryTree))
}
