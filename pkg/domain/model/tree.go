package model

import (
	"fmt"
	"slices"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// ChatTree is the local view of a conversation: every node keyed by id plus the current position.
type ChatTree struct {
	ChatID  string
	RootID  string
	NodeID  string
	Mapping map[string]*Node
}

// LogEntry is a single message on the path from the root to the current node
type LogEntry struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewChatTree returns an empty tree with no conversation
func NewChatTree() *ChatTree {
	return &ChatTree{Mapping: map[string]*Node{}}
}

// Started reports whether the tree holds a conversation
func (t *ChatTree) Started() bool {
	return t.ChatID != ""
}

// Node returns the node with the given id
func (t *ChatTree) Node(id string) (*Node, bool) {
	n, ok := t.Mapping[id]
	return n, ok
}

// Current returns the current node, or nil if the conversation is not started
func (t *ChatTree) Current() *Node {
	return t.Mapping[t.NodeID]
}

// Begin records the first exchange of a new conversation as root -> question -> answer
func (t *ChatTree) Begin(chatID, rootID string, question, answer *Node) error {
	if t.Started() {
		return goerr.New("conversation already started", goerr.V("chat_id", t.ChatID))
	}
	if chatID == "" {
		return goerr.Wrap(ErrEmptyResponse, "no conversation id in response")
	}

	root := &Node{ID: rootID, Role: RoleSystem, Children: []string{}, Name: "root"}
	t.Mapping = map[string]*Node{rootID: root}
	t.link(root, question, answer, 1)

	t.ChatID, t.RootID, t.NodeID = chatID, rootID, answer.ID
	return nil
}

// Append attaches a new exchange below the current node and moves to its answer
func (t *ChatTree) Append(question, answer *Node) error {
	cur := t.Current()
	if cur == nil {
		return goerr.Wrap(ErrNoConversation, "cannot append exchange")
	}

	t.link(cur, question, answer, t.depth(cur.ID)+1)
	t.NodeID = answer.ID
	return nil
}

// BranchParent returns the node a regenerated exchange should hang from: the parent of the
// question that led to the current node.
func (t *ChatTree) BranchParent() (*Node, error) {
	question, err := t.Question()
	if err != nil {
		return nil, err
	}
	parent, ok := t.Mapping[question.Parent]
	if !ok {
		return nil, goerr.Wrap(ErrNodeNotFound, "question has no parent", goerr.V("question_id", question.ID))
	}
	return parent, nil
}

// Branch attaches a new exchange as a sibling of the current question and moves to its answer
func (t *ChatTree) Branch(question, answer *Node) error {
	parent, err := t.BranchParent()
	if err != nil {
		return err
	}

	t.link(parent, question, answer, t.depth(parent.ID)+1)
	t.NodeID = answer.ID
	return nil
}

// Variant attaches another answer to the current question and moves to it
func (t *ChatTree) Variant(answer *Node) error {
	question, err := t.Question()
	if err != nil {
		return err
	}

	if answer.Role == "" {
		answer.Role = RoleAssistant
	}
	answer.Parent = question.ID
	answer.Children = []string{}
	answer.Name = fmt.Sprintf("A%d", t.depth(question.ID))

	question.Children = append(question.Children, answer.ID)
	t.Mapping[answer.ID] = answer
	t.NodeID = answer.ID
	return nil
}

// Goto moves the current position to the given node
func (t *ChatTree) Goto(id string) error {
	if !t.Started() {
		return goerr.Wrap(ErrNoConversation, "cannot move")
	}
	if _, ok := t.Mapping[id]; !ok {
		return goerr.Wrap(ErrNodeNotFound, "cannot move", goerr.V("node_id", id))
	}
	t.NodeID = id
	return nil
}

// GoBack moves to the assistant answer that preceded the current question
func (t *ChatTree) GoBack() error {
	question, err := t.Question()
	if err != nil {
		return err
	}

	seen := map[string]bool{question.ID: true}
	for id := question.Parent; id != "" && !seen[id]; {
		n, ok := t.Mapping[id]
		if !ok {
			break
		}
		seen[id] = true
		if n.Role == RoleAssistant {
			t.NodeID = n.ID
			return nil
		}
		id = n.Parent
	}

	return goerr.Wrap(ErrAtRoot, "cannot go back", goerr.V("node_id", t.NodeID))
}

// Path returns the nodes from the root to the current node
func (t *ChatTree) Path() []*Node {
	var path []*Node
	seen := map[string]bool{}
	for id := t.NodeID; id != "" && !seen[id]; {
		n, ok := t.Mapping[id]
		if !ok {
			break
		}
		seen[id] = true
		path = append(path, n)
		id = n.Parent
	}
	slices.Reverse(path)
	return path
}

// Log returns the messages from the root to the current node, skipping empty ones
func (t *ChatTree) Log() []LogEntry {
	entries := []LogEntry{}
	for _, n := range t.Path() {
		if n.Message == "" {
			continue
		}
		entries = append(entries, LogEntry{ID: n.ID, Role: n.Role, Content: n.Message})
	}
	return entries
}

// Validate checks parent/child consistency and that the current node exists
func (t *ChatTree) Validate() error {
	if !t.Started() {
		return nil
	}
	if _, ok := t.Mapping[t.NodeID]; !ok {
		return goerr.Wrap(ErrNodeNotFound, "current node missing", goerr.V("node_id", t.NodeID))
	}
	if _, ok := t.Mapping[t.RootID]; !ok {
		return goerr.Wrap(ErrNodeNotFound, "root node missing", goerr.V("root_id", t.RootID))
	}

	for id, n := range t.Mapping {
		if id != n.ID {
			return goerr.New("mapping key differs from node id", goerr.V("key", id), goerr.V("node_id", n.ID))
		}
		if n.Parent != "" {
			p, ok := t.Mapping[n.Parent]
			if !ok {
				return goerr.Wrap(ErrNodeNotFound, "parent missing", goerr.V("node_id", id), goerr.V("parent", n.Parent))
			}
			if !slices.Contains(p.Children, id) {
				return goerr.New("parent does not list node as child", goerr.V("node_id", id), goerr.V("parent", n.Parent))
			}
		}
		for _, c := range n.Children {
			child, ok := t.Mapping[c]
			if !ok {
				return goerr.Wrap(ErrNodeNotFound, "child missing", goerr.V("node_id", id), goerr.V("child", c))
			}
			if child.Parent != id {
				return goerr.New("child points to another parent", goerr.V("node_id", id), goerr.V("child", c))
			}
		}
	}
	return nil
}

// FromConversation builds a tree from a conversation fetched from the backend
func FromConversation(chatID string, conv *Conversation) (*ChatTree, error) {
	t := NewChatTree()
	t.ChatID = conv.ConversationID
	if t.ChatID == "" {
		t.ChatID = chatID
	}

	for key, raw := range conv.Mapping {
		if raw == nil {
			continue
		}
		n := NewNodeFromRaw(raw)
		if n.ID == "" {
			n.ID = key
		}
		t.Mapping[n.ID] = n
		if n.IsRoot() {
			t.RootID = n.ID
		}
	}
	if t.RootID == "" {
		return nil, goerr.Wrap(ErrNodeNotFound, "conversation has no root node", goerr.V("chat_id", t.ChatID))
	}

	t.NodeID = conv.CurrentNode
	if t.NodeID == "" {
		t.NodeID = t.lastLeaf()
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.nameExchanges()
	return t, nil
}

// Snapshot exports the tree with nodes ordered from the root in breadth-first order
func (t *ChatTree) Snapshot(model string) *ChatSnapshot {
	snap := &ChatSnapshot{
		Version:   SnapshotVersion,
		ChatID:    t.ChatID,
		RootID:    t.RootID,
		NodeID:    t.NodeID,
		Model:     model,
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}

	queue := []string{t.RootID}
	seen := map[string]bool{}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n, ok := t.Mapping[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		snap.Nodes = append(snap.Nodes, n)
		queue = append(queue, n.Children...)
	}
	return snap
}

// TreeFromSnapshot rebuilds and validates a tree from a snapshot
func TreeFromSnapshot(snap *ChatSnapshot) (*ChatTree, error) {
	if snap.Version > SnapshotVersion {
		return nil, goerr.New("snapshot version is newer than supported",
			goerr.V("version", snap.Version), goerr.V("supported", SnapshotVersion))
	}

	t := &ChatTree{
		ChatID:  snap.ChatID,
		RootID:  snap.RootID,
		NodeID:  snap.NodeID,
		Mapping: make(map[string]*Node, len(snap.Nodes)),
	}
	for _, n := range snap.Nodes {
		if n.Children == nil {
			n.Children = []string{}
		}
		t.Mapping[n.ID] = n
	}

	if err := t.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid snapshot", goerr.V("chat_id", snap.ChatID))
	}
	return t, nil
}

func (t *ChatTree) link(parent, question, answer *Node, depth int) {
	question.Role = RoleUser
	question.Parent = parent.ID
	question.Children = []string{answer.ID}
	question.Name = fmt.Sprintf("Q%d", depth)

	if answer.Role == "" {
		answer.Role = RoleAssistant
	}
	answer.Parent = question.ID
	answer.Children = []string{}
	answer.Name = fmt.Sprintf("A%d", depth)

	parent.Children = append(parent.Children, question.ID)
	t.Mapping[question.ID] = question
	t.Mapping[answer.ID] = answer
}

// Question returns the user node that led to the current node
func (t *ChatTree) Question() (*Node, error) {
	cur := t.Current()
	if cur == nil {
		return nil, goerr.Wrap(ErrNoConversation, "no current node")
	}
	seen := map[string]bool{}
	for n := cur; n != nil && !seen[n.ID]; n = t.Mapping[n.Parent] {
		seen[n.ID] = true
		if n.Role == RoleUser {
			return n, nil
		}
		if n.Parent == "" {
			break
		}
	}
	return nil, goerr.Wrap(ErrAtRoot, "no question before current node", goerr.V("node_id", cur.ID))
}

// depth counts the questions on the path from the root to id
func (t *ChatTree) depth(id string) int {
	d := 0
	seen := map[string]bool{}
	for id != "" && !seen[id] {
		n, ok := t.Mapping[id]
		if !ok {
			break
		}
		seen[id] = true
		if n.Role == RoleUser {
			d++
		}
		id = n.Parent
	}
	return d
}

// lastLeaf follows the last child from the root
func (t *ChatTree) lastLeaf() string {
	id := t.RootID
	seen := map[string]bool{}
	for {
		n := t.Mapping[id]
		if n == nil || len(n.Children) == 0 || seen[id] {
			return id
		}
		seen[id] = true
		id = n.Children[len(n.Children)-1]
	}
}

func (t *ChatTree) nameExchanges() {
	for id, n := range t.Mapping {
		switch {
		case id == t.RootID:
			n.Name = "root"
		case n.Role == RoleUser:
			n.Name = fmt.Sprintf("Q%d", t.depth(id))
		case n.Role == RoleAssistant:
			n.Name = fmt.Sprintf("A%d", t.depth(id))
		}
	}
}
