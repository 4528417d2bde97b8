package model

import (
	"fmt"
	"slices"
	"strings"
)

// Role is the author role of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Node is a simplified message node of a conversation tree
type Node struct {
	ID       string   `json:"id" toml:"id" yaml:"id" firestore:"id"`
	Role     Role     `json:"role,omitempty" toml:"role,omitempty" yaml:"role,omitempty" firestore:"role"`
	Message  string   `json:"message" toml:"message" yaml:"message" firestore:"message"`
	Parent   string   `json:"parent,omitempty" toml:"parent,omitempty" yaml:"parent,omitempty" firestore:"parent"`
	Children []string `json:"children" toml:"children" yaml:"children" firestore:"children"`
	Name     string   `json:"name,omitempty" toml:"name,omitempty" yaml:"name,omitempty" firestore:"name"`
}

// RawNode is a node as returned in the "mapping" of a backend conversation
type RawNode struct {
	ID       string      `json:"id"`
	Message  *RawMessage `json:"message"`
	Parent   *string     `json:"parent"`
	Children []string    `json:"children"`
}

// RawMessage is a message object of the backend
type RawMessage struct {
	ID      string         `json:"id"`
	Author  Author         `json:"author"`
	Content Content        `json:"content"`
	Status  string         `json:"status,omitempty"`
	EndTurn *bool          `json:"end_turn,omitempty"`
	Meta    map[string]any `json:"metadata,omitempty"`
}

// Author of a message
type Author struct {
	Role Role   `json:"role"`
	Name string `json:"name,omitempty"`
}

// Content of a message. Parts are strings for text messages and objects for multimodal ones.
type Content struct {
	ContentType string `json:"content_type"`
	Parts       []any  `json:"parts"`
}

// Text returns the first text part of the content
func (c Content) Text() string {
	for _, p := range c.Parts {
		if s, ok := p.(string); ok {
			return s
		}
	}
	return ""
}

// TextContent builds a single-part text content
func TextContent(text string) Content {
	return Content{ContentType: "text", Parts: []any{text}}
}

// NewNodeFromRaw simplifies a backend mapping entry into a Node
func NewNodeFromRaw(raw *RawNode) *Node {
	node := &Node{
		ID:       raw.ID,
		Children: slices.Clone(raw.Children),
	}
	if node.Children == nil {
		node.Children = []string{}
	}
	if raw.Parent != nil {
		node.Parent = *raw.Parent
	}
	if raw.Message != nil {
		node.Message = raw.Message.Content.Text()
		node.Role = raw.Message.Author.Role
		if node.ID == "" {
			node.ID = raw.Message.ID
		}
	}
	return node
}

// IsRoot reports whether the node has no parent
func (n *Node) IsRoot() bool {
	return n.Parent == ""
}

// Equal compares id, message, parent and children of two nodes
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.ID == other.ID &&
		n.Message == other.Message &&
		n.Parent == other.Parent &&
		slices.Equal(n.Children, other.Children)
}

func (n *Node) String() string {
	children := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		children = append(children, shortID(c))
	}

	parent := "tree"
	if n.Parent != "" {
		parent = shortID(n.Parent)
	}

	name := ""
	if n.Name != "" {
		name = n.Name + "-"
	}

	return fmt.Sprintf("<Node: %s%s -|- [%s]>", name, parent, strings.Join(children, " "))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
