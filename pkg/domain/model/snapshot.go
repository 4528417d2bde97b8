package model

import "time"

// SnapshotVersion is the current snapshot layout
const SnapshotVersion = 1

// ChatSnapshot is the persisted form of a conversation tree
type ChatSnapshot struct {
	Version   int       `json:"version" toml:"version" yaml:"version" firestore:"version"`
	ChatID    string    `json:"chat_id" toml:"chat_id" yaml:"chat_id" firestore:"chat_id"`
	RootID    string    `json:"root_id" toml:"root_id" yaml:"root_id" firestore:"root_id"`
	NodeID    string    `json:"node_id" toml:"node_id" yaml:"node_id" firestore:"node_id"`
	Model     string    `json:"model,omitempty" toml:"model,omitempty" yaml:"model,omitempty" firestore:"model"`
	UpdatedAt time.Time `json:"updated_at" toml:"updated_at" yaml:"updated_at" firestore:"updated_at"`
	Nodes     []*Node   `json:"nodes" toml:"nodes" yaml:"nodes" firestore:"nodes"`
}
