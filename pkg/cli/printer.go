package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/webchatter/pkg/domain/model"
)

// printer renders conversations for the terminal
type printer struct {
	w         io.Writer
	user      *color.Color
	assistant *color.Color
	meta      *color.Color
	current   *color.Color
}

func newPrinter(w io.Writer) *printer {
	return &printer{
		w:         w,
		user:      color.New(color.FgCyan, color.Bold),
		assistant: color.New(color.FgGreen),
		meta:      color.New(color.FgHiBlack),
		current:   color.New(color.FgYellow, color.Bold),
	}
}

func (p *printer) roleColor(role model.Role) *color.Color {
	switch role {
	case model.RoleUser:
		return p.user
	case model.RoleAssistant:
		return p.assistant
	default:
		return p.meta
	}
}

// Log prints messages as "role> text"
func (p *printer) Log(entries []model.LogEntry) {
	for _, e := range entries {
		p.roleColor(e.Role).Fprintf(p.w, "%s> ", e.Role)
		fmt.Fprintln(p.w, e.Content)
	}
}

// Answer prints an assistant reply
func (p *printer) Answer(text string) {
	p.assistant.Fprintln(p.w, text)
}

// Info prints a dimmed status line
func (p *printer) Info(format string, args ...any) {
	p.meta.Fprintf(p.w, format+"\n", args...)
}

// Tree prints the nodes below rootID, marking the current node
func (p *printer) Tree(mapping map[string]*model.Node, rootID, currentID string) {
	seen := map[string]bool{}
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		n, ok := mapping[id]
		if !ok || seen[id] {
			return
		}
		seen[id] = true

		indent := strings.Repeat("  ", depth)
		label := n.String()
		if id == currentID {
			p.current.Fprintf(p.w, "%s%s *\n", indent, label)
		} else {
			fmt.Fprintf(p.w, "%s%s\n", indent, label)
		}
		if n.Message != "" {
			p.roleColor(n.Role).Fprintf(p.w, "%s  %s\n", indent, summarize(n.Message, 60))
		}

		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(rootID, 0)
}

// JSON prints v indented
func (p *printer) JSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func summarize(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
