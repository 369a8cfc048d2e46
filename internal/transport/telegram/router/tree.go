package router

import (
	"crypto/rand"
	"encoding/hex"
	"sort"
	"strings"
)

// cmdNode is one node in the command tree. A node may be a leaf command,
// a container for subcommands, or both ("/act" lists, "/act add" adds).
type cmdNode struct {
	name     string
	cmd      *Command
	children map[string]*cmdNode
}

func newRoot() *cmdNode {
	return &cmdNode{children: map[string]*cmdNode{}}
}

func (n *cmdNode) add(route []string, c Command) {
	cur := n
	for _, tok := range route {
		if cur.children == nil {
			cur.children = map[string]*cmdNode{}
		}
		next, ok := cur.children[tok]
		if !ok {
			next = &cmdNode{name: tok, children: map[string]*cmdNode{}}
			cur.children[tok] = next
		}
		cur = next
	}
	cc := c
	cur.cmd = &cc
}

func (n *cmdNode) find(route []string) *cmdNode {
	cur := n
	for _, tok := range route {
		next, ok := cur.children[tok]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

func (n *cmdNode) child(name string) (*cmdNode, bool) {
	if n == nil || n.children == nil {
		return nil, false
	}
	c, ok := n.children[name]
	return c, ok
}

func (n *cmdNode) childNames() []string {
	if n == nil || len(n.children) == 0 {
		return nil
	}
	out := make([]string, 0, len(n.children))
	for name := range n.children {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func splitRoute(route string) []string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(route)))
	return fields
}

// tokenizeCommandLine splits a command line on whitespace, honoring
// double-quoted segments so names with spaces survive:
//
//	/act add main "Night Shift" 21:00 22:30
func tokenizeCommandLine(s string) []string {
	var out []string
	var b strings.Builder
	inQuote := false
	flush := func() {
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			if inQuote {
				// closing quote ends the token even if empty
				out = append(out, b.String())
				b.Reset()
				inQuote = false
			} else {
				flush()
				inQuote = true
			}
		case !inQuote && (r == ' ' || r == '\t' || r == '\n'):
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return out
}

// parseFlags separates positional args from --key=value / --key value
// flags and bare --switches.
func parseFlags(args []string) (pos []string, flags map[string]string, bools map[string]bool) {
	flags = map[string]string{}
	bools = map[string]bool{}
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "--") {
			pos = append(pos, a)
			continue
		}
		key := strings.TrimPrefix(a, "--")
		if key == "" {
			continue
		}
		if j := strings.IndexByte(key, '='); j >= 0 {
			flags[key[:j]] = key[j+1:]
			continue
		}
		// --key value, unless the next token is another flag
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			flags[key] = args[i+1]
			i++
			continue
		}
		bools[key] = true
	}
	return pos, flags, bools
}

func newReqID() string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "req-rand-err"
	}
	return hex.EncodeToString(b[:])
}
