package dotweb

import (
	"strings"
)

// tabWidth is the number of spaces a literal tab counts for.
const tabWidth = 2

// TreeNode is one source line and the lines nested beneath it.
type TreeNode struct {
	Value    string // Trimmed line content
	Indent   int    // Leading spaces after tab expansion; -1 for the root
	Line     int    // Source line number (1-indexed); 0 for the root
	Children []*TreeNode
}

// Parse builds the indentation tree for source.
//
// A node's parent is the nearest preceding line with a strictly smaller
// indent. Irregular indentation is never rejected: a line is attached to
// whichever open ancestor satisfies that rule.
func Parse(source string) *TreeNode {
	root := &TreeNode{Value: "root", Indent: -1}
	stack := []*TreeNode{root}

	source = strings.ReplaceAll(source, "\t", strings.Repeat(" ", tabWidth))
	for i, line := range strings.Split(source, "\n") {
		value := strings.TrimSpace(line)
		if value == "" {
			continue
		}

		node := &TreeNode{
			Value:  value,
			Indent: len(line) - len(strings.TrimLeft(line, " ")),
			Line:   i + 1,
		}

		for stack[len(stack)-1].Indent >= node.Indent {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		parent.Children = append(parent.Children, node)
		stack = append(stack, node)
	}

	return root
}

// Head returns the first whitespace-separated token of the node's value.
func (n *TreeNode) Head() string {
	if i := strings.IndexAny(n.Value, " \t"); i >= 0 {
		return n.Value[:i]
	}
	return n.Value
}

// Rest returns the node's value after the head token, trimmed.
func (n *TreeNode) Rest() string {
	if i := strings.IndexAny(n.Value, " \t"); i >= 0 {
		return strings.TrimSpace(n.Value[i+1:])
	}
	return ""
}

// Walk visits every descendant of n in document order, passing its depth
// relative to n (direct children have depth 0).
func (n *TreeNode) Walk(fn func(node *TreeNode, depth int)) {
	var walk func(node *TreeNode, depth int)
	walk = func(node *TreeNode, depth int) {
		for _, c := range node.Children {
			fn(c, depth)
			walk(c, depth+1)
		}
	}
	walk(n, 0)
}
