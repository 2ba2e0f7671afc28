package gate

import "unicode/utf8"

// truncate walks the body tree depth-first, accumulating text length,
// and stops as soon as the character budget is met. The node that
// crosses the budget is kept whole; a leaf's text is never split.
func truncate(body Body, budget int) Body {
	out, _ := truncateNodes(body, budget)
	return out
}

func truncateNodes(nodes []*Node, budget int) ([]*Node, int) {
	if len(nodes) == 0 {
		return nil, 0
	}

	used := 0
	out := make([]*Node, 0, len(nodes))

	for _, n := range nodes {
		if budget-used <= 0 {
			break
		}
		if n == nil {
			continue
		}

		cp := &Node{Type: n.Type, Text: n.Text}
		used += utf8.RuneCountInString(n.Text)

		if budget-used > 0 && len(n.Children) > 0 {
			children, childUsed := truncateNodes(n.Children, budget-used)
			cp.Children = children
			used += childUsed
		}

		out = append(out, cp)
	}

	return out, used
}

// textLength counts the characters carried by a body tree. Used by
// tests to check truncation against the budget.
func textLength(nodes []*Node) int {
	total := 0
	for _, n := range nodes {
		if n == nil {
			continue
		}
		total += utf8.RuneCountInString(n.Text)
		total += textLength(n.Children)
	}
	return total
}
