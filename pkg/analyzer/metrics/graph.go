// Package metrics computes complexity metrics from a routine's flow summary,
// basic-block partition, and node graph.
package metrics

import (
	"github.com/arcusfield/haruspex/pkg/analyzer/flow"
	"github.com/arcusfield/haruspex/pkg/disasm"
)

// Cyclomatic returns E - N + 2 over the routine's edge set and boundary set.
func Cyclomatic(sum *flow.Summary) int {
	return len(sum.Edges) - int(sum.Boundaries.GetCardinality()) + 2
}

// CyclomaticModified treats each switch dispatch as a single decision. Every
// switch table contributes cases-1 extra edges and cases-1 extra nodes beyond
// a plain two-way branch, which are discounted before the usual E - N + 2.
func CyclomaticModified(sum *flow.Summary) int {
	if sum.SwitchCases == 0 {
		return Cyclomatic(sum)
	}
	extra := sum.SwitchCases - sum.SwitchTables
	edges := len(sum.Edges) - extra*2
	nodes := int(sum.Boundaries.GetCardinality()) - extra
	return edges - nodes + 2
}

// RatioR is the edges-to-nodes ratio of the node graph.
func RatioR(sum *flow.Summary) float64 {
	nodes := sum.Boundaries.GetCardinality()
	if nodes == 0 {
		return 0
	}
	return float64(len(sum.Edges)) / float64(nodes)
}

// subgraphSize returns the number of nodes reachable from root, excluding
// root itself. Each call walks with a fresh visited set.
func subgraphSize(g flow.Graph, root disasm.Address) int {
	return len(reachable(g, root)) - 1
}

// reachable returns every node reachable from root, including root.
func reachable(g flow.Graph, root disasm.Address) map[disasm.Address]struct{} {
	visited := map[disasm.Address]struct{}{root: {}}
	stack := []disasm.Address{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, succ := range g[node] {
			if _, ok := visited[succ]; ok {
				continue
			}
			visited[succ] = struct{}{}
			stack = append(stack, succ)
		}
	}
	return visited
}

// BoundaryValue sums a per-node contribution over the whole graph, minus one
// for the entry node: terminal nodes contribute nothing, single-successor
// nodes contribute one, and branching nodes contribute the size of the
// subgraph hanging off them.
func BoundaryValue(g flow.Graph) float64 {
	total := 0
	for _, node := range g.Nodes() {
		switch succs := g[node]; {
		case len(succs) == 0:
		case len(succs) == 1:
			total++
		default:
			total += subgraphSize(g, node)
		}
	}
	return float64(total - 1)
}

// PivovarskyPi sums the subgraph size of every two-way branch node. The full
// Pivovarsky metric adds this to the modified cyclomatic complexity.
func PivovarskyPi(g flow.Graph) float64 {
	total := 0
	for _, node := range g.Nodes() {
		if len(g[node]) == 2 {
			total += subgraphSize(g, node)
		}
	}
	return float64(total)
}

// Harrison weighs each node by instruction count: plain nodes count only
// themselves, while two-way branch nodes also absorb the instruction counts
// of everything reachable from them.
func Harrison(g flow.Graph, sizes map[disasm.Address]int) float64 {
	total := 0
	for _, node := range g.Nodes() {
		if len(g[node]) != 2 {
			total += sizes[node]
			continue
		}
		for reached := range reachable(g, node) {
			total += sizes[reached]
		}
	}
	return float64(total)
}
