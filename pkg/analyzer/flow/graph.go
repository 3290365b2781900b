package flow

import (
	"fmt"
	"sort"

	"github.com/arcusfield/haruspex/pkg/disasm"
)

// Graph is the block-level node graph: block entry address to successor
// entries. Every block appears as a key; terminal blocks map to nil. The
// guarantee that every block is present keeps the recursive metrics'
// traversals total.
type Graph map[disasm.Address][]disasm.Address

// BlockSizes returns per-node instruction counts keyed by block entry.
func BlockSizes(blocks []Block) map[disasm.Address]int {
	sizes := make(map[disasm.Address]int, len(blocks))
	for _, b := range blocks {
		sizes[b.Entry()] = len(b)
	}
	return sizes
}

// BuildGraph converts raw edges and the block partition into the node graph.
// An edge may originate from a non-boundary instruction when the routine
// spans several chunks; such sources are re-anchored at the entry of the
// block whose last instruction they are. A source attributable to no block
// is an UnresolvedEdge, fatal for the routine.
func BuildGraph(sum *Summary, blocks []Block) (Graph, error) {
	bySource := make(map[disasm.Address][]disasm.Address)
	for e := range sum.Edges {
		bySource[e.From] = append(bySource[e.From], e.To)
	}

	lastToEntry := make(map[disasm.Address]disasm.Address, len(blocks))
	for _, b := range blocks {
		lastToEntry[b.Last()] = b.Entry()
	}

	sources := make([]disasm.Address, 0, len(bySource))
	for src := range bySource {
		sources = append(sources, src)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	graph := make(Graph, len(blocks))
	for _, src := range sources {
		key := src
		if !sum.Boundaries.Contains(uint64(src)) {
			entry, ok := lastToEntry[src]
			if !ok {
				return nil, fmt.Errorf("%w: source %s belongs to no block", ErrUnresolvedEdge, src)
			}
			key = entry
		}
		graph[key] = append(graph[key], bySource[src]...)
	}
	for key, succs := range graph {
		graph[key] = dedupSorted(succs)
	}

	if len(graph) == 0 && sum.Boundaries.GetCardinality() == 1 {
		// Single straight-line block: one root, no edges.
		graph[disasm.Address(sum.Boundaries.Minimum())] = nil
	}

	// Terminal blocks still need a node so traversals cover every block.
	for _, b := range blocks {
		if _, ok := graph[b.Entry()]; !ok {
			graph[b.Entry()] = nil
		}
	}
	return graph, nil
}

// Nodes returns the graph's keys in ascending order.
func (g Graph) Nodes() []disasm.Address {
	nodes := make([]disasm.Address, 0, len(g))
	for n := range g {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	return nodes
}

func dedupSorted(addrs []disasm.Address) []disasm.Address {
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	out := addrs[:0]
	for i, a := range addrs {
		if i == 0 || a != addrs[i-1] {
			out = append(out, a)
		}
	}
	return out
}
