package graph

// NodeByName returns the first node, in insertion order, with the given
// name. Duplicate names are not defended against.
func (g *Graph) NodeByName(name string) (*Node, bool) {
	for _, id := range g.order {
		if n := g.nodes[id]; n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// Port returns the node's input port when input is true, otherwise its
// output port. Nodes have at most one port of each direction.
func (g *Graph) Port(nodeID string, input bool) (Port, bool) {
	n, ok := g.nodes[nodeID]
	if !ok {
		return Port{}, false
	}
	for _, p := range n.Ports {
		if (input && p.IsInput()) || (!input && p.IsOutput()) {
			return p, true
		}
	}
	return Port{}, false
}

// NodeInputs returns the current names of the nodes feeding id, in edge
// order.
func (g *Graph) NodeInputs(id string) []string {
	var names []string
	for _, parent := range g.incoming[id] {
		names = append(names, g.nodes[parent].Name)
	}
	return names
}

// Connected reports whether every node is reachable from an arbitrary start
// node when edges are treated as undirected. The empty graph is connected.
func (g *Graph) Connected() bool {
	if len(g.order) == 0 {
		return true
	}

	start := g.order[0]
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, adj := range [][]string{g.outgoing[id], g.incoming[id]} {
			for _, next := range adj {
				if !seen[next] {
					seen[next] = true
					queue = append(queue, next)
				}
			}
		}
	}
	return len(seen) == len(g.nodes)
}

// DirectParents returns the nodes with an edge into id, in edge order.
func (g *Graph) DirectParents(id string) []*Node {
	var out []*Node
	seen := make(map[string]bool)
	for _, p := range g.incoming[id] {
		if !seen[p] {
			seen[p] = true
			out = append(out, g.nodes[p])
		}
	}
	return out
}

// AllParents returns every node from which id is reachable, nearest first.
// Cycles are tolerated: a node is collected at most once, and id itself is
// included only when it lies on a cycle.
func (g *Graph) AllParents(id string) []*Node {
	var out []*Node
	seen := make(map[string]bool)
	queue := append([]string(nil), g.incoming[id]...)
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, g.nodes[p])
		queue = append(queue, g.incoming[p]...)
	}
	return out
}
