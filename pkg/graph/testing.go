package graph

// ClearNodesForTests unbinds ids, or every node when none are given, and
// releases the monitors watching them. Only for tests.
func (g *Graph) ClearNodesForTests(ids ...*ID) {
	g.mu.Lock()
	if len(ids) == 0 {
		for id := range g.nodes {
			ids = append(ids, id)
		}
	}

	var released []*monitor
	for _, id := range ids {
		delete(g.nodes, id)
		for _, byID := range g.monitored {
			if m, ok := byID[id]; ok {
				released = append(released, m)
			}
		}
	}
	g.mu.Unlock()

	for _, m := range released {
		m.release()
	}
}
