package community

import (
	"github.com/agenthands/dossier/internal/core/model"
)

// Edge links two records that share an equivalence key.
type Edge struct {
	SourceID string
	TargetID string
	Key      string
}

type Detector interface {
	Detect(nodes []model.Record, edges []Edge) ([][]model.Record, error)
}

// ComponentDetector groups records into connected components, so linking is
// transitive: a~b and b~c puts a, b and c together. Components smaller than
// MinSize are dropped; the default of 1 keeps singletons.
type ComponentDetector struct {
	MinSize int
}

func NewComponentDetector() *ComponentDetector {
	return &ComponentDetector{MinSize: 1}
}

// Detect returns components in order of their first member in nodes, with
// members kept in input order.
func (d *ComponentDetector) Detect(nodes []model.Record, edges []Edge) ([][]model.Record, error) {
	if len(nodes) == 0 {
		return nil, nil
	}

	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}

	adj := make(map[string][]string)
	for _, e := range edges {
		// Only consider edges where both records are present
		if _, ok := index[e.SourceID]; !ok {
			continue
		}
		if _, ok := index[e.TargetID]; !ok {
			continue
		}
		adj[e.SourceID] = append(adj[e.SourceID], e.TargetID)
		adj[e.TargetID] = append(adj[e.TargetID], e.SourceID)
	}

	minSize := d.MinSize
	if minSize < 1 {
		minSize = 1
	}

	visited := make(map[string]bool, len(nodes))
	var components [][]model.Record

	for _, n := range nodes {
		if visited[n.ID] {
			continue
		}
		var ids []string
		d.dfs(n.ID, adj, visited, &ids)
		if len(ids) < minSize {
			continue
		}

		member := make(map[string]bool, len(ids))
		for _, id := range ids {
			member[id] = true
		}
		component := make([]model.Record, 0, len(ids))
		for _, candidate := range nodes {
			if member[candidate.ID] {
				component = append(component, candidate)
			}
		}
		components = append(components, component)
	}

	return components, nil
}

func (d *ComponentDetector) dfs(u string, adj map[string][]string, visited map[string]bool, component *[]string) {
	visited[u] = true
	*component = append(*component, u)
	for _, v := range adj[u] {
		if !visited[v] {
			d.dfs(v, adj, visited, component)
		}
	}
}
