package pipeline

import (
	"errors"
	"fmt"
	"sort"
)

// ErrCycle is returned by BuildLevels when inputs form a cycle.
var ErrCycle = errors.New("pipeline: cycle detected")

// Plan groups a pipeline's nodes into dependency levels. Nodes in one
// level depend only on nodes in earlier levels.
type Plan struct {
	PipelineID string     `json:"pipeline_id"`
	Levels     [][]string `json:"levels"`
}

// BuildLevels orders nodes with Kahn's algorithm, using input references
// as edges. References to nodes outside the set are ignored; the validator
// reports them. Each level is sorted for stable output.
func BuildLevels(nodes []*Node) ([][]string, error) {
	inDegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		inDegree[n.ID] = 0
	}

	dependents := make(map[string][]string)
	for _, n := range nodes {
		for _, ref := range n.InputRefs() {
			if _, ok := inDegree[ref]; !ok {
				continue
			}
			inDegree[n.ID]++
			dependents[ref] = append(dependents[ref], n.ID)
		}
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	var levels [][]string
	visited := 0
	for len(queue) > 0 {
		sort.Strings(queue)
		levels = append(levels, queue)
		visited += len(queue)

		var next []string
		for _, id := range queue {
			for _, dep := range dependents[id] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		queue = next
	}

	if visited != len(nodes) {
		var stuck []string
		for id, deg := range inDegree {
			if deg > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("%w: processed %d of %d nodes, unresolved %v", ErrCycle, visited, len(nodes), stuck)
	}
	return levels, nil
}
