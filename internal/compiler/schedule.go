package compiler

import (
	"fmt"

	"github.com/rendis/edgraph/pkg/edgraph"
)

// CountIncomingEdges counts the resolved links on n's edge-significant inputs.
func CountIncomingEdges(n *edgraph.Node) int {
	count := 0
	for _, p := range n.Pins {
		if p == nil || p.Direction != edgraph.Input || !n.IsEdgeSignificant(p) {
			continue
		}
		for _, other := range p.LinkedTo() {
			if other != nil {
				count++
			}
		}
	}
	return count
}

// CreateExecutionSchedule orders nodes so every edge-significant link runs
// from an earlier node to a later one (Kahn's algorithm). Ready nodes are
// taken first-in first-out, seeded in node order, so equal input always
// yields the same schedule. Cycles and bookkeeping inconsistencies are logged
// and produce a nil schedule.
func (c *Context) CreateExecutionSchedule(nodes []*edgraph.Node) []*edgraph.Node {
	incoming := make(map[*edgraph.Node]int, len(nodes))
	order := make([]*edgraph.Node, 0, len(nodes))
	total := 0
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if _, dup := incoming[n]; dup {
			continue
		}
		count := CountIncomingEdges(n)
		incoming[n] = count
		order = append(order, n)
		total += count
	}

	queue := make([]*edgraph.Node, 0, len(order))
	for _, n := range order {
		if incoming[n] == 0 {
			queue = append(queue, n)
		}
	}

	schedule := make([]*edgraph.Node, 0, len(order))
	for head := 0; head < len(queue); head++ {
		n := queue[head]
		schedule = append(schedule, n)

		for _, p := range n.Pins {
			if p == nil || p.Direction != edgraph.Output || !n.IsEdgeSignificant(p) {
				continue
			}
			for _, other := range p.LinkedTo() {
				if other == nil || other.Direction != edgraph.Input {
					continue
				}
				target := other.OwningNode()
				if target == nil || !target.IsEdgeSignificant(other) {
					continue
				}
				count, tracked := incoming[target]
				if !tracked {
					continue
				}
				if count <= 0 {
					c.Log.ErrorCode(edgraph.ErrCodeScheduleInconsistent,
						"Internal compiler error: incoming edge count of @@ dropped below zero", target)
					return nil
				}
				incoming[target] = count - 1
				total--
				if count == 1 {
					queue = append(queue, target)
				}
			}
		}
	}

	remaining, stuck := 0, 0
	for _, n := range order {
		if count := incoming[n]; count > 0 {
			c.Log.ErrorCode(edgraph.ErrCodeCycleDetected,
				"Dependency cycle detected, preventing node @@ from being scheduled", n)
			remaining += count
			stuck++
		}
	}
	if remaining != total {
		c.Log.ErrorCode(edgraph.ErrCodeScheduleInconsistent, fmt.Sprintf(
			"Internal compiler error: %d edges left unscheduled but node counts sum to %d", total, remaining))
		return nil
	}
	if stuck > 0 {
		return nil
	}
	c.Logger.Debug("schedule created", "nodes", len(schedule))
	return schedule
}

// ComputeLevels groups a schedule by dependency depth: level 0 holds nodes
// without scheduled predecessors, level k nodes whose deepest predecessor is
// on level k-1. Nodes keep their schedule order within a level.
func ComputeLevels(schedule []*edgraph.Node) [][]*edgraph.Node {
	depth := make(map[*edgraph.Node]int, len(schedule))
	for _, n := range schedule {
		depth[n] = 0
	}
	maxDepth := -1
	for _, n := range schedule {
		d := 0
		for _, p := range n.Pins {
			if p == nil || p.Direction != edgraph.Input || !n.IsEdgeSignificant(p) {
				continue
			}
			for _, other := range p.LinkedTo() {
				if other == nil || other.OwningNode() == nil {
					continue
				}
				if pd, ok := depth[other.OwningNode()]; ok && other.OwningNode() != n && pd+1 > d {
					d = pd + 1
				}
			}
		}
		depth[n] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	levels := make([][]*edgraph.Node, maxDepth+1)
	for _, n := range schedule {
		levels[depth[n]] = append(levels[depth[n]], n)
	}
	return levels
}
