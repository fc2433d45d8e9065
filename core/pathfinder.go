package core

import "github.com/signalsfoundry/traffic-simulator/model"

// PathFinder computes shortest routes over a RoadNetwork with
// breadth-first search. All road steps cost the same, so BFS yields a
// shortest path in O(cells) time and memory.
type PathFinder struct {
	Network *RoadNetwork
}

// NewPathFinder returns a PathFinder over the given network.
func NewPathFinder(network *RoadNetwork) *PathFinder {
	return &PathFinder{Network: network}
}

// FindPath returns the shortest sequence of road cells from start to
// goal, inclusive of both endpoints, in travel order. An empty result
// means no path exists; unreachable goals are an ordinary outcome, not
// an error. When start equals goal the path is that single cell.
//
// Ties between equally short paths resolve by the network's fixed
// north, south, east, west neighbor order, so results are stable
// across runs.
func (pf *PathFinder) FindPath(start, goal model.Position) []model.Position {
	if pf == nil || pf.Network == nil {
		return nil
	}
	if !pf.Network.IsRoad(start) || !pf.Network.IsRoad(goal) {
		return nil
	}
	if start == goal {
		return []model.Position{start}
	}

	prev := make(map[model.Position]model.Position)
	visited := map[model.Position]struct{}{start: {}}
	queue := []model.Position{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == goal {
			break
		}
		for _, next := range pf.Network.Neighbors(cur) {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			prev[next] = cur
			queue = append(queue, next)
		}
	}

	if _, ok := prev[goal]; !ok {
		return nil
	}

	path := []model.Position{goal}
	for cur := goal; cur != start; {
		cur = prev[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
