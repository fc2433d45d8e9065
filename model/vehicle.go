package model

// Vehicle is a single car on the grid. Identity is fixed at creation;
// Position and Heading evolve tick by tick under the engine's movement
// rules. Destination and Route are optional: a vehicle without a route
// drives straight along its heading indefinitely.
type Vehicle struct {
	ID       int      `json:"id"`
	Position Position `json:"position"`
	Heading  Heading  `json:"heading"`

	// Destination is the cell the vehicle is routed toward, nil while
	// free-roaming.
	Destination *Position `json:"destination,omitempty"`

	// Route is the remaining path to Destination in travel order; the
	// head is the next cell to reach. Owned by the engine and never
	// shared between vehicles.
	Route []Position `json:"route,omitempty"`
}

// NextPosition returns the cell one step ahead along the current
// heading. It performs no bounds, signal, or occupancy checks; those
// are the engine's concern.
func (v *Vehicle) NextPosition() Position {
	return v.Position.Add(v.Heading)
}

// RouteHeading returns the heading toward the first route waypoint the
// vehicle has not yet reached. ok is false when no route remains or
// the next waypoint is not one cardinal step away; callers fall back
// to the current heading in that case.
func (v *Vehicle) RouteHeading() (Heading, bool) {
	for _, wp := range v.Route {
		if wp == v.Position {
			continue
		}
		return HeadingBetween(v.Position, wp)
	}
	return HeadingUnknown, false
}

// TrimRoute drops every waypoint up to and including the vehicle's
// current cell. Called after each committed move; a no-op when the
// vehicle is not on the route (held this tick, or roaming). Once the
// final waypoint is consumed the route is cleared and the vehicle
// reverts to free-roaming travel along its last heading.
func (v *Vehicle) TrimRoute() {
	for i, wp := range v.Route {
		if wp == v.Position {
			v.Route = v.Route[i+1:]
			if len(v.Route) == 0 {
				v.Route = nil
			}
			return
		}
	}
}
