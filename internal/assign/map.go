package assign

import "github.com/sells-group/catchment/internal/model"

// Map holds the places assigned to each facility, keyed by facility name.
// Facilities keep the order in which they were registered.
type Map struct {
	order  []string
	places map[string][]model.Place
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{places: make(map[string][]model.Place)}
}

// Register adds a facility key with no places. Registering a name twice is a no-op.
func (m *Map) Register(facility string) {
	if _, ok := m.places[facility]; ok {
		return
	}
	m.order = append(m.order, facility)
	m.places[facility] = []model.Place{}
}

// Append records place under facility, registering the facility if needed.
func (m *Map) Append(facility string, place model.Place) {
	m.Register(facility)
	m.places[facility] = append(m.places[facility], place)
}

// Has reports whether facility is a key of the map.
func (m *Map) Has(facility string) bool {
	_, ok := m.places[facility]
	return ok
}

// Facilities returns the facility keys in registration order.
func (m *Map) Facilities() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Places returns the places assigned to facility in assignment order.
func (m *Map) Places(facility string) []model.Place {
	ps := m.places[facility]
	out := make([]model.Place, len(ps))
	copy(out, ps)
	return out
}

// Len returns the number of facility keys.
func (m *Map) Len() int { return len(m.order) }

// Assigned returns the total number of places across all facilities.
func (m *Map) Assigned() int {
	n := 0
	for _, ps := range m.places {
		n += len(ps)
	}
	return n
}
