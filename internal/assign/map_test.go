package assign

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/catchment/internal/model"
)

func TestMap_RegisterIsIdempotent(t *testing.T) {
	m := NewMap()
	m.Register("A")
	m.Append("A", model.Place{ID: "1"})
	m.Register("A")

	assert.Equal(t, []string{"A"}, m.Facilities())
	assert.Len(t, m.Places("A"), 1)
}

func TestMap_AppendRegistersUnknownFacility(t *testing.T) {
	m := NewMap()
	m.Append("B", model.Place{ID: "1"})

	assert.True(t, m.Has("B"))
	assert.Equal(t, 1, m.Assigned())
}

func TestMap_PlacesReturnsCopy(t *testing.T) {
	m := NewMap()
	m.Append("A", model.Place{ID: "1"})

	ps := m.Places("A")
	ps[0].ID = "changed"

	assert.Equal(t, "1", m.Places("A")[0].ID)
}

func TestMap_UnknownFacility(t *testing.T) {
	m := NewMap()
	assert.False(t, m.Has("nope"))
	assert.Empty(t, m.Places("nope"))
}
