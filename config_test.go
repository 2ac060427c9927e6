package archetypedb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const testSchemaYAML = `
namespaces:
  game:
    components:
      pos: float64
      vel: float64
      name: string
  render:
    components:
      layer: int32
`

func TestParseAndApplyComponentSchema(t *testing.T) {
	schema, err := ParseComponentSchema([]byte(testSchemaYAML))
	require.NoError(t, err)

	r := NewRegistry()
	require.NoError(t, schema.Apply(r))

	pos, ok := r.Lookup("game", "pos")
	require.True(t, ok)
	require.Equal(t, "float64", pos.Token.rt.Kind().String())

	layer, ok := r.Lookup("render", "layer")
	require.True(t, ok)
	require.Equal(t, "int32", layer.Token.rt.Kind().String())
}

func TestApplyComponentSchemaUnknownKind(t *testing.T) {
	schema, err := ParseComponentSchema([]byte(`
namespaces:
  game:
    components:
      pos: vector3
`))
	require.NoError(t, err)

	r := NewRegistry()
	err = schema.Apply(r)
	require.Error(t, err)
}

func TestApplyComponentSchemaFeedsEntityStore(t *testing.T) {
	schema, err := ParseComponentSchema([]byte(testSchemaYAML))
	require.NoError(t, err)

	r := NewRegistry()
	require.NoError(t, schema.Apply(r))
	s := NewEntityStore(r)

	e, err := s.New()
	require.NoError(t, err)
	require.NoError(t, SetComponent(s, e, "game", "pos", 1.0))

	v, ok, err := GetComponent[float64](s, e, "game", "pos")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1.0, v)
}
