package archetypedb

import (
	"fmt"
	"os"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"
)

// ComponentSchema is the YAML shape a Registry can be populated from,
// grounded on milk9111-sidescroller's prefabs.EntityBuildSpec pattern of
// decoding a fixed document into a typed spec, adapted here from "one
// document per prefab" to "one document per namespace of component
// declarations". Each namespace maps component names to a primitive kind
// name (see kindTypes).
type ComponentSchema struct {
	Namespaces map[string]NamespaceSchema `yaml:"namespaces"`
}

// NamespaceSchema is one namespace's component-name -> kind declarations.
type NamespaceSchema struct {
	Components map[string]string `yaml:"components"`
}

// kindTypes is the fixed vocabulary of primitive kinds a schema document
// may declare a component as. Struct-valued components have no textual
// kind name and must still be registered directly with Register[T] or
// Registry.Declare.
var kindTypes = map[string]reflect.Type{
	"bool":    reflect.TypeOf(false),
	"int":     reflect.TypeOf(int(0)),
	"int32":   reflect.TypeOf(int32(0)),
	"int64":   reflect.TypeOf(int64(0)),
	"uint32":  reflect.TypeOf(uint32(0)),
	"uint64":  reflect.TypeOf(uint64(0)),
	"float32": reflect.TypeOf(float32(0)),
	"float64": reflect.TypeOf(float64(0)),
	"string":  reflect.TypeOf(""),
}

// LoadComponentSchema reads and parses a component-schema YAML document
// from disk.
func LoadComponentSchema(path string) (ComponentSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ComponentSchema{}, fmt.Errorf("archetypedb: load schema %s: %w", path, err)
	}
	return ParseComponentSchema(data)
}

// ParseComponentSchema parses a component-schema YAML document already in
// memory.
func ParseComponentSchema(data []byte) (ComponentSchema, error) {
	var schema ComponentSchema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return ComponentSchema{}, fmt.Errorf("archetypedb: unmarshal schema: %w", err)
	}
	return schema, nil
}

// Apply declares every component the schema names against r, in namespace
// then component-name order for deterministic type-token assignment across
// runs given the same document. It fails on the first kind name it does
// not recognise.
func (schema ComponentSchema) Apply(r *Registry) error {
	for _, namespace := range sortedKeys(schema.Namespaces) {
		ns := schema.Namespaces[namespace]
		for _, component := range sortedKeys(ns.Components) {
			kind := ns.Components[component]
			rt, ok := kindTypes[kind]
			if !ok {
				return fmt.Errorf("archetypedb: namespace %q component %q: unknown kind %q", namespace, component, kind)
			}
			r.declare(columnName(namespace, component), rt)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
