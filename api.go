package archetypedb

import "reflect"

// SetComponent sets the (namespace, component) value for e, adding the
// column to e's archetype and relocating its row if e does not already
// carry that component (spec.md §4.2/§6). The component must already be
// registered against s's Registry via Register[T] or Registry.Declare.
func SetComponent[T any](s *EntityStore, e EntityId, namespace, component string, value T) error {
	desc, ok := s.registry.Lookup(namespace, component)
	if !ok {
		return fmtComponentNotRegistered(columnName(namespace, component))
	}
	checkToken(desc.Name, desc.Token, TypeToken{rt: reflect.TypeOf(value)})
	return s.setComponentRaw(e, desc, value)
}

// GetComponent retrieves the (namespace, component) value for e. A
// missing component is not an error: ok is false and err is nil. An
// unknown entity id or an unregistered component pair are errors.
func GetComponent[T any](s *EntityStore, e EntityId, namespace, component string) (value T, ok bool, err error) {
	desc, registered := s.registry.Lookup(namespace, component)
	if !registered {
		return value, false, fmtComponentNotRegistered(columnName(namespace, component))
	}
	raw, present, err := s.getComponentRaw(e, desc)
	if err != nil || !present {
		return value, false, err
	}
	return raw.(T), true, nil
}

// RemoveComponent removes the (namespace, component) column from e's
// archetype if present; a no-op otherwise (spec.md §4.2/§7).
func RemoveComponent(s *EntityStore, e EntityId, namespace, component string) error {
	desc, ok := s.registry.Lookup(namespace, component)
	if !ok {
		return fmtComponentNotRegistered(columnName(namespace, component))
	}
	return s.removeComponentRaw(e, desc.Name)
}
