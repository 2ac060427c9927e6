package archetypedb

import (
	"fmt"
	"reflect"
)

// TypeToken is a process-unique identifier for a Go type, used to detect
// mis-typed column accesses. Equality is by underlying reflect.Type alone —
// two tokens are equal iff they name the identical type. ord is carried
// only to give an otherwise-unordered set of tokens a stable total order
// (registration order) so that "columns sorted by type token ascending"
// (spec.md §3, invariant I1) is well defined. Components of the same Go
// type share one token, so the relative order of their columns is not
// defined.
type TypeToken struct {
	rt  reflect.Type
	ord uint32
}

func (t TypeToken) String() string {
	if t.rt == nil {
		return "<nil>"
	}
	return t.rt.String()
}

// Equal reports whether two tokens name the identical type.
func (t TypeToken) Equal(other TypeToken) bool {
	return t.rt == other.rt
}

// ComponentDescriptor is everything a column needs to know about the values
// it stores: the canonical column name, the type token used to police
// get/set calls, and the type's size and alignment.
type ComponentDescriptor struct {
	Name  string
	Token TypeToken
	Size  uintptr
	Align int
}

// idComponentName is the reserved column name of every table's entity-id
// column (spec.md §3, invariant I1).
const idComponentName = "id"

// Registry is the concrete, runtime population of the "component-set
// declaration mechanism" spec.md §6 names as an external collaborator: a
// namespaced map from (namespace, component) pairs to ComponentDescriptor.
// A Registry is shared by every EntityStore built from it; it is normally
// populated once, before any store using it is constructed.
type Registry struct {
	byType map[reflect.Type]TypeToken
	byName map[string]ComponentDescriptor
	nextOrd uint32
	idToken TypeToken
}

// NewRegistry creates an empty Registry with its reserved id column token
// already registered at ord 0, which is what makes "the id column sorts
// first" (spec.md §3, I1) hold without any special-casing elsewhere.
func NewRegistry() *Registry {
	r := &Registry{
		byType: make(map[reflect.Type]TypeToken),
		byName: make(map[string]ComponentDescriptor),
	}
	r.idToken = r.internType(reflect.TypeOf(EntityId(0)))
	return r
}

func (r *Registry) internType(rt reflect.Type) TypeToken {
	if tok, ok := r.byType[rt]; ok {
		return tok
	}
	tok := TypeToken{rt: rt, ord: r.nextOrd}
	r.nextOrd++
	r.byType[rt] = tok
	return tok
}

// columnName canonicalises a (namespace, component) pair per spec.md §6.
func columnName(namespace, component string) string {
	return namespace + "." + component
}

// Register declares a component of type T under (namespace, component) and
// returns its descriptor. Registering the same (namespace, component) pair
// twice with the same type T is idempotent; registering it with a
// different type panics, since that would silently change the meaning of
// every table already keyed by that column name.
func Register[T any](r *Registry, namespace, component string) ComponentDescriptor {
	var zero T
	return r.declare(columnName(namespace, component), reflect.TypeOf(zero))
}

// Declare is the runtime, non-generic front-door for populating a Registry
// (spec.md §9 design-notes option (b)): callers that only have a sample
// value in hand (e.g. a config-driven loader, see config.go) use this
// instead of the generic Register.
func (r *Registry) Declare(namespace, component string, sample any) ComponentDescriptor {
	return r.declare(columnName(namespace, component), reflect.TypeOf(sample))
}

func (r *Registry) declare(name string, rt reflect.Type) ComponentDescriptor {
	if existing, ok := r.byName[name]; ok {
		if existing.Token.rt != rt {
			panic(fmt.Sprintf("archetypedb: component %q already registered as %s, cannot re-register as %s",
				name, existing.Token.rt, rt))
		}
		return existing
	}
	tok := r.internType(rt)
	desc := ComponentDescriptor{
		Name:  name,
		Token: tok,
		Size:  rt.Size(),
		Align: rt.Align(),
	}
	r.byName[name] = desc
	return desc
}

// Lookup resolves a (namespace, component) pair to its descriptor.
func (r *Registry) Lookup(namespace, component string) (ComponentDescriptor, bool) {
	d, ok := r.byName[columnName(namespace, component)]
	return d, ok
}

// ordByName resolves a canonical column name straight to its type-token
// ordinal, without allocating a ComponentDescriptor — the fast path
// QueryIterator uses to build a roaring.Bitmap of required ords.
func (r *Registry) ordByName(name string) (uint32, bool) {
	if name == idComponentName {
		return r.idToken.ord, true
	}
	d, ok := r.byName[name]
	if !ok {
		return 0, false
	}
	return d.Token.ord, true
}

// idDescriptor is the always-present entity-id column descriptor for this
// registry's id type token.
func (r *Registry) idDescriptor() ComponentDescriptor {
	return ComponentDescriptor{
		Name:  idComponentName,
		Token: r.idToken,
		Size:  reflect.TypeOf(EntityId(0)).Size(),
		Align: reflect.TypeOf(EntityId(0)).Align(),
	}
}
