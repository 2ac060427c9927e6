// Profiling:
// go build ./cmd/archprofile/entities
// go tool pprof -http=":8000" -nodefraction=0.001 ./entities mem.pprof

package main

import (
	"github.com/edwinsyarief/archetypedb"
	"github.com/pkg/profile"
)

func main() {
	count := 50
	iters := 10000
	entities := 1000
	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(count, iters, entities)
	p.Stop()
}

// run churns entities through an add-component/remove-component cycle
// repeatedly, exercising the schema-transition path (table.go's reserve,
// copyCell, swapRemoveDisplacing) under sustained allocation pressure.
func run(rounds, iters, numEntities int) {
	for range rounds {
		registry := archetypedb.NewRegistry()
		archetypedb.Register[float64](registry, "bench", "pos")
		archetypedb.Register[float64](registry, "bench", "vel")

		store := archetypedb.NewEntityStore(registry)
		ids := make([]archetypedb.EntityId, 0, numEntities)
		for range numEntities {
			e, err := store.New()
			if err != nil {
				panic(err)
			}
			ids = append(ids, e)
		}

		for range iters {
			for _, e := range ids {
				_ = archetypedb.SetComponent(store, e, "bench", "pos", 1.0)
				_ = archetypedb.SetComponent(store, e, "bench", "vel", 2.0)
			}
			for _, e := range ids {
				_ = archetypedb.RemoveComponent(store, e, "bench", "vel")
				_ = archetypedb.RemoveComponent(store, e, "bench", "pos")
			}
		}
		for _, e := range ids {
			_ = store.Remove(e)
		}
	}
}
