// Profiling:
// go build ./cmd/archprofile/query
// go tool pprof -http=":8000" -nodefraction=0.001 ./query mem.prof

package main

import (
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/edwinsyarief/archetypedb"
)

func main() {
	f, _ := os.Create("cpu.prof")
	_ = pprof.StartCPUProfile(f)
	defer pprof.StopCPUProfile()

	count := 50
	iters := 10000
	entities := 100000
	run(count, iters, entities)

	memFile, _ := os.Create("mem.prof")
	defer memFile.Close()
	runtime.GC()
	_ = pprof.WriteHeapProfile(memFile)
}

// run builds a single six-component archetype up front, then repeatedly
// scans it end to end through a QueryIterator, exercising the roaring
// bitmap fast path table.go's presence set feeds query.go's matches.
func run(rounds, iters, numEntities int) {
	for range rounds {
		registry := archetypedb.NewRegistry()
		names := [6]string{"c1", "c2", "c3", "c4", "c5", "c6"}
		for _, n := range names {
			registry.Declare("bench", n, float64(0))
		}

		store := archetypedb.NewEntityStore(registry)
		for range numEntities {
			e, err := store.New()
			if err != nil {
				panic(err)
			}
			for _, n := range names {
				if err := archetypedb.SetComponent(store, e, "bench", n, 1.0); err != nil {
					panic(err)
				}
			}
		}

		group := make([]string, len(names))
		for i, n := range names {
			group[i] = archetypedb.Component("bench", n)
		}
		query := archetypedb.AllOf(group)

		for range iters {
			it, err := store.Query(query)
			if err != nil {
				panic(err)
			}
			for it.Next() {
				_ = it.Table().Len()
			}
		}
	}
}
