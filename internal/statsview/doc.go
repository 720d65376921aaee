// Package statsview serves live runtime graphs (goroutines, heap, GC pauses)
// next to the channel. It is only built with the statsview build tag:
//
//	go build -tags statsview ./cmd/slotmix
//
// After launch the graphs are at <addr>/debug/statsview and the standard
// pprof endpoints at <addr>/debug/pprof/. Without the tag Available reports
// false and Launch does nothing.
package statsview
