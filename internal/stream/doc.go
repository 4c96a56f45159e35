// Package stream wires the decoder to the channel buffer.
//
// Ownership boundary:
// - reader goroutine: transport -> sample.Decoder -> Queue
// - owner goroutine: Queue -> window.Buffer -> UpdateSink
// - bounded queue with an explicit overflow policy
//
// Records are applied in arrival order by exactly one goroutine. Sinks run
// on that goroutine and receive snapshot copies, never the live buffer.
package stream
