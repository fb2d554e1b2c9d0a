// Package stream defines the outbound text channel for a turn. Chunks are
// delivered in emission order from a single goroutine; implementations need
// no internal synchronisation for ordering.
package stream

// ChunkSink receives incremental response text as the turn produces it.
type ChunkSink interface {
	Emit(chunk string)
}

// ChunkFunc adapts a plain function to a ChunkSink.
type ChunkFunc func(chunk string)

func (f ChunkFunc) Emit(chunk string) {
	f(chunk)
}

// Discard drops every chunk. Useful when the caller only wants the final text.
var Discard ChunkSink = ChunkFunc(func(string) {})

// Buffer collects chunks in order, mainly for tests and non-streaming callers.
type Buffer struct {
	Chunks []string
}

func (b *Buffer) Emit(chunk string) {
	b.Chunks = append(b.Chunks, chunk)
}

// String returns the concatenation of everything emitted so far.
func (b *Buffer) String() string {
	var out string
	for _, c := range b.Chunks {
		out += c
	}
	return out
}
