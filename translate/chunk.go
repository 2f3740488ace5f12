package translate

import "iter"

// DefaultChunkSize is the largest control transfer payload the anchor
// download sends at once.
const DefaultChunkSize = 64

// Chunk is one control transfer of a multi-chunk download.
type Chunk struct {
	Index  int
	Offset int // target address, base + Index*size
	Start  int // position in the payload
	Length int
}

// End returns the payload position just past the chunk.
func (c Chunk) End() int { return c.Start + c.Length }

// ChunkCount returns how many chunks a payload of payloadLen bytes splits
// into.
func ChunkCount(payloadLen, size int) int {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if payloadLen <= 0 {
		return 0
	}
	return (payloadLen + size - 1) / size
}

// Chunks yields the chunks of a payload in ascending order. Every chunk but
// the last is size bytes long; the last one carries the remainder. Stopping
// the iteration abandons the rest of the sequence.
func Chunks(base, payloadLen, size int) iter.Seq[Chunk] {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return func(yield func(Chunk) bool) {
		count := ChunkCount(payloadLen, size)
		for i := 0; i < count; i++ {
			length := size
			if i == count-1 && payloadLen%size != 0 {
				length = payloadLen % size
			}
			c := Chunk{Index: i, Offset: base + i*size, Start: i * size, Length: length}
			if !yield(c) {
				return
			}
		}
	}
}
