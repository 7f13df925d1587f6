// Package chunker splits arbitrary-length text into overlapping fixed-size
// chunks with recorded source offsets.
//
// The split is a deterministic sliding window: with step = chunkSize -
// overlap, chunk i starts at byte i*step and covers up to chunkSize bytes.
// The final chunk may be shorter. Text no longer than chunkSize yields a
// single chunk equal to the whole text.
//
// # Reconstruction invariant
//
// Concatenating the first step bytes of every chunk (the last chunk in full)
// reproduces the source text exactly. The chunker never snaps to sentence or
// word boundaries; keeping the window math exact is what makes retrieval
// offsets trustworthy.
//
// # Usage
//
//	chunks, err := chunker.Split(backstory, 500, 50)
//	if err != nil {
//	    return err // invalid configuration, rejected at call time
//	}
//
// With chunkSize=500 and overlap=50 a 1000-byte text produces chunks at
// offsets [0,500), [450,950), [900,1000).
package chunker
