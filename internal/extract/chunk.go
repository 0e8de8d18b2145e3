package extract

// Default windowing parameters. 25k characters stays comfortably inside the
// model's context window; the 2k overlap lets a transaction split across a
// boundary appear whole in at least one chunk.
const (
	DefaultMaxChunkSize = 25000
	DefaultChunkOverlap = 2000
)

// Chunk is one bounded, possibly overlapping window of the statement text.
// Start and End are byte offsets into the preprocessed text.
type Chunk struct {
	Index   int
	Start   int
	End     int
	Content string
}

// SplitChunks windows text into chunks of at most maxSize bytes, each sliding
// forward by maxSize-overlap. Text that fits in a single window is returned
// as one chunk equal to the input. Chunk indices are assigned here and never
// reordered; the merge rules for account details and balance are defined in
// terms of this order.
func SplitChunks(text string, maxSize, overlap int) []Chunk {
	if maxSize <= 0 {
		maxSize = DefaultMaxChunkSize
	}
	if overlap < 0 || overlap >= maxSize {
		overlap = DefaultChunkOverlap
	}

	if len(text) <= maxSize {
		return []Chunk{{Index: 0, Start: 0, End: len(text), Content: text}}
	}

	step := maxSize - overlap
	chunks := make([]Chunk, 0, len(text)/step+1)
	for start := 0; start < len(text); start += step {
		end := start + maxSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, Chunk{
			Index:   len(chunks),
			Start:   start,
			End:     end,
			Content: text[start:end],
		})
	}

	return chunks
}
