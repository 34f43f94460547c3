package delivery

// ChunkState tracks one chunk through dispatch.
type ChunkState string

const (
	ChunkStatePending ChunkState = "PENDING"
	ChunkStateSending ChunkState = "SENDING"
	ChunkStateSent    ChunkState = "SENT"
	ChunkStatePartial ChunkState = "PARTIAL"
	ChunkStateFailed  ChunkState = "FAILED"
)

// Chunk is a bounded group of recipients sent together in one transport
// call. Chunks are owned by the dispatcher for the campaign's duration
// and only their aggregate counts outlive it.
type Chunk struct {
	Index       int
	Addresses   []string
	State       ChunkState
	Attempts    int
	SentCount   int
	FailedCount int
}

// PlanChunks partitions addresses into ordered chunks of at most
// chunkSize entries each; the last chunk may be smaller. The partition is
// deterministic: the same input always yields the same chunks and index
// assignment.
func PlanChunks(addresses []string, chunkSize int) ([]*Chunk, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}

	chunks := make([]*Chunk, 0, (len(addresses)+chunkSize-1)/chunkSize)
	for start := 0; start < len(addresses); start += chunkSize {
		end := start + chunkSize
		if end > len(addresses) {
			end = len(addresses)
		}
		chunks = append(chunks, &Chunk{
			Index:     len(chunks),
			Addresses: addresses[start:end],
			State:     ChunkStatePending,
		})
	}

	return chunks, nil
}
