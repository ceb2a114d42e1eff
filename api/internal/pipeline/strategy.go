package pipeline

// Cost tiers. A document under DirectThreshold tokens goes to the final
// interpretation call as-is; between the thresholds it gets one
// pre-summarization round trip; above PresumThreshold it is split into
// ChunkTokenLimit-sized pieces that are summarized independently. The two
// thresholds trade one extra model round trip against staying under the
// chunk limit.
const (
	DirectThreshold = 10000
	PresumThreshold = 40000
	ChunkTokenLimit = 8000

	MaxDocumentBytes = 20 * 1024 * 1024
	PointsPerPage    = 50
)

type Strategy int

const (
	Direct Strategy = iota
	SinglePresummarize
	ChunkedPresummarize
)

func (s Strategy) String() string {
	switch s {
	case Direct:
		return "direct"
	case SinglePresummarize:
		return "single-presummarize"
	case ChunkedPresummarize:
		return "chunked-presummarize"
	}
	return "unknown"
}

func StrategyFor(tokens int) Strategy {
	switch {
	case tokens <= DirectThreshold:
		return Direct
	case tokens <= PresumThreshold:
		return SinglePresummarize
	default:
		return ChunkedPresummarize
	}
}
