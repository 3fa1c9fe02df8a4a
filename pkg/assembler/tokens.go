package assembler

import (
	"github.com/weaviate/tiktoken-go"
)

// estimator counts tokens for budget enforcement. The cl100k_base encoding
// is a close enough proxy for the models this targets; when it cannot be
// constructed a bytes/4 heuristic stands in.
type estimator struct {
	encoding *tiktoken.Tiktoken
}

func newEstimator() *estimator {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return &estimator{}
	}
	return &estimator{encoding: enc}
}

// Count returns the estimated token count for text.
func (e *estimator) Count(text string) int {
	if e.encoding == nil {
		return len(text) / 4
	}
	return len(e.encoding.Encode(text, nil, nil))
}
