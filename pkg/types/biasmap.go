package types

import "math"

// Forbidden is the additive logit bias meaning "never sample this
// token", per spec.md's BiasMap definition (negative infinity).
var Forbidden = math.Inf(-1)

// BiasMap is a sparse, ephemeral per-sampling-step mapping from token id
// to an additive logit bias. Token ids are int32 vocabulary entries;
// kept untyped here (rather than importing the tokenizer package) to
// avoid a dependency cycle between types and tokenizer.
type BiasMap map[int32]float64

// Allow returns a BiasMap that permits exactly the given token ids and
// forbids everything else by omission — callers sampling against it
// should treat ids absent from the map as forbidden when a restrictive
// bias is in effect.
func Allow(ids []int32) BiasMap {
	m := make(BiasMap, len(ids))
	for _, id := range ids {
		m[id] = 0
	}
	return m
}
