package task

// sequence tracks how much of a literal byte string has been matched
// against a stream of decoded text chunks, ported directly from
// llmd/src/sequence.rs's Sequence: each call to advance either extends
// the match (the chunk continues the unmatched tail) or resets to zero.
type sequence struct {
	literal string
	state   int
}

func newSequence(literal string) *sequence { return &sequence{literal: literal} }

func (s *sequence) advance(chunk string) bool {
	if s.state >= len(s.literal) {
		return true
	}
	tail := s.literal[s.state:]
	if len(chunk) >= len(tail) {
		if chunk[:len(tail)] != tail {
			s.state = 0
			return s.isComplete()
		}
		s.state += len(tail)
	} else if tail[:len(chunk)] == chunk {
		s.state += len(chunk)
	} else {
		s.state = 0
	}
	return s.isComplete()
}

func (s *sequence) isComplete() bool { return s.state == len(s.literal) }

func (s *sequence) reset() { s.state = 0 }

// sequenceSet is llmd/src/sequence.rs's SequenceSet: a group of literals
// watched in parallel, used for both stop_sequences (stop generation
// once any completes) and private_tokens (swallow a chunk once any
// completes).
type sequenceSet struct {
	sequences []*sequence
}

func newSequenceSet(literals []string) *sequenceSet {
	seqs := make([]*sequence, len(literals))
	for i, l := range literals {
		seqs[i] = newSequence(l)
	}
	return &sequenceSet{sequences: seqs}
}

func (s *sequenceSet) reset() {
	for _, seq := range s.sequences {
		seq.reset()
	}
}

// pending reports whether any sequence currently has a partial match in
// progress. The runner uses this to hold back decoded text that might
// still turn into a private token instead of leaking it a chunk at a
// time the way stop-sequence matching does.
func (s *sequenceSet) pending() bool {
	for _, seq := range s.sequences {
		if seq.state > 0 {
			return true
		}
	}
	return false
}

// advance reports whether any sequence in the set is now complete
// (including the trivial case of an empty set, which is always
// "complete" — matching the original's "no sequences configured always
// returns true" behavior so callers don't need to special-case it).
func (s *sequenceSet) advance(chunk string) bool {
	if len(s.sequences) == 0 {
		return true
	}
	anyComplete := false
	for _, seq := range s.sequences {
		if seq.advance(chunk) {
			anyComplete = true
		}
	}
	return anyComplete
}
