package tokenizer

// ByteVocab is a byte-level View: every possible byte value is its own
// token, plus a handful of common multi-byte literals (JSON keywords and
// digits) so a biaser driven against it exercises tokens that straddle
// grammar boundaries, and a trailing end-of-text token. It backs the
// in-memory mock inference session used by tests and default builds.
type ByteVocab struct {
	tokens [][]byte
	eot    ID
}

// commonLiterals are indexed after the 256 single-byte tokens so the
// trie/automaton intersection in the biaser has to consider tokens whose
// decoded bytes span several grammar-automaton transitions, matching the
// "token fragments that straddle structural boundaries" edge case.
var commonLiterals = []string{
	"true", "false", "null",
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
	"10", "ue", "al", "se", "ll",
	"\": ", "\",", "},", "],", "{}", "[]",
}

// NewByteVocab constructs the 256-byte-plus-literals vocabulary.
func NewByteVocab() *ByteVocab {
	v := &ByteVocab{}
	for b := 0; b < 256; b++ {
		v.tokens = append(v.tokens, []byte{byte(b)})
	}
	for _, lit := range commonLiterals {
		v.tokens = append(v.tokens, []byte(lit))
	}
	v.eot = ID(len(v.tokens))
	v.tokens = append(v.tokens, []byte{}) // EOT decodes to no bytes
	return v
}

func (v *ByteVocab) VocabSize() int { return len(v.tokens) }

func (v *ByteVocab) DecodeToken(id ID) []byte {
	if int(id) < 0 || int(id) >= len(v.tokens) {
		return nil
	}
	return v.tokens[id]
}

func (v *ByteVocab) EOTToken() ID { return v.eot }

// Encode performs a greedy longest-match tokenization against the
// literal table, falling back to single bytes. It exists so tests and
// the mock session can round-trip text, not for production use.
func (v *ByteVocab) Encode(text string) []ID {
	byIndex := make(map[string]ID, len(v.tokens))
	maxLen := 0
	for i, tok := range v.tokens {
		if len(tok) > 1 {
			byIndex[string(tok)] = ID(i)
			if len(tok) > maxLen {
				maxLen = len(tok)
			}
		}
	}
	b := []byte(text)
	var out []ID
	for i := 0; i < len(b); {
		matched := false
		for l := maxLen; l >= 2; l-- {
			if i+l > len(b) {
				continue
			}
			if id, ok := byIndex[string(b[i:i+l])]; ok {
				out = append(out, id)
				i += l
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		out = append(out, ID(b[i]))
		i++
	}
	return out
}
