package biaser

import (
	"testing"

	"llmhostd/internal/tokenizer"
	"llmhostd/pkg/types"
)

func newTestVocabAndTrie() (*tokenizer.ByteVocab, *tokenizer.Trie) {
	v := tokenizer.NewByteVocab()
	return v, tokenizer.BuildTrie(v)
}

// decodeToEnd drives a biaser to completion by always picking the first
// admissible non-EOT token (or EOT once it appears), and returns the
// concatenated bytes it emitted.
func decodeToEnd(t *testing.T, b Biaser) []byte {
	t.Helper()
	v, _ := newTestVocabAndTrie()
	var out []byte
	for i := 0; i < 64; i++ {
		res, err := b.Admissible()
		if err != nil {
			t.Fatalf("admissible: %v", err)
		}
		if res.Kind == All {
			t.Fatalf("expected a constrained result, got All")
		}
		if len(res.Tokens) == 0 {
			t.Fatalf("admissible returned zero tokens without erroring")
		}
		// Prefer ending as soon as the grammar allows it, so grammars
		// that can repeat indefinitely (e.g. numbers) still terminate.
		id := res.Tokens[0]
		for _, candidate := range res.Tokens {
			if candidate == v.EOTToken() {
				id = candidate
				break
			}
		}
		if id == v.EOTToken() {
			if err := b.Advance(id); err != nil {
				t.Fatalf("advance eot: %v", err)
			}
			return out
		}
		out = append(out, v.DecodeToken(id)...)
		if err := b.Advance(id); err != nil {
			t.Fatalf("advance %d: %v", id, err)
		}
	}
	t.Fatalf("grammar did not terminate within 64 steps")
	return nil
}

func TestJSONBiaser_Boolean_OnlyProducesTrueOrFalse(t *testing.T) {
	v, trie := newTestVocabAndTrie()
	b := NewJSONBiaser(&types.BiaserSchema{Type: "boolean"}, v, trie, true)

	out := string(decodeToEnd(t, b))
	if out != "true" && out != "false" {
		t.Fatalf("expected \"true\" or \"false\", got %q", out)
	}
}

func TestJSONBiaser_Null_ProducesNull(t *testing.T) {
	v, trie := newTestVocabAndTrie()
	b := NewJSONBiaser(&types.BiaserSchema{Type: "null"}, v, trie, true)

	if out := string(decodeToEnd(t, b)); out != "null" {
		t.Fatalf("expected \"null\", got %q", out)
	}
}

// The first Admissible call of a number grammar must refuse a letter,
// which is not a legal start of a number — soundness rather than just
// completeness.
func TestJSONBiaser_Number_RejectsNonNumericByte(t *testing.T) {
	v, trie := newTestVocabAndTrie()
	b := NewJSONBiaser(&types.BiaserSchema{Type: "number"}, v, trie, true)

	res, err := b.Admissible()
	if err != nil {
		t.Fatalf("admissible: %v", err)
	}
	admissible := make(map[tokenizer.ID]bool, len(res.Tokens))
	for _, id := range res.Tokens {
		admissible[id] = true
	}

	letterA := tokenizer.ID('a') // single-byte token for 'a'
	if admissible[letterA] {
		t.Fatalf("a bare letter must never be admissible at the start of a number")
	}
}

// A schema-complete grammar must reject Advance once it is done.
func TestJSONBiaser_AdvanceAfterDone_Errors(t *testing.T) {
	v, trie := newTestVocabAndTrie()
	b := NewJSONBiaser(&types.BiaserSchema{Type: "boolean"}, v, trie, true)
	decodeToEnd(t, b)

	if err := b.Advance(v.EOTToken()); err == nil {
		t.Fatalf("expected an error advancing a completed grammar")
	}
}

// advanceBytes drives b through every byte of s, asserting at each step
// that the byte is actually reported admissible before accepting it —
// this exercises both completeness (the literal must be producible) and
// soundness (Advance must not be fed something the grammar would have
// refused).
func advanceBytes(t *testing.T, b Biaser, s string) {
	t.Helper()
	for i := 0; i < len(s); i++ {
		id := tokenizer.ID(s[i])
		res, err := b.Admissible()
		if err != nil {
			t.Fatalf("admissible before byte %d (%q): %v", i, s[i], err)
		}
		if !admissibleContains(res, id) {
			t.Fatalf("byte %q at position %d not admissible after %q", s[i], i, s[:i])
		}
		if err := b.Advance(id); err != nil {
			t.Fatalf("advance %q: %v", s[i], err)
		}
	}
}

func admissibleContains(res Result, id tokenizer.ID) bool {
	for _, c := range res.Tokens {
		if c == id {
			return true
		}
	}
	return false
}

func carsSchema() *types.BiaserSchema {
	return &types.BiaserSchema{
		Type:     "object",
		Required: []string{"fuel_type"},
		Properties: map[string]*types.BiaserSchema{
			"fuel_type": {Type: "string", Enum: []string{"benzine", "diesel", "electric", "lpg"}},
			"model":     {Type: "string"},
		},
	}
}

// Mirrors the "cars" schema scenario: every required field present, and
// the enum field restricted to its declared values.
func TestJSONBiaser_Object_RequiredEnumField(t *testing.T) {
	v, trie := newTestVocabAndTrie()
	b := NewJSONBiaser(carsSchema(), v, trie, true)

	advanceBytes(t, b, `{"fuel_type":"electric"}`)

	res, err := b.Admissible()
	if err != nil {
		t.Fatalf("admissible after closing brace: %v", err)
	}
	if res.Kind != Only || len(res.Tokens) != 1 || res.Tokens[0] != v.EOTToken() {
		t.Fatalf("expected only end-of-text admissible once the object is complete, got %+v", res)
	}
}

func TestJSONBiaser_Object_EnumRejectsUnlistedValue(t *testing.T) {
	v, trie := newTestVocabAndTrie()
	b := NewJSONBiaser(carsSchema(), v, trie, true)

	advanceBytes(t, b, `{"fuel_type":"`)

	res, err := b.Admissible()
	if err != nil {
		t.Fatalf("admissible: %v", err)
	}
	if admissibleContains(res, tokenizer.ID('x')) {
		t.Fatalf("a byte that cannot continue any enum value must not be admissible")
	}
}

// Regression test for the key-reuse bug: once a property's value has
// been emitted, the automaton must refuse to reopen that same key, so
// the first byte of its name is no longer admissible after the opening
// quote of the next key.
func TestJSONBiaser_Object_RejectsReemittingSatisfiedKey(t *testing.T) {
	v, trie := newTestVocabAndTrie()
	b := NewJSONBiaser(carsSchema(), v, trie, true)

	advanceBytes(t, b, `{"fuel_type":"electric",`)
	advanceBytes(t, b, `"`)

	res, err := b.Admissible()
	if err != nil {
		t.Fatalf("admissible: %v", err)
	}
	if admissibleContains(res, tokenizer.ID('f')) {
		t.Fatalf("starting an already-satisfied key must not be admissible")
	}

	// The still-unsatisfied "model" key must remain reachable from the
	// same position (i.e. this isn't a blanket key-typing lockout).
	b2 := NewJSONBiaser(carsSchema(), v, trie, true)
	advanceBytes(t, b2, `{"fuel_type":"electric","model":"Model 3"}`)
	res2, err := b2.Admissible()
	if err != nil {
		t.Fatalf("admissible: %v", err)
	}
	if res2.Kind != Only || len(res2.Tokens) != 1 || res2.Tokens[0] != v.EOTToken() {
		t.Fatalf("expected the object to be complete after both fields, got %+v", res2)
	}
}

func intPtr(n int) *int { return &n }

func TestJSONBiaser_Array_ClosesAtMaxItems(t *testing.T) {
	v, trie := newTestVocabAndTrie()
	schema := &types.BiaserSchema{
		Type:     "array",
		Items:    &types.BiaserSchema{Type: "number"},
		MinItems: intPtr(2),
		MaxItems: intPtr(2),
	}
	b := NewJSONBiaser(schema, v, trie, true)

	advanceBytes(t, b, "[1,2]")

	res, err := b.Admissible()
	if err != nil {
		t.Fatalf("admissible: %v", err)
	}
	if res.Kind != Only || len(res.Tokens) != 1 || res.Tokens[0] != v.EOTToken() {
		t.Fatalf("expected only end-of-text admissible once min/max items are met, got %+v", res)
	}
}

func TestJSONBiaser_String_EnumRestrictsToDeclaredValues(t *testing.T) {
	v, trie := newTestVocabAndTrie()
	schema := &types.BiaserSchema{Type: "string", Enum: []string{"red", "blue"}}
	b := NewJSONBiaser(schema, v, trie, true)

	advanceBytes(t, b, `"r`)
	res, err := b.Admissible()
	if err != nil {
		t.Fatalf("admissible: %v", err)
	}
	if admissibleContains(res, tokenizer.ID('x')) {
		t.Fatalf("a byte outside every enum value's remaining suffix must not be admissible")
	}
	if !admissibleContains(res, tokenizer.ID('e')) {
		t.Fatalf("the next byte of \"red\" must still be admissible")
	}
}

// Wiring check for BiaserSchema.Compact: whitespace between structural tokens is
// admissible unless the biaser was built in compact mode.
func TestJSONBiaser_Object_CompactFlagControlsWhitespace(t *testing.T) {
	v, trie := newTestVocabAndTrie()
	schema := carsSchema()

	loose := NewJSONBiaser(schema, v, trie, false)
	advanceBytes(t, loose, `{ "fuel_type" : "electric" }`)
	doneRes, err := loose.Admissible()
	if err != nil {
		t.Fatalf("admissible: %v", err)
	}
	if doneRes.Kind != Only || doneRes.Tokens[0] != v.EOTToken() {
		t.Fatalf("expected a non-compact biaser to still complete once the object closes, got %+v", doneRes)
	}

	compact := NewJSONBiaser(schema, v, trie, true)
	res, err := compact.Admissible()
	if err != nil {
		t.Fatalf("admissible: %v", err)
	}
	if admissibleContains(res, tokenizer.ID(' ')) {
		t.Fatalf("a compact biaser must never admit whitespace")
	}
}

func TestNullBiaser_NeverConstrains(t *testing.T) {
	b := NullBiaser{}
	res, err := b.Admissible()
	if err != nil {
		t.Fatalf("admissible: %v", err)
	}
	if res.Kind != All {
		t.Fatalf("expected Kind All, got %v", res.Kind)
	}
	if err := b.Advance(42); err != nil {
		t.Fatalf("advance: %v", err)
	}
}
