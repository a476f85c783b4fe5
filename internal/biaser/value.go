package biaser

import (
	"strconv"
	"strings"

	"llmhostd/pkg/types"
)

// value is one node of the recursive-descent grammar automaton driving a
// json_schema task's generation. Each implementation mirrors one branch
// of the schema-parser state machine the original implementation built
// per JSON token (poly-bias's JsonParserState); here the same states are
// driven one byte at a time so they can be intersected with a
// tokenizer.Trie instead of re-scanning the whole vocabulary per step.
//
// step attempts to consume byte b, returning the state reached and
// whether b was accepted. canEnd reports whether the value is already a
// complete, valid instance of its schema — generation may stop here, but
// (for numbers and containers) further bytes may still be accepted too.
type value interface {
	step(b byte) (value, bool)
	canEnd() bool
}

// isLayoutWhitespace reports whether b is one of the four bytes JSON
// permits between structural tokens (object/array delimiters, key/value
// separators). Tasks configured with Compact never offer these, keeping
// generation byte-for-byte minimal; otherwise the automaton loops on
// them at every structural boundary without advancing the grammar.
func isLayoutWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// newValue dispatches on the schema's declared type, mirroring
// JsonParserState::Start. compact is threaded down from the owning
// JSONBiaser so every nested value agrees on whitespace admission.
func newValue(schema *types.BiaserSchema, compact bool) value {
	return startValue{schema: schema, compact: compact}
}

// newTopLevelValue is newValue for the outermost value, which never
// admits leading whitespace: the generated text starts with the value
// itself.
func newTopLevelValue(schema *types.BiaserSchema, compact bool) value {
	return startValue{schema: schema, compact: compact, top: true}
}

type startValue struct {
	schema  *types.BiaserSchema
	compact bool
	top     bool
}

func (s startValue) canEnd() bool { return false }

func (s startValue) step(b byte) (value, bool) {
	if !s.compact && !s.top && isLayoutWhitespace(b) {
		return s, true
	}
	switch s.schema.Type {
	case "boolean":
		switch b {
		case 't':
			return literalValue{literal: "true", pos: 1}, true
		case 'f':
			return literalValue{literal: "false", pos: 1}, true
		}
		return s, false
	case "null":
		if b == 'n' {
			return literalValue{literal: "null", pos: 1}, true
		}
		return s, false
	case "object":
		if b == '{' {
			return newObjectValue(s.schema, s.compact), true
		}
		return s, false
	case "array":
		if b == '[' {
			return arrayValue{schema: s.schema, items: 0, compact: s.compact, child: newValue(s.schema.Items, s.compact)}, true
		}
		return s, false
	case "string":
		if b == '"' {
			return stringValue{schema: s.schema}, true
		}
		return s, false
	case "number":
		if b == '-' {
			if !negativeAllowed(s.schema) {
				return s, false
			}
			return numberValue{schema: s.schema, buf: "-"}, true
		}
		if !isLeadingDigit(b) {
			return s, false
		}
		nv := numberValue{schema: s.schema, buf: string(b)}
		if !nv.withinBounds(nv.buf) {
			return s, false
		}
		return nv, true
	}
	return s, false
}

// literalValue matches a fixed keyword byte by byte (true/false/null).
type literalValue struct {
	literal string
	pos     int
}

func (l literalValue) step(b byte) (value, bool) {
	if l.pos >= len(l.literal) || l.literal[l.pos] != b {
		return l, false
	}
	return literalValue{literal: l.literal, pos: l.pos + 1}, true
}

func (l literalValue) canEnd() bool { return l.pos == len(l.literal) }

// doneValue is a terminal state: the value is complete and accepts no
// further bytes, matching JsonParserState::End.
type doneValue struct{}

func (doneValue) step(byte) (value, bool) { return doneValue{}, false }
func (doneValue) canEnd() bool            { return true }

func isLeadingDigit(b byte) bool { return b >= '1' && b <= '9' }
func isDigit(b byte) bool        { return b >= '0' && b <= '9' }

// negativeAllowed mirrors the original's leading-minus heuristic: a
// negative value is offered unless both bounds are set and non-negative.
func negativeAllowed(schema *types.BiaserSchema) bool {
	minNeg := schema.Min == nil || *schema.Min < 0
	maxNeg := schema.Max == nil || *schema.Max < 0
	return minNeg || maxNeg
}

// numberValue accumulates a JSON number literal. min/max are enforced by
// simulating each candidate digit and checking the resulting value, the
// way the original implementation's next_valid_tokens retains only
// digits that keep the literal within bounds; max_decimals is enforced
// by counting digits after the point. A leading zero is never offered
// (matching the original's "first digit cannot be zero" rule), so a bare
// zero value is inexpressible — a known, inherited limitation.
type numberValue struct {
	schema *types.BiaserSchema
	buf    string
}

func (n numberValue) step(b byte) (value, bool) {
	if b == '.' {
		if strings.Contains(n.buf, ".") || n.buf == "" || n.buf == "-" {
			return n, false
		}
		if n.schema.MaxDecimals != nil && *n.schema.MaxDecimals == 0 {
			return n, false
		}
		return numberValue{schema: n.schema, buf: n.buf + "."}, true
	}
	if b == '-' {
		if n.buf != "" {
			return n, false
		}
		return numberValue{schema: n.schema, buf: "-"}, true
	}
	if !isDigit(b) {
		return n, false
	}
	if dotIdx := strings.IndexByte(n.buf, '.'); dotIdx >= 0 {
		decimals := len(n.buf) - dotIdx - 1
		if n.schema.MaxDecimals != nil && decimals >= *n.schema.MaxDecimals {
			return n, false
		}
	} else if (n.buf == "" || n.buf == "-") && b == '0' {
		return n, false
	}
	candidate := n.buf + string(b)
	if !n.withinBounds(candidate) {
		return n, false
	}
	return numberValue{schema: n.schema, buf: candidate}, true
}

func (n numberValue) withinBounds(candidate string) bool {
	v, err := strconv.ParseFloat(candidate, 64)
	if err != nil {
		return true // incomplete literal (e.g. "-"); bounds checked once parseable
	}
	if n.schema.Max != nil && v > *n.schema.Max {
		return false
	}
	if n.schema.Min != nil && v < *n.schema.Min {
		return false
	}
	return true
}

func (n numberValue) canEnd() bool {
	return n.buf != "" && n.buf != "-" && !strings.HasSuffix(n.buf, ".")
}

// stringValue accumulates string content between quotes. Escape
// sequences are not supported (neither was that in poly-bias's
// JsonToken::from_text), so a backslash is simply rejected; control
// bytes that would make the literal invalid JSON are rejected too.
type stringValue struct {
	schema *types.BiaserSchema
	buf    string
	closed bool
}

func (s stringValue) step(b byte) (value, bool) {
	if s.closed {
		return s, false
	}
	if b == '"' {
		if len(s.schema.Enum) > 0 && !contains(s.schema.Enum, s.buf) {
			return s, false
		}
		return stringValue{schema: s.schema, buf: s.buf, closed: true}, true
	}
	if b == '\\' || b < 0x20 {
		return s, false
	}
	next := s.buf + string(b)
	if s.schema.MaxLength != nil && len(next) > *s.schema.MaxLength {
		return s, false
	}
	if len(s.schema.Enum) > 0 && !hasEnumPrefix(s.schema.Enum, next) {
		return s, false
	}
	return stringValue{schema: s.schema, buf: next}, true
}

func (s stringValue) canEnd() bool { return s.closed }

func contains(vals []string, v string) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}

func hasEnumPrefix(vals []string, prefix string) bool {
	for _, v := range vals {
		if strings.HasPrefix(v, prefix) {
			return true
		}
	}
	return false
}

// arrayValue delegates to the current item's value machine, and on
// comma/close decides whether another item may start or the array may
// end, per min_items/max_items — mirroring JsonParserState::InArray.
type arrayValue struct {
	schema  *types.BiaserSchema
	items   int
	compact bool
	child   value
}

func (a arrayValue) step(b byte) (value, bool) {
	if nc, ok := a.child.step(b); ok {
		return arrayValue{schema: a.schema, items: a.items, compact: a.compact, child: nc}, true
	}
	if !a.child.canEnd() {
		return a, false
	}
	if !a.compact && isLayoutWhitespace(b) {
		return a, true
	}
	finished := a.items + 1
	switch b {
	case ',':
		if a.schema.MaxItems != nil && finished >= *a.schema.MaxItems {
			return a, false
		}
		return arrayValue{schema: a.schema, items: finished, compact: a.compact, child: newValue(a.schema.Items, a.compact)}, true
	case ']':
		min := 0
		if a.schema.MinItems != nil {
			min = *a.schema.MinItems
		}
		if finished < min {
			return a, false
		}
		return doneValue{}, true
	}
	return a, false
}

func (a arrayValue) canEnd() bool { return false }

// objectPart tracks where within one key/value pair the parser is.
type objectPart int

const (
	objBeforeKey objectPart = iota
	objInKey
	objAfterKey
	objInValue
)

// objectValue mirrors JsonParserObjectState, generalized to accept any
// declared property (required or optional) rather than only the
// required keys in declaration order — the original's InKey transition
// only ever offers the next unmet required key as a candidate, which
// makes optional properties ungenerateable. Key bytes are admitted only
// while they continue the name of a declared property that has not been
// emitted yet, and a comma only while such a property remains.
type objectValue struct {
	schema    *types.BiaserSchema
	part      objectPart
	keyBuf    string
	curKey    string
	child     value
	satisfied map[string]bool
	compact   bool
}

func newObjectValue(schema *types.BiaserSchema, compact bool) objectValue {
	return objectValue{schema: schema, part: objBeforeKey, satisfied: map[string]bool{}, compact: compact}
}

func (o objectValue) remainingRequired(extraSatisfied string) int {
	n := 0
	for _, r := range o.schema.Required {
		if o.satisfied[r] || r == extraSatisfied {
			continue
		}
		n++
	}
	return n
}

func isKeyByte(b byte) bool {
	return b != '"' && b != '\\' && b != '\n' && b != '\t' && b != '\r'
}

// hasOpenPropertyPrefix reports whether some declared property that has
// not been emitted yet starts with prefix.
func (o objectValue) hasOpenPropertyPrefix(prefix string) bool {
	for name := range o.schema.Properties {
		if !o.satisfied[name] && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (o objectValue) step(b byte) (value, bool) {
	switch o.part {
	case objBeforeKey:
		if !o.compact && isLayoutWhitespace(b) {
			return o, true
		}
		if b == '"' {
			return objectValue{schema: o.schema, part: objInKey, satisfied: o.satisfied, compact: o.compact}, true
		}
		// '}' may close an empty object only; after a comma a key must follow.
		if b == '}' && len(o.satisfied) == 0 && o.remainingRequired("") == 0 {
			return doneValue{}, true
		}
		return o, false

	case objInKey:
		if b == '"' {
			if _, ok := o.schema.Properties[o.keyBuf]; !ok {
				return o, false
			}
			if o.satisfied[o.keyBuf] {
				return o, false
			}
			return objectValue{schema: o.schema, part: objAfterKey, curKey: o.keyBuf, satisfied: o.satisfied, compact: o.compact}, true
		}
		if !isKeyByte(b) || !o.hasOpenPropertyPrefix(o.keyBuf+string(b)) {
			return o, false
		}
		return objectValue{schema: o.schema, part: objInKey, keyBuf: o.keyBuf + string(b), satisfied: o.satisfied, compact: o.compact}, true

	case objAfterKey:
		if !o.compact && isLayoutWhitespace(b) {
			return o, true
		}
		if b != ':' {
			return o, false
		}
		return objectValue{
			schema: o.schema, part: objInValue, curKey: o.curKey,
			child: newValue(o.schema.Properties[o.curKey], o.compact), satisfied: o.satisfied, compact: o.compact,
		}, true

	case objInValue:
		if nc, ok := o.child.step(b); ok {
			return objectValue{schema: o.schema, part: objInValue, curKey: o.curKey, child: nc, satisfied: o.satisfied, compact: o.compact}, true
		}
		if !o.child.canEnd() {
			return o, false
		}
		if !o.compact && isLayoutWhitespace(b) {
			return o, true
		}
		satisfied := cloneSatisfied(o.satisfied)
		satisfied[o.curKey] = true
		switch b {
		case ',':
			if len(satisfied) >= len(o.schema.Properties) {
				return o, false
			}
			return objectValue{schema: o.schema, part: objBeforeKey, satisfied: satisfied, compact: o.compact}, true
		case '}':
			if o.remainingRequiredWith(satisfied) == 0 {
				return doneValue{}, true
			}
			return o, false
		}
		return o, false
	}
	return o, false
}

func (o objectValue) remainingRequiredWith(satisfied map[string]bool) int {
	n := 0
	for _, r := range o.schema.Required {
		if !satisfied[r] {
			n++
		}
	}
	return n
}

func cloneSatisfied(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (o objectValue) canEnd() bool { return false }
