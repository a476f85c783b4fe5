package task

import "testing"

func TestUtf8Buffer_WholeRuneReleasedImmediately(t *testing.T) {
	var b utf8Buffer
	if got := b.push([]byte("hello")); got != "hello" {
		t.Fatalf("expected \"hello\", got %q", got)
	}
}

func TestUtf8Buffer_SplitMultiByteRuneHeldThenReleased(t *testing.T) {
	var b utf8Buffer
	euro := []byte("€") // 3-byte UTF-8 rune
	if got := b.push(euro[:1]); got != "" {
		t.Fatalf("expected nothing released for a partial rune, got %q", got)
	}
	if got := b.push(euro[1:2]); got != "" {
		t.Fatalf("expected nothing released for a still-partial rune, got %q", got)
	}
	if got := b.push(euro[2:]); got != "€" {
		t.Fatalf("expected the completed rune, got %q", got)
	}
}

func TestUtf8Buffer_MixesWholeAndPendingBytes(t *testing.T) {
	var b utf8Buffer
	euro := []byte("€")
	mixed := append([]byte("ok"), euro[:2]...)
	got := b.push(mixed)
	if got != "ok" {
		t.Fatalf("expected the whole leading runes to release and the partial rune to stay buffered, got %q", got)
	}
	if got := b.push(euro[2:]); got != "€" {
		t.Fatalf("expected the completed rune on the next push, got %q", got)
	}
}
