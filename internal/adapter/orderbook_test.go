package adapter

import "testing"

func TestBookMidRequiresBothSides(t *testing.T) {
	b := newBook()
	if _, ok := b.mid(); ok {
		t.Fatalf("empty book must have no mid")
	}

	b.applyBid("100", "1")
	if _, ok := b.mid(); ok {
		t.Fatalf("one-sided book must have no mid")
	}

	b.applyAsk("102", "2")
	mid, ok := b.mid()
	if !ok || mid != 101 {
		t.Fatalf("mid = %v, %v; want 101", mid, ok)
	}
}

func TestBookBestLevels(t *testing.T) {
	b := newBook()
	b.applyBid("100", "1")
	b.applyBid("99", "1")
	b.applyAsk("103", "1")
	b.applyAsk("104", "1")

	// Best bid is the highest bid, best ask the lowest ask.
	mid, ok := b.mid()
	if !ok || mid != 101.5 {
		t.Fatalf("mid = %v, %v; want 101.5", mid, ok)
	}
}

func TestBookZeroQuantityRemoves(t *testing.T) {
	b := newBook()
	b.applyBid("100", "1")
	b.applyBid("99", "1")
	b.applyAsk("102", "1")

	b.applyBid("100", "0")
	mid, ok := b.mid()
	if !ok || mid != 100.5 {
		t.Fatalf("mid after removal = %v, %v; want 100.5", mid, ok)
	}

	// Removing the same level again must be a no-op.
	b.applyBid("100", "0")
	mid, ok = b.mid()
	if !ok || mid != 100.5 {
		t.Fatalf("mid after repeated removal = %v, %v; want 100.5", mid, ok)
	}
}

func TestBookUnparseableQuantityRemoves(t *testing.T) {
	b := newBook()
	b.applyAsk("102", "1")
	b.applyAsk("102", "garbage")
	if len(b.asks) != 0 {
		t.Fatalf("unparseable quantity should remove the level, asks = %v", b.asks)
	}
}

func TestBookReset(t *testing.T) {
	b := newBook()
	b.applyBid("100", "1")
	b.applyAsk("102", "1")
	b.reset()
	if _, ok := b.mid(); ok {
		t.Fatalf("reset book must have no mid")
	}
}
