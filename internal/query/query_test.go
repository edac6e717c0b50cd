package query

import "testing"

func TestNormalizePage_DefaultsWhenZero(t *testing.T) {
	limit, offset := normalizePage(0, 0, 20, 100)
	if limit != 20 {
		t.Errorf("limit = %d, want 20", limit)
	}
	if offset != 0 {
		t.Errorf("offset = %d, want 0", offset)
	}
}

func TestNormalizePage_ClampsAboveMax(t *testing.T) {
	limit, _ := normalizePage(500, 0, 20, 100)
	if limit != 100 {
		t.Errorf("limit = %d, want 100 (clamped)", limit)
	}
}

func TestNormalizePage_NegativeOffsetClampedToZero(t *testing.T) {
	_, offset := normalizePage(20, -5, 20, 100)
	if offset != 0 {
		t.Errorf("offset = %d, want 0", offset)
	}
}

func TestNormalizePage_PassesThroughValidValues(t *testing.T) {
	limit, offset := normalizePage(50, 10, 20, 100)
	if limit != 50 || offset != 10 {
		t.Errorf("got (%d, %d), want (50, 10)", limit, offset)
	}
}
