package utils

import "testing"

func TestClampLimit(t *testing.T) {
	cases := []struct {
		limit int
		want  int
	}{
		// non-positive -> default
		{0, DefaultPageSize},
		{-5, DefaultPageSize},
		// in range -> unchanged
		{1, 1},
		{MaxPageSize, MaxPageSize},
		// above cap -> capped
		{MaxPageSize + 1, MaxPageSize},
		{1 << 20, MaxPageSize},
	}

	for _, tc := range cases {
		if got := ClampLimit(tc.limit); got != tc.want {
			t.Fatalf("ClampLimit(%d) = %d; want %d", tc.limit, got, tc.want)
		}
	}
}

func TestNormalizePage(t *testing.T) {
	cases := []struct {
		offset, limit         int
		wantOffset, wantLimit int
	}{
		{0, 0, 0, DefaultPageSize},
		{-1, 10, 0, 10},
		{100, -3, 100, DefaultPageSize},
		{5, MaxPageSize * 2, 5, MaxPageSize},
	}

	for _, tc := range cases {
		gotOffset, gotLimit := NormalizePage(tc.offset, tc.limit)
		if gotOffset != tc.wantOffset || gotLimit != tc.wantLimit {
			t.Fatalf("NormalizePage(%d, %d) = (%d, %d); want (%d, %d)",
				tc.offset, tc.limit, gotOffset, gotLimit, tc.wantOffset, tc.wantLimit)
		}
	}
}
