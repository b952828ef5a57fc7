package govoltcore

import (
	"math"
	"testing"
)

func TestFindSegments(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name    string
		voltage func() []float64
		current func(v []float64) []float64
		check   func(t *testing.T, segs []Segment)
	}{
		{
			name: "clean line yields qualifying segments",
			voltage: func() []float64 {
				return TriangleSweep(0.5, -0.5, 100)[:100]
			},
			current: func(v []float64) []float64 {
				return OhmicCurrent(v, 1e-5, 2e-6)
			},
			check: func(t *testing.T, segs []Segment) {
				if len(segs) == 0 {
					t.Fatal("expected segments on a clean line, got none")
				}
				for _, s := range segs {
					if s.R2 < cfg.R2Threshold {
						t.Errorf("segment [%d,%d] has R2 %.4f below threshold", s.StartIdx, s.EndIdx, s.R2)
					}
					if math.Abs(s.VoltageSpan) < cfg.MinSpan {
						t.Errorf("segment [%d,%d] has span %.4f below minimum", s.StartIdx, s.EndIdx, s.VoltageSpan)
					}
					if s.Length != s.EndIdx-s.StartIdx+1 {
						t.Errorf("segment [%d,%d] has inconsistent length %d", s.StartIdx, s.EndIdx, s.Length)
					}
				}
			},
		},
		{
			name: "constant voltage spans nothing",
			voltage: func() []float64 {
				v := make([]float64, 60)
				for i := range v {
					v[i] = 0.2
				}
				return v
			},
			current: func(v []float64) []float64 {
				return OhmicCurrent(v, 1e-5, 2e-6)
			},
			check: func(t *testing.T, segs []Segment) {
				if len(segs) != 0 {
					t.Errorf("expected no segments for zero voltage span, got %d", len(segs))
				}
			},
		},
		{
			name: "windows containing NaN are skipped",
			voltage: func() []float64 {
				return TriangleSweep(0.5, -0.5, 100)[:100]
			},
			current: func(v []float64) []float64 {
				c := OhmicCurrent(v, 1e-5, 2e-6)
				c[40] = math.NaN()
				return c
			},
			check: func(t *testing.T, segs []Segment) {
				if len(segs) == 0 {
					t.Fatal("expected segments away from the NaN sample")
				}
				for _, s := range segs {
					if s.StartIdx <= 40 && s.EndIdx >= 40 {
						t.Errorf("segment [%d,%d] contains the NaN sample", s.StartIdx, s.EndIdx)
					}
				}
			},
		},
		{
			name: "alternating current has no linear region",
			voltage: func() []float64 {
				return TriangleSweep(0.5, -0.5, 100)[:100]
			},
			current: func(v []float64) []float64 {
				c := make([]float64, len(v))
				for i := range c {
					if i%2 == 0 {
						c[i] = 1e-6
					} else {
						c[i] = -1e-6
					}
				}
				return c
			},
			check: func(t *testing.T, segs []Segment) {
				if len(segs) != 0 {
					t.Errorf("expected no segments for alternating current, got %d", len(segs))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.voltage()
			c := tt.current(v)
			tt.check(t, FindSegments(v, c, cfg))
		})
	}
}

func TestFindSegmentsDegenerateInput(t *testing.T) {
	cfg := DefaultConfig()

	if segs := FindSegments(nil, nil, cfg); len(segs) != 0 {
		t.Errorf("expected no segments for empty input, got %d", len(segs))
	}
	if segs := FindSegments([]float64{0.1, 0.2}, []float64{1, 2}, cfg); len(segs) != 0 {
		t.Errorf("expected no segments below MinLength, got %d", len(segs))
	}
	if segs := FindSegments([]float64{0.1, 0.2, 0.3}, []float64{1, 2}, cfg); len(segs) != 0 {
		t.Errorf("expected no segments for mismatched input, got %d", len(segs))
	}
}

func TestRemoveOverlaps(t *testing.T) {
	seg := func(start, end int, r2 float64) Segment {
		return Segment{StartIdx: start, EndIdx: end, Length: end - start + 1, R2: r2}
	}

	tests := []struct {
		name  string
		in    []Segment
		limit float64
		want  []Segment
	}{
		{
			name:  "near duplicate drops the worse fit",
			in:    []Segment{seg(0, 15, 0.98), seg(0, 19, 0.99), seg(30, 49, 0.97)},
			limit: 0.6,
			want:  []Segment{seg(0, 19, 0.99), seg(30, 49, 0.97)},
		},
		{
			name:  "disjoint segments all survive",
			in:    []Segment{seg(0, 9, 0.96), seg(20, 29, 0.97), seg(40, 49, 0.98)},
			limit: 0.6,
			want:  []Segment{seg(40, 49, 0.98), seg(20, 29, 0.97), seg(0, 9, 0.96)},
		},
		{
			name:  "partial overlap under the limit is allowed",
			in:    []Segment{seg(0, 19, 0.99), seg(10, 39, 0.98)},
			limit: 0.6,
			// 10 shared samples over the shorter length of 20 is exactly 0.5.
			want: []Segment{seg(0, 19, 0.99), seg(10, 39, 0.98)},
		},
		{
			name:  "equal R2 prefers the earlier enumerated segment",
			in:    []Segment{seg(0, 19, 0.99), seg(2, 21, 0.99)},
			limit: 0.6,
			want:  []Segment{seg(0, 19, 0.99)},
		},
		{
			name:  "empty input",
			in:    nil,
			limit: 0.6,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RemoveOverlaps(tt.in, tt.limit)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d segments, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i].StartIdx != tt.want[i].StartIdx || got[i].EndIdx != tt.want[i].EndIdx {
					t.Errorf("segment %d: expected [%d,%d], got [%d,%d]",
						i, tt.want[i].StartIdx, tt.want[i].EndIdx, got[i].StartIdx, got[i].EndIdx)
				}
			}
		})
	}
}

func TestRemoveOverlapsProperty(t *testing.T) {
	// Kept segments must never overlap each other beyond the limit,
	// measured against the shorter segment.
	v := TriangleSweep(0.5, -0.5, 200)
	c := OhmicCurrent(v, 1e-5, 2e-6)
	AddNoise(c, 1e-4, 7)

	cfg := DefaultConfig()
	kept := RemoveOverlaps(FindSegments(v, c, cfg), cfg.OverlapLimit)

	for i := range kept {
		for j := i + 1; j < len(kept); j++ {
			if r := overlapRatio(kept[i], kept[j]); r > cfg.OverlapLimit {
				t.Errorf("segments [%d,%d] and [%d,%d] overlap by %.2f",
					kept[i].StartIdx, kept[i].EndIdx, kept[j].StartIdx, kept[j].EndIdx, r)
			}
		}
	}
}

func TestRSquared(t *testing.T) {
	xs := []float64{0, 1, 2, 3, 4}

	perfect := []float64{1, 3, 5, 7, 9}
	if r2 := rSquared(xs, perfect, 2, 1); math.Abs(r2-1) > 1e-12 {
		t.Errorf("expected R2 of 1 for an exact line, got %v", r2)
	}

	flat := []float64{4, 4, 4, 4, 4}
	if r2 := rSquared(xs, flat, 0, 4); r2 != 1 {
		t.Errorf("expected R2 of 1 for constant current on a flat line, got %v", r2)
	}

	alternating := []float64{1, -1, 1, -1, 1}
	if r2 := rSquared(xs, alternating, 0, 0.2); r2 > 0.5 {
		t.Errorf("expected poor R2 for alternating values, got %v", r2)
	}
}
