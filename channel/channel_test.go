package channel_test

import (
	"errors"
	"testing"

	"github.com/hb9tf/fbcut/channel"
)

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }

// descending returns [100, 99, ..., 50].
func descending() []float64 {
	var freqs []float64
	for v := 100.0; v >= 50; v-- {
		freqs = append(freqs, v)
	}
	return freqs
}

func ascending(n int) []float64 {
	freqs := make([]float64, n)
	for i := range freqs {
		freqs[i] = 1000 + float64(i)*0.5
	}
	return freqs
}

func TestNewRequest(t *testing.T) {
	tests := []struct {
		name    string
		loFreq  *float64
		hiFreq  *float64
		loChan  *int
		hiChan  *int
		want    channel.Request
		wantErr error
	}{
		{name: "nothing", want: channel.Unbounded{}},
		{name: "low frequency", loFreq: f(100), want: channel.ByFrequency{Lo: f(100)}},
		{name: "high channel", hiChan: i(3), want: channel.ByIndex{Hi: i(3)}},
		{name: "same side mixed", loFreq: f(100), loChan: i(5), wantErr: channel.ErrUsageConflict},
		{name: "cross side mixed", loFreq: f(100), hiChan: i(5), wantErr: channel.ErrUsageConflict},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := channel.NewRequest(tc.loFreq, tc.hiFreq, tc.loChan, tc.hiChan)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("NewRequest() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewRequest() failed: %v", err)
			}
			if got.String() != tc.want.String() {
				t.Errorf("NewRequest() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name  string
		freqs []float64
		req   channel.Request
		want  channel.Range
	}{
		{
			name:  "unbounded ascending keeps everything",
			freqs: ascending(256),
			req:   channel.Unbounded{},
			want:  channel.Range{Lo: 0, Hi: 255, NChans: 256},
		},
		{
			name:  "unbounded descending keeps everything",
			freqs: descending(),
			req:   channel.Unbounded{},
			want:  channel.Range{Lo: 0, Hi: 50, NChans: 51},
		},
		{
			name:  "nil request behaves as unbounded",
			freqs: ascending(4),
			req:   nil,
			want:  channel.Range{Lo: 0, Hi: 3, NChans: 4},
		},
		{
			name:  "nearest low frequency",
			freqs: []float64{100.0, 99.0, 98.0, 97.0},
			req:   channel.ByFrequency{Lo: f(98.4)},
			// lo resolves to 2, hi defaults to argmax 0, swapped.
			want: channel.Range{Lo: 0, Hi: 2, NChans: 3},
		},
		{
			name:  "both frequencies on descending table",
			freqs: descending(),
			req:   channel.ByFrequency{Lo: f(60.2), Hi: f(89.9)},
			want:  channel.Range{Lo: 10, Hi: 40, NChans: 31},
		},
		{
			name:  "both frequencies on ascending table",
			freqs: ascending(100),
			req:   channel.ByFrequency{Lo: f(1010.1), Hi: f(1020.0)},
			want:  channel.Range{Lo: 20, Hi: 40, NChans: 21},
		},
		{
			name:  "only high frequency on ascending table",
			freqs: ascending(100),
			req:   channel.ByFrequency{Hi: f(1001.0)},
			want:  channel.Range{Lo: 0, Hi: 2, NChans: 3},
		},
		{
			name:  "descending indices are swapped",
			freqs: descending(),
			req:   channel.ByIndex{Lo: i(40), Hi: i(10)},
			want:  channel.Range{Lo: 10, Hi: 40, NChans: 31},
		},
		{
			name:  "ascending indices",
			freqs: ascending(64),
			req:   channel.ByIndex{Lo: i(8), Hi: i(15)},
			want:  channel.Range{Lo: 8, Hi: 15, NChans: 8},
		},
		{
			name:  "only low index",
			freqs: ascending(64),
			req:   channel.ByIndex{Lo: i(60)},
			want:  channel.Range{Lo: 60, Hi: 63, NChans: 4},
		},
		{
			name:  "edge indices are allowed",
			freqs: ascending(64),
			req:   channel.ByIndex{Lo: i(0), Hi: i(63)},
			want:  channel.Range{Lo: 0, Hi: 63, NChans: 64},
		},
		{
			name:  "single channel table",
			freqs: []float64{1400},
			req:   channel.Unbounded{},
			want:  channel.Range{Lo: 0, Hi: 0, NChans: 1},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := channel.Select(tc.freqs, tc.req)
			if err != nil {
				t.Fatalf("Select() failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("Select() = %+v, want %+v", got, tc.want)
			}
			if got.NChans != got.Hi-got.Lo+1 || got.NChans <= 0 {
				t.Errorf("Select() returned inconsistent range %+v", got)
			}
			again, err := channel.Select(tc.freqs, tc.req)
			if err != nil || again != got {
				t.Errorf("Select() is not idempotent: %+v then %+v (%v)", got, again, err)
			}
		})
	}
}

func TestSelectErrors(t *testing.T) {
	tests := []struct {
		name  string
		freqs []float64
		req   channel.Request
		want  error
	}{
		{"empty table", nil, channel.Unbounded{}, channel.ErrOutOfRange},
		{"high frequency equals maximum", descending(), channel.ByFrequency{Hi: f(100)}, channel.ErrOutOfRange},
		{"low frequency equals minimum", descending(), channel.ByFrequency{Lo: f(50)}, channel.ErrOutOfRange},
		{"low frequency above table", descending(), channel.ByFrequency{Lo: f(120)}, channel.ErrOutOfRange},
		{"high frequency below table", descending(), channel.ByFrequency{Hi: f(10)}, channel.ErrOutOfRange},
		{"frequencies reversed", descending(), channel.ByFrequency{Lo: f(80), Hi: f(60)}, channel.ErrOrdering},
		{"frequencies equal", descending(), channel.ByFrequency{Lo: f(70), Hi: f(70)}, channel.ErrOrdering},
		{"negative low index", ascending(8), channel.ByIndex{Lo: i(-1)}, channel.ErrOutOfRange},
		{"high index past end", ascending(8), channel.ByIndex{Hi: i(8)}, channel.ErrOutOfRange},
		{"low index past end", ascending(8), channel.ByIndex{Lo: i(9)}, channel.ErrOutOfRange},
		{"indices reversed on ascending table", ascending(8), channel.ByIndex{Lo: i(6), Hi: i(2)}, channel.ErrOrdering},
		{"indices equal", ascending(8), channel.ByIndex{Lo: i(3), Hi: i(3)}, channel.ErrOrdering},
		{"indices ascending on descending table", descending(), channel.ByIndex{Lo: i(10), Hi: i(40)}, channel.ErrOrdering},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := channel.Select(tc.freqs, tc.req); !errors.Is(err, tc.want) {
				t.Errorf("Select() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestNearest(t *testing.T) {
	freqs := []float64{100.0, 99.0, 98.0, 97.0}
	if got := channel.Nearest(freqs, 98.4); got != 2 {
		t.Errorf("Nearest(98.4) = %d, want 2", got)
	}
	// 98.5 is equally far from 99 and 98, the lower index wins.
	if got := channel.Nearest(freqs, 98.5); got != 1 {
		t.Errorf("Nearest(98.5) = %d, want 1", got)
	}
	if got := channel.Nearest([]float64{97, 98, 99}, 98.5); got != 1 {
		t.Errorf("Nearest(98.5) on ascending table = %d, want 1", got)
	}
}
