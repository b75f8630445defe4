// Package channel resolves frequency or channel index bounds into an
// inclusive range of channels of a filterbank file.
package channel

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrUsageConflict = errors.New("frequency bounds and channel bounds cannot be combined")
	ErrOutOfRange    = errors.New("requested bound is beyond what is in the file")
	ErrOrdering      = errors.New("low bound must be below high bound")
	ErrInconsistent  = errors.New("bad number of channels")
)

// Request is one of Unbounded, ByFrequency or ByIndex.
type Request interface {
	String() string
	isRequest()
}

// Unbounded keeps every channel.
type Unbounded struct{}

// ByFrequency selects the channels closest to Lo and Hi (MHz). A nil bound
// leaves that side of the band untouched.
type ByFrequency struct {
	Lo *float64
	Hi *float64
}

// ByIndex selects channels by their index in the file. Lo is the channel
// at the low frequency end and Hi the one at the high end. A nil bound
// leaves that side of the band untouched.
type ByIndex struct {
	Lo *int
	Hi *int
}

func (Unbounded) isRequest()   {}
func (ByFrequency) isRequest() {}
func (ByIndex) isRequest()     {}

func (Unbounded) String() string {
	return "all channels"
}

func (r ByFrequency) String() string {
	return fmt.Sprintf("frequencies %s to %s MHz", fmtBound(r.Lo), fmtBound(r.Hi))
}

func (r ByIndex) String() string {
	return fmt.Sprintf("channels %s to %s", fmtBound(r.Lo), fmtBound(r.Hi))
}

func fmtBound[T int | float64](v *T) string {
	if v == nil {
		return "*"
	}
	return fmt.Sprint(*v)
}

// NewRequest builds a Request out of the optional bounds given on the
// command line. Frequency and channel bounds are mutually exclusive.
func NewRequest(loFreq, hiFreq *float64, loChan, hiChan *int) (Request, error) {
	byFreq := loFreq != nil || hiFreq != nil
	byChan := loChan != nil || hiChan != nil
	switch {
	case byFreq && byChan:
		return nil, ErrUsageConflict
	case byFreq:
		return ByFrequency{Lo: loFreq, Hi: hiFreq}, nil
	case byChan:
		return ByIndex{Lo: loChan, Hi: hiChan}, nil
	}
	return Unbounded{}, nil
}

// Range is an inclusive range of channel indices with Lo <= Hi.
type Range struct {
	Lo     int
	Hi     int
	NChans int
}

func (r Range) String() string {
	return fmt.Sprintf("%d channels (%d to %d incl.)", r.NChans, r.Lo, r.Hi)
}

// Select resolves req against the frequency table freqs (MHz, one entry
// per channel, either ascending or descending). Bounds left open default
// to the lowest and highest frequency channel respectively.
func Select(freqs []float64, req Request) (Range, error) {
	if len(freqs) == 0 {
		return Range{}, fmt.Errorf("%w: empty frequency table", ErrOutOfRange)
	}
	minFreq, maxFreq := floats.Min(freqs), floats.Max(freqs)
	lo, hi := floats.MinIdx(freqs), floats.MaxIdx(freqs)

	switch r := req.(type) {
	case nil, Unbounded:
	case ByFrequency:
		for _, f := range []*float64{r.Lo, r.Hi} {
			if f != nil && (math.IsNaN(*f) || *f <= minFreq || *f >= maxFreq) {
				return Range{}, fmt.Errorf("%w: requested %s, file covers %v-%v MHz; leave a bound unset to keep that edge", ErrOutOfRange, r, minFreq, maxFreq)
			}
		}
		if r.Lo != nil && r.Hi != nil && *r.Lo >= *r.Hi {
			return Range{}, fmt.Errorf("%w: requested %s", ErrOrdering, r)
		}
		if r.Lo != nil {
			lo = Nearest(freqs, *r.Lo)
		}
		if r.Hi != nil {
			hi = Nearest(freqs, *r.Hi)
		}
	case ByIndex:
		last := len(freqs) - 1
		if r.Lo != nil && (*r.Lo < 0 || *r.Lo > last) {
			return Range{}, fmt.Errorf("%w: low channel %d, file has channels 0 to %d", ErrOutOfRange, *r.Lo, last)
		}
		if r.Hi != nil && (*r.Hi < 0 || *r.Hi > last) {
			return Range{}, fmt.Errorf("%w: high channel %d, file has channels 0 to %d", ErrOutOfRange, *r.Hi, last)
		}
		if r.Lo != nil && r.Hi != nil && freqs[*r.Lo] >= freqs[*r.Hi] {
			return Range{}, fmt.Errorf("%w: channel %d (%v MHz) is not below channel %d (%v MHz)", ErrOrdering, *r.Lo, freqs[*r.Lo], *r.Hi, freqs[*r.Hi])
		}
		if r.Lo != nil {
			lo = *r.Lo
		}
		if r.Hi != nil {
			hi = *r.Hi
		}
	default:
		return Range{}, fmt.Errorf("unsupported channel request %T", req)
	}

	// Descending tables put the high frequency at the lower index.
	if lo > hi {
		lo, hi = hi, lo
	}
	n := hi - lo + 1
	if n <= 0 {
		return Range{}, fmt.Errorf("%w: %d (channels %d to %d)", ErrInconsistent, n, lo, hi)
	}
	return Range{Lo: lo, Hi: hi, NChans: n}, nil
}

// Nearest returns the index of the table entry closest to freq. Ties go to
// the lowest index.
func Nearest(freqs []float64, freq float64) int {
	diffs := make([]float64, len(freqs))
	for i, f := range freqs {
		diffs[i] = math.Abs(f - freq)
	}
	return floats.MinIdx(diffs)
}
