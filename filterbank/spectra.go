package filterbank

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// DType is the on-disk element type of the samples.
type DType int

const (
	Uint8 DType = iota
	Uint16
	Float32
)

// DTypeForBits maps the nbits header value onto an element type. Files with
// fewer than 8 bits need to be unpacked (e.g. with digifil) first.
func DTypeForBits(nbits int) (DType, error) {
	switch nbits {
	case 8:
		return Uint8, nil
	case 16:
		return Uint16, nil
	case 32:
		return Float32, nil
	}
	return 0, fmt.Errorf("%w: %d (supported: 8, 16, 32)", ErrUnsupportedBits, nbits)
}

// Size returns the width of one element in bytes.
func (d DType) Size() int {
	switch d {
	case Uint16:
		return 2
	case Float32:
		return 4
	}
	return 1
}

func (d DType) Bits() int {
	return d.Size() * 8
}

func (d DType) String() string {
	switch d {
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Float32:
		return "float32"
	}
	return fmt.Sprintf("DType(%d)", int(d))
}

// Spectra is a row-major block of samples: one row per time sample, one
// column per channel, little-endian elements of DType.
type Spectra struct {
	NSpec  int
	NChans int
	DType  DType
	Data   []byte
}

func (s *Spectra) rowSize() int {
	return s.NChans * s.DType.Size()
}

// ReadSpectra reads nspec rows of nchans elements from r. A short read
// yields ErrTruncated.
func ReadSpectra(r io.Reader, nspec, nchans int, dtype DType) (*Spectra, error) {
	s := &Spectra{
		NSpec:  nspec,
		NChans: nchans,
		DType:  dtype,
	}
	if nspec < 0 || nchans < 0 {
		return nil, fmt.Errorf("invalid spectra shape %d x %d", nspec, nchans)
	}
	s.Data = make([]byte, nspec*s.rowSize())
	if n, err := io.ReadFull(r, s.Data); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, fmt.Errorf("%w: got %d of %d bytes", ErrTruncated, n, len(s.Data))
		}
		return nil, err
	}
	return s, nil
}

// Slice copies the columns lo..hi (inclusive) of every row into a new block.
func (s *Spectra) Slice(lo, hi int) (*Spectra, error) {
	if lo < 0 || hi >= s.NChans || lo > hi {
		return nil, fmt.Errorf("unable to slice channels %d to %d out of %d", lo, hi, s.NChans)
	}
	size := s.DType.Size()
	out := &Spectra{
		NSpec:  s.NSpec,
		NChans: hi - lo + 1,
		DType:  s.DType,
	}
	rowIn := s.rowSize()
	rowOut := out.rowSize()
	out.Data = make([]byte, s.NSpec*rowOut)
	for i := 0; i < s.NSpec; i++ {
		src := s.Data[i*rowIn+lo*size : i*rowIn+(hi+1)*size]
		copy(out.Data[i*rowOut:(i+1)*rowOut], src)
	}
	return out, nil
}

// Value returns sample (spec, chan) as a float.
func (s *Spectra) Value(spec, ch int) float64 {
	off := spec*s.rowSize() + ch*s.DType.Size()
	switch s.DType {
	case Uint16:
		return float64(binary.LittleEndian.Uint16(s.Data[off:]))
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(s.Data[off:])))
	}
	return float64(s.Data[off])
}

// Shape returns (NSpec, NChans) for logging.
func (s *Spectra) Shape() string {
	return fmt.Sprintf("(%d, %d)", s.NSpec, s.NChans)
}
