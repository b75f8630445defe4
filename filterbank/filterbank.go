// Package filterbank reads and writes SIGPROC filterbank files: a keyword
// header followed by a row-major block of spectra.
package filterbank

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/google/uuid"
)

var ErrTruncated = errors.New("filterbank data is shorter than its header declares")

// Info is everything needed to locate and interpret the samples of a file.
type Info struct {
	Path        string
	Header      *Header
	HeaderSize  int64
	Frequencies []float64
	NChans      int
	NSpec       int
	DType       DType
}

// Frequencies returns the centre frequency in MHz of every channel in file
// order: fch1 + i*foff.
func Frequencies(h *Header) ([]float64, error) {
	fch1, ok := h.Float("fch1")
	if !ok {
		return nil, fmt.Errorf("%w: missing fch1", ErrBadHeader)
	}
	foff, ok := h.Float("foff")
	if !ok {
		return nil, fmt.Errorf("%w: missing foff", ErrBadHeader)
	}
	nchans, ok := h.Int("nchans")
	if !ok || nchans <= 0 {
		return nil, fmt.Errorf("%w: missing or invalid nchans", ErrBadHeader)
	}
	freqs := make([]float64, nchans)
	for i := range freqs {
		freqs[i] = fch1 + float64(i)*foff
	}
	return freqs, nil
}

// Parse reads the header of the file at path and derives the frequency
// table and the spectra count. The samples themselves are not read.
func Parse(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hdr, hdrSize, err := ReadHeader(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("unable to read header of %q: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return infoFromHeader(path, hdr, hdrSize, st.Size())
}

func infoFromHeader(path string, hdr *Header, hdrSize, fileSize int64) (*Info, error) {
	nbits, ok := hdr.Int("nbits")
	if !ok {
		return nil, fmt.Errorf("%w: missing nbits", ErrBadHeader)
	}
	dtype, err := DTypeForBits(nbits)
	if err != nil {
		return nil, err
	}
	if nifs, ok := hdr.Int("nifs"); ok && nifs != 1 {
		return nil, fmt.Errorf("%w: only single IF data is supported, nifs=%d", ErrBadHeader, nifs)
	}
	freqs, err := Frequencies(hdr)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Path:        path,
		Header:      hdr,
		HeaderSize:  hdrSize,
		Frequencies: freqs,
		NChans:      len(freqs),
		DType:       dtype,
	}

	rowSize := int64(info.NChans * dtype.Size())
	dataSize := fileSize - hdrSize
	if nsamples, ok := hdr.Int("nsamples"); ok && nsamples > 0 {
		if held := dataSize / rowSize; int64(nsamples) > held {
			return nil, fmt.Errorf("%w: header declares %d spectra, file holds %d", ErrTruncated, nsamples, held)
		}
		info.NSpec = nsamples
	} else {
		info.NSpec = int(dataSize / rowSize)
		if dataSize%rowSize != 0 {
			glog.Warningf("%q has %d trailing bytes which do not form a full spectrum, ignoring them\n", path, dataSize%rowSize)
		}
	}
	return info, nil
}

// Create writes h followed by s to path. The file is assembled under a
// temporary name next to path and only linked into place once complete, so
// path either does not exist or holds the whole file. An existing path is
// never overwritten; that case yields an error wrapping fs.ErrExist.
func Create(path string, h *Header, s *Spectra) error {
	if _, err := os.Lstat(path); err == nil {
		return fmt.Errorf("%w: %s", fs.ErrExist, path)
	}

	tmp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("unable to create temporary file: %w", err)
	}
	defer os.Remove(tmp)

	if err := writeFile(f, h, s); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("unable to close %q: %w", tmp, err)
	}

	if err := os.Link(tmp, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", fs.ErrExist, path)
		}
		// Some filesystems do not support hard links.
		glog.V(2).Infof("unable to link %q to %q (%s), renaming instead", tmp, path, err)
		if _, err := os.Lstat(path); err == nil {
			return fmt.Errorf("%w: %s", fs.ErrExist, path)
		}
		return os.Rename(tmp, path)
	}
	return nil
}

func writeFile(f *os.File, h *Header, s *Spectra) error {
	w := bufio.NewWriter(f)
	if err := WriteHeader(w, h); err != nil {
		return fmt.Errorf("unable to write header: %w", err)
	}
	if _, err := w.Write(s.Data); err != nil {
		return fmt.Errorf("unable to write spectra: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("unable to write spectra: %w", err)
	}
	return f.Sync()
}

// SigProc binds Parse and Create together as a file format.
type SigProc struct{}

func (SigProc) Parse(path string) (*Info, error) {
	return Parse(path)
}

func (SigProc) Serialize(path string, h *Header, s *Spectra) error {
	nchans, ok := h.Int("nchans")
	if !ok || nchans != s.NChans {
		return fmt.Errorf("%w: header nchans (%d) does not match spectra (%d)", ErrBadHeader, nchans, s.NChans)
	}
	return Create(path, h, s)
}
