// Package cutter extracts a contiguous range of frequency channels out of a
// filterbank file and writes them to a new file.
package cutter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/hb9tf/fbcut/channel"
	"github.com/hb9tf/fbcut/filterbank"
)

var ErrOutputExists = errors.New("output file already exists")

// Format is the file format collaborator. filterbank.SigProc is the
// implementation used outside of tests.
type Format interface {
	Parse(path string) (*filterbank.Info, error)
	Serialize(path string, hdr *filterbank.Header, s *filterbank.Spectra) error
}

type Options struct {
	InFile  string
	OutFile string
	Request channel.Request
}

// Result describes a completed cut.
type Result struct {
	Input  *filterbank.Info
	Range  channel.Range
	Header *filterbank.Header
	// Spectra holds the samples that were written, for previews.
	Spectra *filterbank.Spectra
	Start   time.Time
	End     time.Time
}

// Cut writes channels opts.Request of opts.InFile to opts.OutFile. The
// output is never overwritten and never left behind half written.
func Cut(format Format, opts *Options) (*Result, error) {
	res := &Result{Start: time.Now()}

	if _, err := os.Lstat(opts.OutFile); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrOutputExists, opts.OutFile)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("unable to check output file %q: %w", opts.OutFile, err)
	}

	glog.Infof("Reading original filterbank file %s\n", opts.InFile)
	info, err := format.Parse(opts.InFile)
	if err != nil {
		return nil, fmt.Errorf("unable to parse %q: %w", opts.InFile, err)
	}
	res.Input = info

	res.Range, err = channel.Select(info.Frequencies, opts.Request)
	if err != nil {
		return nil, err
	}
	glog.Infof("Will extract %s, original num chans: %d\n", res.Range, info.NChans)

	data, err := ReadSpectra(info)
	if err != nil {
		return nil, err
	}

	glog.Infof("Cutting down frequency channels of %s spectra\n", data.Shape())
	res.Spectra, err = data.Slice(res.Range.Lo, res.Range.Hi)
	if err != nil {
		return nil, err
	}
	glog.Infof("Output spectra has shape: %s\n", res.Spectra.Shape())

	res.Header, err = PatchHeader(info, res.Range)
	if err != nil {
		return nil, err
	}

	glog.Infof("Writing data to new filterbank file %s\n", opts.OutFile)
	if err := format.Serialize(opts.OutFile, res.Header, res.Spectra); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrOutputExists, opts.OutFile)
		}
		return nil, fmt.Errorf("unable to write %q: %w", opts.OutFile, err)
	}
	res.End = time.Now()
	return res, nil
}

// ReadSpectra loads the whole sample block of the file described by info.
// The file is closed before returning.
func ReadSpectra(info *filterbank.Info) (*filterbank.Spectra, error) {
	f, err := os.Open(info.Path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			glog.Warningf("%s was read but could not be closed properly: %s\n", info.Path, err)
			return
		}
		glog.V(2).Infof("%s has been closed\n", info.Path)
	}()

	glog.Infof("Extracting data from %s\n", info.Path)
	if _, err := f.Seek(info.HeaderSize, io.SeekStart); err != nil {
		return nil, fmt.Errorf("unable to seek past header of %q: %w", info.Path, err)
	}
	s, err := filterbank.ReadSpectra(bufio.NewReader(f), info.NSpec, info.NChans, info.DType)
	if err != nil {
		return nil, fmt.Errorf("unable to read spectra of %q: %w", info.Path, err)
	}
	return s, nil
}

// PatchHeader copies the input header and updates it for the channels in r.
func PatchHeader(info *filterbank.Info, r channel.Range) (*filterbank.Header, error) {
	hdr := info.Header.Clone()
	if err := hdr.Set("nchans", r.NChans); err != nil {
		return nil, err
	}
	if err := hdr.Set("fch1", info.Frequencies[r.Lo]); err != nil {
		return nil, err
	}
	return hdr, nil
}
