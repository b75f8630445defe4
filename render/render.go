package main

/*
This application renders a waterfall of a filterbank file, optionally
limited to a frequency range, without writing a new filterbank file.
*/

import (
	"flag"
	"fmt"

	"github.com/golang/glog"

	"github.com/hb9tf/fbcut/channel"
	"github.com/hb9tf/fbcut/cutter"
	"github.com/hb9tf/fbcut/extraction"
	"github.com/hb9tf/fbcut/filterbank"
)

const timeFmt = "2006-01-02T15:04:05"

// Flags
var (
	inFile    = flag.String("infile", "", "Filterbank file to render.")
	loFreq    = flag.Float64("lo_freq", 0, "Only render channels from this frequency (MHz) upwards.")
	hiFreq    = flag.Float64("hi_freq", 0, "Only render channels up to this frequency (MHz).")
	imgPath   = flag.String("imgPath", "/tmp/out.png", "Path where the rendered image should be written to (.png or .jpg).")
	imgWidth  = flag.Int("imgWidth", 1024, "Maximum width of output image in pixels.")
	imgHeight = flag.Int("imgHeight", 768, "Maximum height of output image in pixels.")
	addGrid   = flag.Bool("grid", true, "Draw frequency and time axes.")
)

func main() {
	// Set defaults for glog flags. Can be overridden via cmdline.
	flag.Set("logtostderr", "false")
	flag.Set("stderrthreshold", "WARNING")
	flag.Set("v", "1")
	// Parse flags globally.
	flag.Parse()
	defer glog.Flush()

	if *inFile == "" {
		glog.Exit("-infile is required")
	}

	var lf, hf *float64
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lo_freq":
			lf = loFreq
		case "hi_freq":
			hf = hiFreq
		}
	})
	req, err := channel.NewRequest(lf, hf, nil, nil)
	if err != nil {
		glog.Exit(err)
	}

	info, err := filterbank.Parse(*inFile)
	if err != nil {
		glog.Exitf("unable to parse %q: %s", *inFile, err)
	}
	rng, err := channel.Select(info.Frequencies, req)
	if err != nil {
		glog.Exit(err)
	}
	spectra, err := cutter.ReadSpectra(info)
	if err != nil {
		glog.Exit(err)
	}
	spectra, err = spectra.Slice(rng.Lo, rng.Hi)
	if err != nil {
		glog.Exit(err)
	}
	hdr, err := cutter.PatchHeader(info, rng)
	if err != nil {
		glog.Exit(err)
	}

	obs, err := extraction.NewObservation(hdr, spectra)
	if err != nil {
		glog.Exit(err)
	}
	res, err := extraction.Render(obs, &extraction.ImageOptions{
		Width:   *imgWidth,
		Height:  *imgHeight,
		AddGrid: *addGrid,
	})
	if err != nil {
		glog.Exitf("unable to render %q: %s", *inFile, err)
	}

	fmt.Println("Selected source metadata:")
	fmt.Printf("  - Channels: %s\n", rng)
	fmt.Printf("  - Low frequency: %s\n", extraction.GetReadableFreq(res.SourceMeta.LowFreq))
	fmt.Printf("  - High frequency: %s\n", extraction.GetReadableFreq(res.SourceMeta.HighFreq))
	fmt.Printf("  - Start time: %s (%d)\n", res.SourceMeta.StartTime.Format(timeFmt), res.SourceMeta.StartTime.Unix())
	fmt.Printf("  - End time: %s (%d)\n", res.SourceMeta.EndTime.Format(timeFmt), res.SourceMeta.EndTime.Unix())
	fmt.Printf("  - Duration: %s\n", res.SourceMeta.EndTime.Sub(res.SourceMeta.StartTime))
	fmt.Printf("Rendered image (%d x %d, %.0f Hz and %f s per pixel)\n", res.ImageMeta.ImageWidth, res.ImageMeta.ImageHeight, res.ImageMeta.FreqPerPixel, res.ImageMeta.SecPerPixel)

	fmt.Printf("Writing image to %q\n", *imgPath)
	if err := extraction.Save(*imgPath, res.Image); err != nil {
		glog.Exit(err)
	}
}
