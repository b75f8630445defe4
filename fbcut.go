package main

/*
fbcut truncates a filterbank file in frequency. It picks the channels
closest to -lo_freq and -hi_freq (or takes -chan_no_L/-chan_no_H as is), so
depending on the channel width the output band can be slightly wider than
requested.

Only 8 or 16 bit integer and 32 bit float data is supported; 1, 2 or 4 bit
files need to be unpacked (e.g. with digifil) first. Expect memory usage of
about twice the size of the input file.
*/

import (
	"context"
	"flag"
	"io"
	"strings"

	"github.com/golang/glog"

	"github.com/hb9tf/fbcut/channel"
	"github.com/hb9tf/fbcut/cutter"
	"github.com/hb9tf/fbcut/export"
	"github.com/hb9tf/fbcut/extraction"
	"github.com/hb9tf/fbcut/filterbank"
)

// Flags
var (
	inFile  = flag.String("infile", "", "The name of the input file.")
	outName = flag.String("outname", "", "The name of the output file. Must not exist yet.")
	loFreq  = flag.Float64("lo_freq", 0, "Desired low frequency (in MHz) for output file, rounded to the nearest channel (default: don't truncate low-freq channels).")
	hiFreq  = flag.Float64("hi_freq", 0, "Desired high frequency (in MHz) for output file, rounded to the nearest channel (default: don't truncate high-freq channels).")
	loChan  = flag.Int("chan_no_L", 0, "Channel index of the low frequency edge of the output file (inclusive). Its frequency must be below that of -chan_no_H, so on files with negative foff it is the larger index. Cannot be combined with -lo_freq/-hi_freq.")
	hiChan  = flag.Int("chan_no_H", 0, "Channel index of the high frequency edge of the output file (inclusive). Its frequency must be above that of -chan_no_L, so on files with negative foff it is the smaller index. Cannot be combined with -lo_freq/-hi_freq.")

	previewPath = flag.String("preview", "", "If set, render a waterfall of the output to this .png or .jpg file.")
	output      = flag.String("output", "", "Optionally record the cut (one of: csv, sqlite, mysql, server)")

	// SQLite
	sqliteFile = flag.String("sqliteFile", "/tmp/fbcut", "File path of the sqlite DB file to use.")

	// MySQL
	mysqlServer       = flag.String("mysqlServer", "127.0.0.1:3306", "MySQL TCP server endpoint to connect to (IP/DNS and port).")
	mysqlUser         = flag.String("mysqlUser", "", "MySQL DB user.")
	mysqlPasswordFile = flag.String("mysqlPasswordFile", "", "Path to the file containing the password for the MySQL user.")
	mysqlDBName       = flag.String("mysqlDBName", "fbcut", "Name of the DB to use.")

	// Catalog server
	catalogServer = flag.String("server", "https://localhost:8443", "URL scheme, address and port of the fbcut catalog server.")
)

func init() {
	flag.StringVar(inFile, "i", "", "Shorthand for -infile.")
	flag.StringVar(outName, "o", "", "Shorthand for -outname.")
	flag.Float64Var(loFreq, "L", 0, "Shorthand for -lo_freq.")
	flag.Float64Var(hiFreq, "H", 0, "Shorthand for -hi_freq.")
}

// channelRequest turns the bound flags which were actually given into a
// request. Unset flags leave that side of the band unbounded.
func channelRequest() (channel.Request, error) {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	var lf, hf *float64
	var lc, hc *int
	if set["lo_freq"] || set["L"] {
		lf = loFreq
	}
	if set["hi_freq"] || set["H"] {
		hf = hiFreq
	}
	if set["chan_no_L"] {
		lc = loChan
	}
	if set["chan_no_H"] {
		hc = hiChan
	}
	return channel.NewRequest(lf, hf, lc, hc)
}

func newExporter() (export.Exporter, error) {
	switch strings.ToLower(*output) {
	case "csv":
		return &export.CSV{}, nil
	case "sqlite":
		db, err := export.OpenSQLite(*sqliteFile)
		if err != nil {
			return nil, err
		}
		return &export.SQL{DB: db}, nil
	case "mysql":
		db, err := export.OpenMySQL(*mysqlServer, *mysqlUser, *mysqlPasswordFile, *mysqlDBName)
		if err != nil {
			return nil, err
		}
		return &export.SQL{DB: db}, nil
	case "server":
		return &export.Server{Server: *catalogServer}, nil
	}
	return nil, nil
}

func writePreview(res *cutter.Result) error {
	obs, err := extraction.NewObservation(res.Header, res.Spectra)
	if err != nil {
		return err
	}
	rendered, err := extraction.Render(obs, &extraction.ImageOptions{
		Width:   1024,
		Height:  768,
		AddGrid: true,
	})
	if err != nil {
		return err
	}
	return extraction.Save(*previewPath, rendered.Image)
}

func main() {
	ctx := context.Background()
	// Set defaults for glog flags. Can be overridden via cmdline.
	flag.Set("logtostderr", "false")
	flag.Set("alsologtostderr", "true")
	flag.Set("stderrthreshold", "WARNING")
	flag.Set("v", "1")
	// Parse flags globally.
	flag.Parse()
	defer glog.Flush()

	if *inFile == "" || *outName == "" {
		glog.Exitf("both -infile and -outname are required")
	}
	req, err := channelRequest()
	if err != nil {
		glog.Exitf("invalid channel selection: %s", err)
	}

	// Exporter setup
	var exporter export.Exporter
	switch strings.ToLower(*output) {
	case "", "csv", "sqlite", "mysql", "server":
		exporter, err = newExporter()
		if err != nil {
			glog.Exit(err)
		}
	default:
		glog.Exitf("%q is not a supported export method, pick one of: csv, sqlite, mysql, server", *output)
	}

	// Run
	glog.Infof("Selecting %s\n", req)
	res, err := cutter.Cut(filterbank.SigProc{}, &cutter.Options{
		InFile:  *inFile,
		OutFile: *outName,
		Request: req,
	})
	if err != nil {
		glog.Exit(err)
	}
	glog.Infof("Wrote %s of %s to %s in %s\n", res.Range, *inFile, *outName, res.End.Sub(res.Start))

	if *previewPath != "" {
		if err := writePreview(res); err != nil {
			glog.Warningf("unable to render preview %q: %s\n", *previewPath, err)
		} else {
			glog.Infof("Wrote preview to %s\n", *previewPath)
		}
	}

	if exporter != nil {
		if c, ok := exporter.(io.Closer); ok {
			defer func() {
				if err := c.Close(); err != nil {
					glog.Warningf("unable to close %s export: %s\n", *output, err)
				}
			}()
		}
		records := make(chan export.Record, 1)
		records <- export.NewRecord(res, *outName)
		close(records)
		if err := exporter.Write(ctx, records); err != nil {
			glog.Warningf("unable to record cut: %s\n", err)
		}
	}
}
