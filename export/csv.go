package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"
)

type CSV struct {
	// W defaults to stdout.
	W io.Writer
}

func (c *CSV) Write(ctx context.Context, records <-chan Record) error {
	out := c.W
	if out == nil {
		out = os.Stdout
	}
	w := csv.NewWriter(out)
	w.Write([]string{
		"ID",
		"InFile",
		"OutFile",
		"SourceName",
		"NBits",
		"NSpec",
		"OrigNChans",
		"LoChan",
		"HiChan",
		"NChans",
		"Fch1",
		"Foff",
		"StartUnixMilli",
		"EndUnixMilli",
	})

	for r := range records {
		if err := w.Write([]string{
			r.ID,
			r.InFile,
			r.OutFile,
			r.SourceName,
			fmt.Sprintf("%d", r.NBits),
			fmt.Sprintf("%d", r.NSpec),
			fmt.Sprintf("%d", r.OrigNChans),
			fmt.Sprintf("%d", r.LoChan),
			fmt.Sprintf("%d", r.HiChan),
			fmt.Sprintf("%d", r.NChans),
			fmt.Sprintf("%f", r.Fch1),
			fmt.Sprintf("%f", r.Foff),
			fmt.Sprintf("%d", r.Start.UnixMilli()),
			fmt.Sprintf("%d", r.End.UnixMilli()),
		}); err != nil {
			glog.Warningf("error while writing CSV line: %s\n", err)
		}

		w.Flush()
		if err := w.Error(); err != nil {
			glog.Warningf("error flushing CSV: %s\n", err)
		}
	}
	w.Flush()
	return w.Error()
}
