package export

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hb9tf/fbcut/cutter"
)

// Record describes one completed cut.
type Record struct {
	ID         string    `json:"id"`
	InFile     string    `json:"inFile"`
	OutFile    string    `json:"outFile"`
	SourceName string    `json:"sourceName"`
	NBits      int       `json:"nbits"`
	NSpec      int       `json:"nspec"`
	OrigNChans int       `json:"origNChans"`
	LoChan     int       `json:"loChan"`
	HiChan     int       `json:"hiChan"`
	NChans     int       `json:"nchans"`
	Fch1       float64   `json:"fch1"`
	Foff       float64   `json:"foff"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

type Exporter interface {
	Write(context.Context, <-chan Record) error
}

// NewRecord summarizes res, which wrote outFile.
func NewRecord(res *cutter.Result, outFile string) Record {
	r := Record{
		ID:         uuid.NewString(),
		InFile:     res.Input.Path,
		OutFile:    outFile,
		NBits:      res.Input.DType.Bits(),
		NSpec:      res.Input.NSpec,
		OrigNChans: res.Input.NChans,
		LoChan:     res.Range.Lo,
		HiChan:     res.Range.Hi,
		NChans:     res.Range.NChans,
		Start:      res.Start,
		End:        res.End,
	}
	r.SourceName, _ = res.Header.Text("source_name")
	r.Fch1, _ = res.Header.Float("fch1")
	r.Foff, _ = res.Header.Float("foff")
	return r
}
