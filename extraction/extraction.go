package extraction

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/glog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/hb9tf/fbcut/filterbank"
)

var (
	// Colors defining the gradient in the heatmap. The higher the index, the warmer.
	colors = []color.RGBA{
		{0, 0, 0, 255},       // black
		{0, 0, 255, 255},     // blue
		{0, 255, 255, 255},   // cyan
		{0, 255, 0, 255},     // green
		{255, 255, 0, 255},   // yellow
		{255, 0, 0, 255},     // red
		{255, 255, 255, 255}, // white
	}

	gridColor           = color.RGBA{0, 0, 0, 255}       // black
	gridBackgroundColor = color.RGBA{255, 255, 255, 255} // white

	expSuffixLookup = map[int]string{
		0: "Hz",  // 10^0
		1: "kHz", // 10^3
		2: "MHz", // 10^6
		3: "GHz", // 10^9
		4: "THz", // 10^12
	}
)

const (
	timeFmt        = "2006-01-02T15:04:05"
	gridMarginTop  = 20  // pixels
	gridMarginLeft = 150 // pixels
	gridTickLen    = 10  // pixel
	gridMinStepX   = 100 // pixels
	gridMinStepY   = 20  // pixels

	// mjdUnixEpoch is the MJD of 1970-01-01.
	mjdUnixEpoch = 40587.0
)

// MJDToTime converts a modified julian date (the tstart header field).
func MJDToTime(mjd float64) time.Time {
	ns := (mjd - mjdUnixEpoch) * 86400 * float64(time.Second)
	return time.Unix(0, int64(ns)).UTC()
}

// GetColor determines the color of a pixel based on a color gradient and a pixel "level".
// http://www.andrewnoske.com/wiki/Code_-_heatmaps_and_color_gradients
func GetColor(lvl uint16) color.RGBA {
	// Position along the gradient, then blend the two neighbouring colors.
	pos := float64(lvl) / math.MaxUint16 * float64(len(colors)-1)
	i := int(pos)
	if i >= len(colors)-1 {
		return colors[len(colors)-1]
	}
	fract := pos - float64(i)
	currC, nextC := colors[i], colors[i+1]
	blend := func(a, b uint8) uint8 {
		return uint8(float64(a) + (float64(b)-float64(a))*fract)
	}
	return color.RGBA{
		blend(currC.R, nextC.R),
		blend(currC.G, nextC.G),
		blend(currC.B, nextC.B),
		blend(currC.A, nextC.A),
	}
}

func GetReadableFreq(freq int64) string {
	exp := 0
	for f := float64(freq); f > 1000; f = f / 1000.0 {
		exp += 1
	}
	suffix, ok := expSuffixLookup[exp]
	if !ok {
		return fmt.Sprintf("%d Hz", freq)
	}
	return fmt.Sprintf("%.2f %s", float64(freq)/math.Pow(1000, float64(exp)), suffix)
}

func drawTick(canvas *image.RGBA, start image.Point, length int, horizontal bool) {
	for i := 0; i <= length; i++ {
		if horizontal {
			canvas.SetRGBA(start.X+i, start.Y, gridColor)
		} else {
			canvas.SetRGBA(start.X, start.Y+i, gridColor)
		}
	}
}

func findGridStepSize(step int, horizontal bool) int {
	gridMinStep := gridMinStepY
	if horizontal {
		gridMinStep = gridMinStepX
	}
	for step > gridMinStep {
		n := step / 2
		if n < gridMinStep {
			return step
		}
		step = n
	}
	return step
}

func drawLabel(canvas *image.RGBA, x, y int, label string) {
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(gridColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(label)
}

// DrawGrid returns a copy of source with frequency ticks along the top and
// time ticks along the left edge.
func DrawGrid(source *image.RGBA, lowFreq, highFreq int64, startTime, endTime time.Time) *image.RGBA {
	// Enlarge existing image.
	canvas := image.NewRGBA(image.Rectangle{
		Min: source.Bounds().Min,
		Max: image.Point{source.Bounds().Max.X + gridMarginLeft, source.Bounds().Max.Y + gridMarginTop},
	})
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{gridBackgroundColor}, canvas.Bounds().Min, draw.Src)
	r := canvas.Bounds()
	r.Min.X += gridMarginLeft
	r.Min.Y += gridMarginTop
	draw.Draw(canvas, r, source, source.Bounds().Min, draw.Src)

	// Draw X ticks.
	width := source.Bounds().Dx()
	xStep := findGridStepSize(width, true)
	for i := 0; i < width; i += xStep {
		drawTick(canvas, image.Point{
			canvas.Bounds().Min.X + gridMarginLeft + i,
			canvas.Bounds().Min.Y + gridMarginTop - gridTickLen,
		}, gridTickLen, false)
		freq := lowFreq + ((int64(i) * (highFreq - lowFreq)) / int64(width))
		drawLabel(canvas, canvas.Bounds().Min.X+gridMarginLeft+i+5, canvas.Bounds().Min.Y+gridMarginTop-2, GetReadableFreq(freq))
	}

	// Draw Y ticks.
	height := source.Bounds().Dy()
	yStep := findGridStepSize(height, false)
	for i := 0; i < height; i += yStep {
		drawTick(canvas, image.Point{
			canvas.Bounds().Min.X + gridMarginLeft - gridTickLen,
			canvas.Bounds().Min.Y + gridMarginTop + i,
		}, gridTickLen, true)
		offset := time.Duration(int64(i) * int64(endTime.Sub(startTime)) / int64(height))
		drawLabel(canvas, canvas.Bounds().Min.X+5, canvas.Bounds().Min.Y+gridMarginTop+i+5, offset.String())
		drawLabel(canvas, canvas.Bounds().Min.X+5, canvas.Bounds().Min.Y+gridMarginTop+i+17, startTime.Add(offset).Format(timeFmt))
	}

	return canvas
}

type ImageOptions struct {
	// Height and Width are upper bounds, the image never has more pixels
	// than there are spectra and channels. Zero means no bound.
	Height int
	Width  int

	AddGrid bool
}

// Observation places a block of spectra in frequency and time.
type Observation struct {
	Spectra     *filterbank.Spectra
	Frequencies []float64 // MHz, one per channel of Spectra
	Start       time.Time
	SampleTime  time.Duration
}

type SourceMetadata struct {
	LowFreq   int64
	HighFreq  int64
	StartTime time.Time
	EndTime   time.Time
}

type RenderMetadata struct {
	ImageHeight  int
	ImageWidth   int
	FreqPerPixel float64
	SecPerPixel  float64
}

type RenderResult struct {
	Image image.Image

	SourceMeta *SourceMetadata
	ImageMeta  *RenderMetadata
}

func fitDimension(requested, available int) int {
	if requested <= 0 || requested > available {
		return available
	}
	return requested
}

// Render draws obs as a waterfall: frequency increases to the right, time
// runs downwards. Channels and spectra sharing a pixel are averaged.
func Render(obs *Observation, opts *ImageOptions) (*RenderResult, error) {
	s := obs.Spectra
	if s.NSpec == 0 || s.NChans == 0 {
		return nil, fmt.Errorf("unable to render empty spectra %s", s.Shape())
	}
	if len(obs.Frequencies) != s.NChans {
		return nil, fmt.Errorf("got %d frequencies for %d channels", len(obs.Frequencies), s.NChans)
	}

	width := fitDimension(opts.Width, s.NChans)
	height := fitDimension(opts.Height, s.NSpec)
	if opts.Width > width || opts.Height > height {
		glog.V(1).Infof("reducing image to %d x %d pixels, there is no more data\n", width, height)
	}

	// Channel c lands in column x, flipped when the table is descending.
	descending := obs.Frequencies[0] > obs.Frequencies[s.NChans-1]
	sums := make([]float64, width*height)
	counts := make([]int, width*height)
	for row := 0; row < s.NSpec; row++ {
		y := row * height / s.NSpec
		for c := 0; c < s.NChans; c++ {
			col := c
			if descending {
				col = s.NChans - 1 - c
			}
			x := col * width / s.NChans
			sums[y*width+x] += s.Value(row, c)
			counts[y*width+x]++
		}
	}

	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for i := range sums {
		sums[i] /= float64(counts[i])
		minVal = math.Min(minVal, sums[i])
		maxVal = math.Max(maxVal, sums[i])
	}
	valRange := maxVal - minVal

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			lvl := uint16(0)
			if valRange > 0 {
				lvl = uint16((sums[y*width+x] - minVal) * math.MaxUint16 / valRange)
			}
			canvas.SetRGBA(x, y, GetColor(lvl))
		}
	}

	lowMHz, highMHz := obs.Frequencies[0], obs.Frequencies[s.NChans-1]
	if descending {
		lowMHz, highMHz = highMHz, lowMHz
	}
	lowFreq, highFreq := int64(lowMHz*1e6), int64(highMHz*1e6)
	sTime := obs.Start
	eTime := sTime.Add(time.Duration(s.NSpec) * obs.SampleTime)

	if opts.AddGrid {
		canvas = DrawGrid(canvas, lowFreq, highFreq, sTime, eTime)
	}

	return &RenderResult{
		Image: canvas,
		SourceMeta: &SourceMetadata{
			LowFreq:   lowFreq,
			HighFreq:  highFreq,
			StartTime: sTime,
			EndTime:   eTime,
		},
		ImageMeta: &RenderMetadata{
			ImageHeight:  height,
			ImageWidth:   width,
			FreqPerPixel: float64(highFreq-lowFreq) / float64(width),
			SecPerPixel:  eTime.Sub(sTime).Seconds() / float64(height),
		},
	}, nil
}

// NewObservation pairs spectra with the frequency and time information of
// the header they belong to.
func NewObservation(hdr *filterbank.Header, s *filterbank.Spectra) (*Observation, error) {
	freqs, err := filterbank.Frequencies(hdr)
	if err != nil {
		return nil, err
	}
	obs := &Observation{
		Spectra:     s,
		Frequencies: freqs,
	}
	if tstart, ok := hdr.Float("tstart"); ok {
		obs.Start = MJDToTime(tstart)
	}
	if tsamp, ok := hdr.Float("tsamp"); ok {
		obs.SampleTime = time.Duration(tsamp * float64(time.Second))
	}
	return obs, nil
}

// Save encodes img as PNG or JPEG depending on the extension of path.
func Save(path string, img image.Image) error {
	var encode func(*os.File) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		encode = func(f *os.File) error { return png.Encode(f, img) }
	case ".jpg", ".jpeg":
		encode = func(f *os.File) error { return jpeg.Encode(f, img, &jpeg.Options{Quality: jpeg.DefaultQuality}) }
	default:
		return fmt.Errorf("unsupported image type %q, use .png or .jpg", filepath.Ext(path))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("unable to encode %q: %s", path, err)
	}
	return f.Close()
}
