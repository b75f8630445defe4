package extraction

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hb9tf/fbcut/filterbank"
)

func TestGetReadableFreq(t *testing.T) {
	tests := []struct {
		freq int64
		want string
	}{
		{999, "999.00 Hz"},
		{12500, "12.50 kHz"},
		{1420405752, "1.42 GHz"},
		{150000000, "150.00 MHz"},
	}
	for _, tc := range tests {
		if got := GetReadableFreq(tc.freq); got != tc.want {
			t.Errorf("GetReadableFreq(%d) = %q, want %q", tc.freq, got, tc.want)
		}
	}
}

func TestGetColor(t *testing.T) {
	if got := GetColor(0); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("GetColor(0) = %v, want black", got)
	}
	if got := GetColor(65535); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("GetColor(max) = %v, want white", got)
	}
	// Half way up the gradient is green.
	if got := GetColor(32768); got.G != 255 || got.B != 0 {
		t.Errorf("GetColor(mid) = %v, want a green tone", got)
	}
}

func TestFindGridStepSize(t *testing.T) {
	if got := findGridStepSize(800, true); got != 100 {
		t.Errorf("findGridStepSize(800, x) = %d, want 100", got)
	}
	if got := findGridStepSize(50, true); got != 50 {
		t.Errorf("findGridStepSize(50, x) = %d, want 50", got)
	}
	if got := findGridStepSize(480, false); got != 30 {
		t.Errorf("findGridStepSize(480, y) = %d, want 30", got)
	}
}

func TestMJDToTime(t *testing.T) {
	want := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	if got := MJDToTime(51544.5); !got.Equal(want) {
		t.Errorf("MJDToTime(51544.5) = %s, want %s", got, want)
	}
}

// ramp builds spectra whose value grows with the channel index.
func ramp(nspec, nchans int) *filterbank.Spectra {
	s := &filterbank.Spectra{NSpec: nspec, NChans: nchans, DType: filterbank.Uint8}
	for row := 0; row < nspec; row++ {
		for c := 0; c < nchans; c++ {
			s.Data = append(s.Data, byte(c))
		}
	}
	return s
}

func TestRenderOrientation(t *testing.T) {
	tests := []struct {
		name      string
		freqs     []float64
		wantLeft  color.RGBA
		wantRight color.RGBA
	}{
		{
			name:      "ascending",
			freqs:     []float64{100, 101, 102, 103},
			wantLeft:  colors[0],
			wantRight: colors[len(colors)-1],
		},
		{
			name:      "descending",
			freqs:     []float64{103, 102, 101, 100},
			wantLeft:  colors[len(colors)-1],
			wantRight: colors[0],
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			obs := &Observation{
				Spectra:     ramp(6, 4),
				Frequencies: tc.freqs,
				Start:       time.Unix(0, 0),
				SampleTime:  time.Second,
			}
			res, err := Render(obs, &ImageOptions{})
			if err != nil {
				t.Fatalf("Render() failed: %v", err)
			}
			b := res.Image.Bounds()
			if b.Dx() != 4 || b.Dy() != 6 {
				t.Fatalf("image is %d x %d, want 4 x 6", b.Dx(), b.Dy())
			}
			if got := res.Image.At(0, 0); got != tc.wantLeft {
				t.Errorf("left pixel = %v, want %v", got, tc.wantLeft)
			}
			if got := res.Image.At(3, 5); got != tc.wantRight {
				t.Errorf("right pixel = %v, want %v", got, tc.wantRight)
			}
			if res.SourceMeta.LowFreq != 100000000 || res.SourceMeta.HighFreq != 103000000 {
				t.Errorf("frequency span = %d-%d", res.SourceMeta.LowFreq, res.SourceMeta.HighFreq)
			}
			if d := res.SourceMeta.EndTime.Sub(res.SourceMeta.StartTime); d != 6*time.Second {
				t.Errorf("time span = %s, want 6s", d)
			}
		})
	}
}

func TestRenderDownsamplesAndGrids(t *testing.T) {
	freqs := make([]float64, 64)
	for i := range freqs {
		freqs[i] = 1400 + float64(i)
	}
	obs := &Observation{Spectra: ramp(100, 64), Frequencies: freqs, SampleTime: time.Millisecond}

	res, err := Render(obs, &ImageOptions{Width: 16, Height: 1000})
	if err != nil {
		t.Fatalf("Render() failed: %v", err)
	}
	if res.ImageMeta.ImageWidth != 16 || res.ImageMeta.ImageHeight != 100 {
		t.Errorf("image = %d x %d, want 16 x 100", res.ImageMeta.ImageWidth, res.ImageMeta.ImageHeight)
	}

	res, err = Render(obs, &ImageOptions{AddGrid: true})
	if err != nil {
		t.Fatalf("Render() with grid failed: %v", err)
	}
	b := res.Image.Bounds()
	if b.Dx() != 64+gridMarginLeft || b.Dy() != 100+gridMarginTop {
		t.Errorf("grid image is %d x %d", b.Dx(), b.Dy())
	}
}

func TestRenderRejectsMismatch(t *testing.T) {
	obs := &Observation{Spectra: ramp(2, 4), Frequencies: []float64{1, 2}}
	if _, err := Render(obs, &ImageOptions{}); err == nil {
		t.Errorf("Render() should reject a frequency table of the wrong length")
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	obs := &Observation{Spectra: ramp(4, 4), Frequencies: []float64{1, 2, 3, 4}}
	res, err := Render(obs, &ImageOptions{})
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"out.png", "out.jpg"} {
		path := filepath.Join(dir, name)
		if err := Save(path, res.Image); err != nil {
			t.Errorf("Save(%s) failed: %v", name, err)
			continue
		}
		if st, err := os.Stat(path); err != nil || st.Size() == 0 {
			t.Errorf("Save(%s) wrote nothing", name)
		}
	}
	if err := Save(filepath.Join(dir, "out.gif"), res.Image); err == nil {
		t.Errorf("Save() should reject .gif")
	}
}
