package filterbank

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	headerStart = "HEADER_START"
	headerEnd   = "HEADER_END"

	// maxStringLen guards against reading garbage as a string length.
	maxStringLen = 4096
)

var (
	ErrBadHeader       = errors.New("malformed filterbank header")
	ErrUnsupportedBits = errors.New("unsupported number of bits per sample")
)

type kind int

const (
	kindInt kind = iota
	kindFloat
	kindString
	kindChar
)

// headerKinds lists the SIGPROC keywords and how their values are encoded.
var headerKinds = map[string]kind{
	"rawdatafile":   kindString,
	"source_name":   kindString,
	"telescope_id":  kindInt,
	"machine_id":    kindInt,
	"data_type":     kindInt,
	"barycentric":   kindInt,
	"pulsarcentric": kindInt,
	"nbits":         kindInt,
	"nsamples":      kindInt,
	"nchans":        kindInt,
	"nifs":          kindInt,
	"nbeams":        kindInt,
	"ibeam":         kindInt,
	"tstart":        kindFloat,
	"tsamp":         kindFloat,
	"fch1":          kindFloat,
	"foff":          kindFloat,
	"refdm":         kindFloat,
	"az_start":      kindFloat,
	"za_start":      kindFloat,
	"src_raj":       kindFloat,
	"src_dej":       kindFloat,
	"period":        kindFloat,
	"signed":        kindChar,
}

// Field is a single keyword/value pair. Value holds an int32, float64,
// string or byte depending on the keyword.
type Field struct {
	Key   string
	Value interface{}
}

// Header is a SIGPROC header. Fields keep the order they were read in so
// an unmodified header serializes to the same bytes.
type Header struct {
	fields []Field
}

func (h *Header) Fields() []Field {
	return append([]Field(nil), h.fields...)
}

func (h *Header) Has(key string) bool {
	return h.index(key) >= 0
}

func (h *Header) index(key string) int {
	for i, f := range h.fields {
		if f.Key == key {
			return i
		}
	}
	return -1
}

func (h *Header) Int(key string) (int, bool) {
	i := h.index(key)
	if i < 0 {
		return 0, false
	}
	switch v := h.fields[i].Value.(type) {
	case int32:
		return int(v), true
	case byte:
		return int(v), true
	}
	return 0, false
}

func (h *Header) Float(key string) (float64, bool) {
	i := h.index(key)
	if i < 0 {
		return 0, false
	}
	v, ok := h.fields[i].Value.(float64)
	return v, ok
}

func (h *Header) Text(key string) (string, bool) {
	i := h.index(key)
	if i < 0 {
		return "", false
	}
	v, ok := h.fields[i].Value.(string)
	return v, ok
}

// Set replaces the value of key in place, or appends it when absent.
func (h *Header) Set(key string, value interface{}) error {
	k, ok := headerKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown keyword %q", ErrBadHeader, key)
	}
	switch k {
	case kindInt:
		switch v := value.(type) {
		case int:
			if v < math.MinInt32 || v > math.MaxInt32 {
				return fmt.Errorf("%w: value %d for %q overflows int32", ErrBadHeader, v, key)
			}
			value = int32(v)
		case int32:
		default:
			return fmt.Errorf("%w: %q needs an integer, got %T", ErrBadHeader, key, value)
		}
	case kindFloat:
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("%w: %q needs a float64, got %T", ErrBadHeader, key, value)
		}
	case kindString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%w: %q needs a string, got %T", ErrBadHeader, key, value)
		}
	case kindChar:
		if _, ok := value.(byte); !ok {
			return fmt.Errorf("%w: %q needs a byte, got %T", ErrBadHeader, key, value)
		}
	}

	if i := h.index(key); i >= 0 {
		h.fields[i].Value = value
		return nil
	}
	h.fields = append(h.fields, Field{Key: key, Value: value})
	return nil
}

// Clone returns a deep copy. All values are immutable scalars or strings.
func (h *Header) Clone() *Header {
	return &Header{fields: h.Fields()}
}

func readString(r io.Reader) (string, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n <= 0 || n > maxStringLen {
		return "", fmt.Errorf("%w: string length %d out of range", ErrBadHeader, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// countingReader tracks how many bytes the header occupies.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// ReadHeader decodes a header from r and returns it along with its size in
// bytes. r is left positioned at the first sample.
func ReadHeader(r io.Reader) (*Header, int64, error) {
	cr := &countingReader{r: r}
	start, err := readString(cr)
	if err != nil {
		return nil, cr.n, fmt.Errorf("%w: unable to read start marker: %s", ErrBadHeader, err)
	}
	if start != headerStart {
		return nil, cr.n, fmt.Errorf("%w: expected %s, got %q", ErrBadHeader, headerStart, start)
	}

	h := &Header{}
	for {
		key, err := readString(cr)
		if err != nil {
			return nil, cr.n, fmt.Errorf("%w: unable to read keyword: %s", ErrBadHeader, err)
		}
		if key == headerEnd {
			break
		}
		k, ok := headerKinds[key]
		if !ok {
			return nil, cr.n, fmt.Errorf("%w: unknown keyword %q", ErrBadHeader, key)
		}

		var value interface{}
		switch k {
		case kindInt:
			var v int32
			err = binary.Read(cr, binary.LittleEndian, &v)
			value = v
		case kindFloat:
			var v float64
			err = binary.Read(cr, binary.LittleEndian, &v)
			value = v
		case kindChar:
			var v byte
			err = binary.Read(cr, binary.LittleEndian, &v)
			value = v
		case kindString:
			value, err = readString(cr)
		}
		if err != nil {
			return nil, cr.n, fmt.Errorf("%w: unable to read value of %q: %s", ErrBadHeader, key, err)
		}
		h.fields = append(h.fields, Field{Key: key, Value: value})
	}
	return h, cr.n, nil
}

// WriteHeader encodes h to w including start and end markers.
func WriteHeader(w io.Writer, h *Header) error {
	if err := writeString(w, headerStart); err != nil {
		return err
	}
	for _, f := range h.fields {
		if err := writeString(w, f.Key); err != nil {
			return err
		}
		var err error
		switch v := f.Value.(type) {
		case string:
			err = writeString(w, v)
		case int32, float64, byte:
			err = binary.Write(w, binary.LittleEndian, v)
		default:
			err = fmt.Errorf("%w: cannot encode %T for %q", ErrBadHeader, f.Value, f.Key)
		}
		if err != nil {
			return err
		}
	}
	return writeString(w, headerEnd)
}
