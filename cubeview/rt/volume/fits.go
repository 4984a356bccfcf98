package volume

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/bmatthieu3/fits3/cubeview/rt/core"

	"github.com/h2non/filetype"
)

const (
	blockSize  = 2880
	cardSize   = 80
	maxHeaders = 1 << 14 // blocks; guards against files without END
)

// DataCube is a parsed 3-D sample grid, f32 little-endian, x fastest.
type DataCube struct {
	Extents core.Extents
	Samples []byte

	Object string
	Bitpix int
}

// ParseCube reads the primary HDU of a FITS file. Gzip-compressed input is
// inflated first. Every failure wraps core.ErrInvalidCube.
func ParseCube(data []byte) (DataCube, error) {
	if filetype.Is(data, "gz") {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return DataCube{}, invalid("gzip: %v", err)
		}
		inflated, err := io.ReadAll(zr)
		if err != nil {
			return DataCube{}, invalid("gzip: %v", err)
		}
		data = inflated
	}

	hdr, dataStart, err := readHeader(data)
	if err != nil {
		return DataCube{}, err
	}

	if simple, ok := hdr.logical("SIMPLE"); !ok || !simple {
		return DataCube{}, invalid("missing SIMPLE = T")
	}
	bitpix, ok, err := hdr.integer("BITPIX")
	if err != nil || !ok {
		return DataCube{}, invalid("missing or malformed BITPIX")
	}
	extents, err := hdr.extents()
	if err != nil {
		return DataCube{}, err
	}

	width := int(bitpix)
	if width < 0 {
		width = -width
	}
	if dataStart > len(data) {
		return DataCube{}, invalid("data unit truncated: header ends past the end of the file")
	}
	if _, err := extents.Bytes(core.BytesPerSample); err != nil {
		return DataCube{}, err
	}
	rawLen, err := extents.Bytes(uint64(width / 8))
	if err != nil {
		return DataCube{}, err
	}
	if have := uint64(len(data) - dataStart); have < rawLen {
		return DataCube{}, invalid("data unit truncated: have %d bytes, want %d", have, rawLen)
	}
	raw := data[dataStart : dataStart+int(rawLen)]

	bscale, ok, err := hdr.number("BSCALE")
	if err != nil {
		return DataCube{}, err
	}
	if !ok {
		bscale = 1
	}
	bzero, _, err := hdr.number("BZERO")
	if err != nil {
		return DataCube{}, err
	}
	blank, hasBlank, err := hdr.integer("BLANK")
	if err != nil {
		return DataCube{}, err
	}

	samples, err := convertSamples(raw, int(bitpix), bscale, bzero, blank, hasBlank)
	if err != nil {
		return DataCube{}, err
	}

	object, _ := hdr.text("OBJECT")
	return DataCube{
		Extents: extents,
		Samples: samples,
		Object:  object,
		Bitpix:  int(bitpix),
	}, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrInvalidCube, fmt.Sprintf(format, args...))
}

type header struct {
	cards map[string]string
}

// readHeader collects the value fields of the primary header and returns
// the offset of the first data block.
func readHeader(data []byte) (header, int, error) {
	h := header{cards: make(map[string]string)}
	if len(data) < blockSize {
		return h, 0, invalid("file shorter than one FITS block")
	}
	for off := 0; off+cardSize <= len(data); off += cardSize {
		if off/blockSize >= maxHeaders {
			break
		}
		card := string(data[off : off+cardSize])
		key := strings.TrimRight(card[:8], " ")
		if key == "END" {
			end := off + cardSize
			if rem := end % blockSize; rem != 0 {
				end += blockSize - rem
			}
			return h, end, nil
		}
		if key == "" || card[8:10] != "= " {
			continue // COMMENT, HISTORY, blank cards
		}
		if _, dup := h.cards[key]; !dup {
			h.cards[key] = card[10:]
		}
	}
	return h, 0, invalid("header has no END card")
}

// value strips the inline comment from a card value.
func (h header) value(key string) (string, bool) {
	v, ok := h.cards[key]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "'") {
		return v, true
	}
	if i := strings.IndexByte(v, '/'); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	return v, true
}

func (h header) integer(key string) (int64, bool, error) {
	v, ok := h.value(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, true, invalid("%s is not an integer: %q", key, v)
	}
	return n, true, nil
}

func (h header) number(key string) (float64, bool, error) {
	v, ok := h.value(key)
	if !ok {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(strings.Replace(v, "D", "E", 1), 64)
	if err != nil {
		return 0, true, invalid("%s is not a number: %q", key, v)
	}
	return f, true, nil
}

func (h header) logical(key string) (bool, bool) {
	v, ok := h.value(key)
	if !ok {
		return false, false
	}
	return v == "T", v == "T" || v == "F"
}

func (h header) text(key string) (string, bool) {
	v, ok := h.value(key)
	if !ok || !strings.HasPrefix(v, "'") {
		return "", false
	}
	v = v[1:]
	if i := strings.LastIndexByte(v, '\''); i >= 0 {
		v = v[:i]
	}
	return strings.TrimRight(strings.ReplaceAll(v, "''", "'"), " "), true
}

// extents maps NAXIS1..3 to the cube. A fourth axis is accepted when one of
// the last two axes is degenerate (size 1), as in radio cubes carrying a
// Stokes axis.
func (h header) extents() (core.Extents, error) {
	naxis, ok, err := h.integer("NAXIS")
	if err != nil || !ok {
		return core.Extents{}, invalid("missing or malformed NAXIS")
	}
	if naxis < 3 || naxis > 4 {
		return core.Extents{}, invalid("NAXIS = %d, want 3 or 4", naxis)
	}

	var axes [4]int64
	for i := int64(1); i <= naxis; i++ {
		key := fmt.Sprintf("NAXIS%d", i)
		n, ok, err := h.integer(key)
		if err != nil {
			return core.Extents{}, err
		}
		if !ok || n < 1 || n > math.MaxUint32 {
			return core.Extents{}, invalid("%s must be a positive integer", key)
		}
		axes[i-1] = n
	}

	depth := axes[2]
	if naxis == 4 {
		switch {
		case axes[3] == 1:
		case axes[2] == 1:
			depth = axes[3]
		default:
			return core.Extents{}, invalid("4-D data %dx%dx%dx%d has no degenerate axis", axes[0], axes[1], axes[2], axes[3])
		}
	}
	return core.Extents{W: uint32(axes[0]), H: uint32(axes[1]), D: uint32(depth)}, nil
}

// convertSamples turns big-endian FITS data into scaled little-endian f32.
// Integer BLANK values become NaN.
func convertSamples(raw []byte, bitpix int, bscale, bzero float64, blank int64, hasBlank bool) ([]byte, error) {
	var size int
	switch bitpix {
	case 8:
		size = 1
	case 16:
		size = 2
	case 32, -32:
		size = 4
	case 64, -64:
		size = 8
	default:
		return nil, invalid("unsupported BITPIX %d", bitpix)
	}

	n := len(raw) / size
	out := make([]byte, n*core.BytesPerSample)
	identity := bscale == 1 && bzero == 0

	for i := 0; i < n; i++ {
		p := raw[i*size:]
		var v float64
		isBlank := false
		switch bitpix {
		case 8:
			iv := int64(p[0])
			isBlank = hasBlank && iv == blank
			v = float64(iv)
		case 16:
			iv := int64(int16(binary.BigEndian.Uint16(p)))
			isBlank = hasBlank && iv == blank
			v = float64(iv)
		case 32:
			iv := int64(int32(binary.BigEndian.Uint32(p)))
			isBlank = hasBlank && iv == blank
			v = float64(iv)
		case 64:
			iv := int64(binary.BigEndian.Uint64(p))
			isBlank = hasBlank && iv == blank
			v = float64(iv)
		case -32:
			bits := binary.BigEndian.Uint32(p)
			if identity {
				binary.LittleEndian.PutUint32(out[i*4:], bits)
				continue
			}
			v = float64(math.Float32frombits(bits))
		case -64:
			v = math.Float64frombits(binary.BigEndian.Uint64(p))
		}

		f := float32(math.NaN())
		if !isBlank {
			f = float32(v*bscale + bzero)
		}
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out, nil
}
