package pdf

import (
	"bytes"
	"compress/zlib"
	stdascii85 "encoding/ascii85"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// decodeFilters applies the stream's /Filter chain to its raw payload.
// FlateDecode payloads carry a zlib wrapper per PDF 7.4.4, and the
// optional /DecodeParms PNG predictors are undone after inflation.
func decodeFilters(dict Dict, raw []byte) ([]byte, error) {
	names, params := filterChain(dict)
	data := raw
	for i, name := range names {
		var parm Dict
		if i < len(params) {
			parm = params[i]
		}
		var err error
		switch name {
		case "FlateDecode", "Fl":
			data, err = flateDecode(data, parm)
		case "ASCIIHexDecode", "AHx":
			data, err = asciiHexDecode(data)
		case "ASCII85Decode", "A85":
			data, err = ascii85Decode(data)
		default:
			return nil, fmt.Errorf("pdf: unsupported filter %s", name)
		}
		if err != nil {
			return nil, fmt.Errorf("pdf: %s: %w", name, err)
		}
	}
	return data, nil
}

func filterChain(dict Dict) ([]Name, []Dict) {
	var names []Name
	switch v := dict["Filter"].(type) {
	case Name:
		names = []Name{v}
	case Array:
		for _, it := range v {
			if n, ok := it.(Name); ok {
				names = append(names, n)
			}
		}
	}
	var params []Dict
	switch p := dict["DecodeParms"].(type) {
	case Dict:
		params = []Dict{p}
	case Array:
		for _, it := range p {
			d, _ := it.(Dict)
			params = append(params, d)
		}
	}
	return names, params
}

func flateDecode(in []byte, parm Dict) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil {
		return nil, err
	}
	return applyPredictor(out.Bytes(), parm)
}

func asciiHexDecode(in []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(in)
	if i := bytes.IndexByte(trimmed, '>'); i >= 0 {
		trimmed = trimmed[:i]
	}
	trimmed = bytes.Map(dropWhitespace, trimmed)
	if len(trimmed)%2 == 1 {
		trimmed = append(trimmed, '0')
	}
	out := make([]byte, hex.DecodedLen(len(trimmed)))
	n, err := hex.Decode(out, trimmed)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

func dropWhitespace(r rune) rune {
	if r < 256 && isWhitespace(byte(r)) {
		return -1
	}
	return r
}

func ascii85Decode(in []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(in)
	trimmed = bytes.TrimPrefix(trimmed, []byte("<~"))
	trimmed = bytes.TrimSuffix(trimmed, []byte("~>"))
	out := make([]byte, len(trimmed)*2)
	n, _, err := stdascii85.Decode(out, trimmed, true)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// applyPredictor reverses the PNG row predictors (/Predictor >= 10)
// that cross-reference streams routinely use. TIFF predictor 2 is rare
// in the wild and not supported.
func applyPredictor(data []byte, parm Dict) ([]byte, error) {
	if parm == nil {
		return data, nil
	}
	pred, _ := parm.Int("Predictor")
	if pred <= 1 {
		return data, nil
	}
	if pred < 10 {
		return nil, fmt.Errorf("unsupported predictor %d", pred)
	}
	columns, ok := parm.Int("Columns")
	if !ok || columns <= 0 {
		columns = 1
	}
	colors, ok := parm.Int("Colors")
	if !ok || colors <= 0 {
		colors = 1
	}
	bpc, ok := parm.Int("BitsPerComponent")
	if !ok || bpc <= 0 {
		bpc = 8
	}
	bpp := int((colors*bpc + 7) / 8)
	rowLen := int((columns*colors*bpc + 7) / 8)
	if rowLen <= 0 {
		return nil, errors.New("bad predictor row length")
	}
	stride := rowLen + 1
	if len(data)%stride != 0 {
		return nil, errors.New("predictor data not row aligned")
	}
	out := make([]byte, 0, len(data)/stride*rowLen)
	prev := make([]byte, rowLen)
	row := make([]byte, rowLen)
	for off := 0; off < len(data); off += stride {
		tag := data[off]
		copy(row, data[off+1:off+stride])
		switch tag {
		case 0: // None
		case 1: // Sub
			for i := bpp; i < rowLen; i++ {
				row[i] += row[i-bpp]
			}
		case 2: // Up
			for i := 0; i < rowLen; i++ {
				row[i] += prev[i]
			}
		case 3: // Average
			for i := 0; i < rowLen; i++ {
				var left byte
				if i >= bpp {
					left = row[i-bpp]
				}
				row[i] += byte((int(left) + int(prev[i])) / 2)
			}
		case 4: // Paeth
			for i := 0; i < rowLen; i++ {
				var left, upLeft byte
				if i >= bpp {
					left = row[i-bpp]
					upLeft = prev[i-bpp]
				}
				row[i] += paeth(left, prev[i], upLeft)
			}
		default:
			return nil, fmt.Errorf("bad predictor row tag %d", tag)
		}
		out = append(out, row...)
		copy(prev, row)
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// flateEncode compresses data for newly written streams.
func flateEncode(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}
