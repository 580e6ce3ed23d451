package interchange

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/tabular/pkg/buffer"
	"github.com/ajitpratap0/tabular/pkg/compression"
	"github.com/ajitpratap0/tabular/pkg/dtype"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/frame"
	"github.com/ajitpratap0/tabular/pkg/pool"
)

// Snapshot layout, little endian throughout:
//
//	magic    [8]byte  "TBLSNAP1"
//	alg      string   compression algorithm tag
//	body     [u32-prefixed compressed bytes]
//
// body (after decompression):
//
//	nrows    u32
//	ncols    u32
//	rowLbls  [nrows]string
//	columns  ncols x { label string, kind string, payload }
//
// payload per kind: raw fixed-width values for numeric and temporal
// kinds, one byte per bool, length-prefixed strings, decimal digits as
// strings, then a mask flag byte with nrows mask bytes when set.
var snapshotMagic = [8]byte{'T', 'B', 'L', 'S', 'N', 'A', 'P', '1'}

// WriteSnapshot persists the frame to w with the given compression.
func WriteSnapshot(w io.Writer, f *frame.Frame, alg compression.Algorithm) error {
	comp, err := compression.NewCompressor(alg)
	if err != nil {
		return err
	}

	body := bytes.NewBuffer(pool.Bytes.Get())
	writeU32(body, uint32(f.NRows()))
	writeU32(body, uint32(f.NCols()))
	for _, l := range f.RowLabels() {
		writeString(body, l)
	}
	for c := 0; c < f.NCols(); c++ {
		s, err := f.ColAt(c)
		if err != nil {
			return err
		}
		writeString(body, s.Name())
		writeString(body, s.Kind().String())
		if err := writeColumn(body, s.Values()); err != nil {
			return err
		}
	}

	compressed, err := comp.Compress(body.Bytes())
	if err != nil {
		return err
	}
	if _, err := w.Write(snapshotMagic[:]); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "snapshot write")
	}
	var head bytes.Buffer
	writeString(&head, string(alg))
	writeU32(&head, uint32(len(compressed)))
	if _, err := w.Write(head.Bytes()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "snapshot write")
	}
	if _, err := w.Write(compressed); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "snapshot write")
	}
	// The none codec aliases the body, so the scratch goes back only
	// after the last write.
	pool.Bytes.Put(body.Bytes())
	return nil
}

// ReadSnapshot loads a frame written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*frame.Frame, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "snapshot read")
	}
	if magic != snapshotMagic {
		return nil, errors.New(errors.ErrorTypeData, "not a snapshot file")
	}
	algName, err := readStringFrom(r)
	if err != nil {
		return nil, err
	}
	alg, err := compression.ParseAlgorithm(algName)
	if err != nil {
		return nil, err
	}
	var clen uint32
	if err := binary.Read(r, binary.LittleEndian, &clen); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "snapshot read")
	}
	compressed := make([]byte, clen)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "snapshot read")
	}
	comp, err := compression.NewCompressor(alg)
	if err != nil {
		return nil, err
	}
	raw, err := comp.Decompress(compressed)
	if err != nil {
		return nil, err
	}

	body := bytes.NewReader(raw)
	nrows, err := readU32(body)
	if err != nil {
		return nil, err
	}
	ncols, err := readU32(body)
	if err != nil {
		return nil, err
	}
	rowLabels := make([]string, nrows)
	for i := range rowLabels {
		if rowLabels[i], err = readString(body); err != nil {
			return nil, err
		}
	}
	cols := make([]frame.Column, ncols)
	for c := range cols {
		label, err := readString(body)
		if err != nil {
			return nil, err
		}
		kindName, err := readString(body)
		if err != nil {
			return nil, err
		}
		kind, ok := dtype.ParseKind(kindName)
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeData, "unknown kind %q in snapshot", kindName)
		}
		buf, err := readColumn(body, kind, int(nrows))
		if err != nil {
			return nil, err
		}
		cols[c] = frame.Column{Label: label, Values: buf}
	}
	return frame.NewWithRowLabels(rowLabels, int(nrows), cols)
}

func writeColumn(w *bytes.Buffer, col *buffer.Buffer) error {
	n := col.Rows()
	switch col.Kind() {
	case dtype.Int64, dtype.Timestamp, dtype.Duration, dtype.NullableInt64:
		for _, v := range col.Int64s() {
			writeU64(w, uint64(v))
		}
	case dtype.Uint64:
		for _, v := range col.Uint64s() {
			writeU64(w, v)
		}
	case dtype.Float64:
		for _, v := range col.Float64s() {
			writeU64(w, math.Float64bits(v))
		}
	case dtype.Bool:
		for _, v := range col.Bools() {
			b := byte(0)
			if v {
				b = 1
			}
			w.WriteByte(b)
		}
	case dtype.String:
		for _, v := range col.Strings() {
			writeString(w, v)
		}
	case dtype.Decimal:
		for _, v := range col.Decimals() {
			writeString(w, v.String())
		}
	default:
		return errors.IncompatibleKind("snapshot-serializable kind", col.Kind().String())
	}
	mask := col.ValidMask()
	if mask == nil {
		w.WriteByte(0)
		return nil
	}
	w.WriteByte(1)
	for i := 0; i < n; i++ {
		b := byte(0)
		if mask[i] {
			b = 1
		}
		w.WriteByte(b)
	}
	return nil
}

func readColumn(r *bytes.Reader, kind dtype.Kind, nrows int) (*buffer.Buffer, error) {
	out := buffer.New(kind, nrows, 1)
	switch kind {
	case dtype.Int64, dtype.Timestamp, dtype.Duration, dtype.NullableInt64:
		for i := 0; i < nrows; i++ {
			v, err := readU64(r)
			if err != nil {
				return nil, err
			}
			out.Int64s()[i] = int64(v)
		}
	case dtype.Uint64:
		for i := 0; i < nrows; i++ {
			v, err := readU64(r)
			if err != nil {
				return nil, err
			}
			out.Uint64s()[i] = v
		}
	case dtype.Float64:
		for i := 0; i < nrows; i++ {
			v, err := readU64(r)
			if err != nil {
				return nil, err
			}
			out.Float64s()[i] = math.Float64frombits(v)
		}
	case dtype.Bool:
		for i := 0; i < nrows; i++ {
			b, err := r.ReadByte()
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "snapshot read")
			}
			out.Bools()[i] = b == 1
		}
	case dtype.String:
		for i := 0; i < nrows; i++ {
			s, err := readString(r)
			if err != nil {
				return nil, err
			}
			out.Strings()[i] = s
		}
	case dtype.Decimal:
		for i := 0; i < nrows; i++ {
			s, err := readString(r)
			if err != nil {
				return nil, err
			}
			d, err := decimal.NewFromString(s)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "snapshot decimal")
			}
			out.Decimals()[i] = d
		}
	default:
		return nil, errors.IncompatibleKind("snapshot-serializable kind", kind.String())
	}
	hasMask, err := r.ReadByte()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "snapshot read")
	}
	if hasMask == 1 {
		out.EnsureMask()
		mask := out.ValidMask()
		for i := 0; i < nrows; i++ {
			b, err := r.ReadByte()
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "snapshot read")
			}
			mask[i] = b == 1
		}
	}
	return out, nil
}

func writeU32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func writeU64(w *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.Write(b[:])
}

func writeString(w *bytes.Buffer, s string) {
	writeU32(w, uint32(len(s)))
	w.WriteString(s)
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeData, "snapshot read")
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readU64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeData, "snapshot read")
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeData, "snapshot read")
	}
	return string(b), nil
}

func readStringFrom(r io.Reader) (string, error) {
	var lb [4]byte
	if _, err := io.ReadFull(r, lb[:]); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeData, "snapshot read")
	}
	b := make([]byte, binary.LittleEndian.Uint32(lb[:]))
	if _, err := io.ReadFull(r, b); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeData, "snapshot read")
	}
	return string(b), nil
}
