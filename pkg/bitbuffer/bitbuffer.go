package bitbuffer

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MaxRowBits is the number of bits a single row can hold.
	MaxRowBits = 1024
	// MaxRows is the number of rows a Buffer holds before new rows are dropped.
	MaxRows = 50
)

// Row is one demodulated frame's worth of bits, packed MSB-first into bytes.
// The bit length is tracked separately since the last byte may be partial.
type Row struct {
	data []byte
	bits int
}

// NewRow copies data into a row of the given bit length. The bit length is
// clamped to the number of bits data can hold.
func NewRow(data []byte, bits int) Row {
	if bits < 0 {
		bits = 0
	}
	if bits > len(data)*8 {
		bits = len(data) * 8
	}
	buf := make([]byte, (bits+7)/8)
	copy(buf, data)
	// clear bits past the end so equal rows compare equal
	if rem := bits % 8; rem != 0 {
		buf[len(buf)-1] &= 0xff << uint(8-rem)
	}
	return Row{data: buf, bits: bits}
}

// RowFromBytes returns a row holding every bit of data.
func RowFromBytes(data []byte) Row {
	return NewRow(data, len(data)*8)
}

// Len returns the number of bits in the row.
func (r Row) Len() int { return r.bits }

// NumBytes returns the number of bytes backing the row, including a partial last byte.
func (r Row) NumBytes() int { return len(r.data) }

// Byte returns byte i of the row. Callers must check NumBytes first.
func (r Row) Byte(i int) byte { return r.data[i] }

// Bytes returns a copy of the row contents.
func (r Row) Bytes() []byte {
	return append([]byte(nil), r.data...)
}

// Bit returns bit i of the row, counting MSB-first from the start of byte 0.
// Callers must check Len first.
func (r Row) Bit(i int) byte {
	return (r.data[i/8] >> (7 - uint(i%8))) & 0x01
}

// Equal reports whether both rows hold the same bits.
func (r Row) Equal(o Row) bool {
	if r.bits != o.bits {
		return false
	}
	for i := range r.data {
		if r.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

// String renders the row as {bits}hex, the notation accepted by ParseRow.
func (r Row) String() string {
	return fmt.Sprintf("{%d}%s", r.bits, hex.EncodeToString(r.data))
}

// ParseRow parses "{48}fe43c1d6829b" or plain hex ("fe43c1d6829b"). Spaces
// and an optional 0x prefix are ignored. Without a bit count every nibble counts.
func ParseRow(s string) (Row, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	bits := -1
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return Row{}, fmt.Errorf("parse row %q: unterminated bit count", s)
		}
		n, err := strconv.Atoi(s[1:end])
		if err != nil {
			return Row{}, fmt.Errorf("parse row %q: %w", s, err)
		}
		if n < 0 {
			return Row{}, fmt.Errorf("parse row %q: negative bit count", s)
		}
		bits = n
		s = s[end+1:]
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	if bits < 0 {
		bits = len(s) * 4
	}
	if len(s)%2 == 1 {
		s += "0"
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return Row{}, fmt.Errorf("parse row: %w", err)
	}
	if bits > len(data)*8 {
		return Row{}, fmt.Errorf("parse row: bit count %d exceeds %d available bits", bits, len(data)*8)
	}
	return NewRow(data, bits), nil
}

// Buffer collects bits into rows as they come out of a slicer.
type Buffer struct {
	rows [][]byte
	bits []int
}

// AddBit appends one bit (0 or 1) to the current row, starting a row if none
// exists. Bits beyond MaxRowBits are dropped.
func (b *Buffer) AddBit(bit byte) {
	if len(b.rows) == 0 {
		b.NewRow()
	}
	cur := len(b.rows) - 1
	n := b.bits[cur]
	if n >= MaxRowBits {
		return
	}
	if n%8 == 0 {
		b.rows[cur] = append(b.rows[cur], 0)
	}
	if bit&0x01 == 1 {
		b.rows[cur][n/8] |= 0x80 >> uint(n%8)
	}
	b.bits[cur] = n + 1
}

// NewRow closes the current row and starts another. Empty rows are reused,
// and once MaxRows is reached further rows are dropped.
func (b *Buffer) NewRow() {
	if n := len(b.rows); n > 0 && b.bits[n-1] == 0 {
		return
	}
	if len(b.rows) >= MaxRows {
		return
	}
	b.rows = append(b.rows, make([]byte, 0, 8))
	b.bits = append(b.bits, 0)
}

// NumRows returns the number of rows, including an empty trailing row.
func (b *Buffer) NumRows() int { return len(b.rows) }

// Row returns row i as an independent copy.
func (b *Buffer) Row(i int) Row {
	return NewRow(b.rows[i], b.bits[i])
}

// Rows returns copies of every non-empty row in order.
func (b *Buffer) Rows() []Row {
	out := make([]Row, 0, len(b.rows))
	for i := range b.rows {
		if b.bits[i] == 0 {
			continue
		}
		out = append(out, b.Row(i))
	}
	return out
}

// Reset drops every row.
func (b *Buffer) Reset() {
	b.rows = b.rows[:0]
	b.bits = b.bits[:0]
}
