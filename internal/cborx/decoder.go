package cborx

import "fmt"

// cursor is a minimal positional CBOR reader: each call consumes exactly
// one head or value and advances. Array/map length headers are
// informational only; nothing here enforces that a declared length matches
// how many items a caller actually goes on to read, since each rejection
// variant reads a tag-specific number of fields.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor { return &cursor{buf: buf} }

func (c *cursor) byte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, fmt.Errorf("cborx: unexpected end of input at offset %d", c.pos)
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// headFixed reads one CBOR head: the major type (0-7) and its argument.
func (c *cursor) headFixed() (byte, uint64, error) {
	b, err := c.byte()
	if err != nil {
		return 0, 0, err
	}
	major := b >> 5
	info := b & 0x1f

	switch {
	case info < 24:
		return major, uint64(info), nil
	case info == 24:
		v, err := c.byte()
		return major, uint64(v), err
	case info == 25, info == 26, info == 27:
		n := map[byte]int{25: 2, 26: 4, 27: 8}[info]
		var v uint64
		for i := 0; i < n; i++ {
			bb, err := c.byte()
			if err != nil {
				return 0, 0, err
			}
			v = v<<8 | uint64(bb)
		}
		return major, v, nil
	default:
		return 0, 0, fmt.Errorf("cborx: unsupported additional info %d", info)
	}
}

const (
	majorUint     = 0
	majorNegative = 1
	majorBytes    = 2
	majorText     = 3
	majorArray    = 4
	majorMap      = 5
	majorTag      = 6
	majorSimple   = 7
)

// Array consumes an array head and returns its declared length. Callers are
// not required to read exactly that many sub-values.
func (c *cursor) Array() (uint64, error) {
	major, n, err := c.headFixed()
	if err != nil {
		return 0, err
	}
	if major != majorArray {
		return 0, fmt.Errorf("cborx: expected array, got major type %d at offset %d", major, c.pos-1)
	}
	return n, nil
}

// Uint64 consumes an unsigned integer value.
func (c *cursor) Uint64() (uint64, error) {
	major, n, err := c.headFixed()
	if err != nil {
		return 0, err
	}
	if major != majorUint {
		return 0, fmt.Errorf("cborx: expected uint, got major type %d at offset %d", major, c.pos-1)
	}
	return n, nil
}

func (c *cursor) Uint16() (uint16, error) {
	v, err := c.Uint64()
	return uint16(v), err
}

// Bytes consumes a byte string.
func (c *cursor) Bytes() ([]byte, error) {
	major, n, err := c.headFixed()
	if err != nil {
		return nil, err
	}
	if major != majorBytes {
		return nil, fmt.Errorf("cborx: expected byte string, got major type %d at offset %d", major, c.pos-1)
	}
	if int(n) > len(c.buf)-c.pos {
		return nil, fmt.Errorf("cborx: byte string length %d exceeds remaining input", n)
	}
	out := c.buf[c.pos : c.pos+int(n)]
	c.pos += int(n)
	return out, nil
}

// TakeNullIfPresent reports whether the next value is CBOR null, consuming
// it if so. Used for the optional fields.
func (c *cursor) TakeNullIfPresent() (bool, error) {
	if c.pos >= len(c.buf) {
		return false, fmt.Errorf("cborx: unexpected end of input")
	}
	if c.buf[c.pos] == 0xf6 {
		c.pos++
		return true, nil
	}
	return false, nil
}

// Skip consumes exactly one complete CBOR value, recursing into
// arrays/maps/tags, without interpreting it. Used for ledger substructures
// (addresses, tx ins/outs, script hashes) whose exact shape this gateway
// does not need to reproduce field-by-field.
func (c *cursor) Skip() error {
	major, n, err := c.headFixed()
	if err != nil {
		return err
	}
	switch major {
	case majorUint, majorNegative:
		return nil
	case majorBytes, majorText:
		if int(n) > len(c.buf)-c.pos {
			return fmt.Errorf("cborx: string length %d exceeds remaining input", n)
		}
		c.pos += int(n)
		return nil
	case majorArray:
		for i := uint64(0); i < n; i++ {
			if err := c.Skip(); err != nil {
				return err
			}
		}
		return nil
	case majorMap:
		for i := uint64(0); i < n*2; i++ {
			if err := c.Skip(); err != nil {
				return err
			}
		}
		return nil
	case majorTag:
		return c.Skip()
	case majorSimple:
		return nil
	default:
		return fmt.Errorf("cborx: unsupported major type %d while skipping", major)
	}
}

// skippedHex returns the hex text of exactly one complete value, for use as
// an opaque payload in constructor strings whose ledger substructures this
// gateway does not model field-by-field.
func (c *cursor) skippedHex() (string, error) {
	start := c.pos
	if err := c.Skip(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", c.buf[start:c.pos]), nil
}
