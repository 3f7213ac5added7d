package p9

import (
	"encoding/binary"
	"errors"
	"io"
	"unicode/utf8"
)

var (
	getUint16 = binary.LittleEndian.Uint16
	getUint32 = binary.LittleEndian.Uint32
	getUint64 = binary.LittleEndian.Uint64

	putUint16 = binary.LittleEndian.PutUint16
	putUint32 = binary.LittleEndian.PutUint32
	putUint64 = binary.LittleEndian.PutUint64
)

// ErrTruncated is returned when a frame ends before a field that the
// message's type says should be present. A truncated frame is a
// protocol error: per the design, it terminates the connection.
var ErrTruncated = errors.New("p9: truncated message")

// ErrInvalidUTF8 is returned when a string field does not decode as
// valid UTF-8.
var ErrInvalidUTF8 = errors.New("p9: string field is not valid utf8")

// ErrMessageTooLong is returned by Encode when a field (most commonly
// a Data payload) would overflow its wire-format length prefix.
var ErrMessageTooLong = errors.New("p9: message too long to encode")

// A Decoder reads fields off of an already-framed message body in
// declaration order, tracking position and surfacing short reads as
// ErrTruncated. It is the struct-oriented analogue of the position
// tracking styxproto does with raw offsets into a byte slice.
type Decoder struct {
	b   []byte
	pos int
}

// NewDecoder wraps the body of a single framed message (everything
// after the 4-byte size prefix) for sequential field decoding.
func NewDecoder(body []byte) *Decoder {
	return &Decoder{b: body}
}

func (d *Decoder) take(n int) ([]byte, error) {
	if d.pos+n > len(d.b) {
		return nil, ErrTruncated
	}
	b := d.b[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) u8() (uint8, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Decoder) u16() (uint16, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return getUint16(b), nil
}

func (d *Decoder) u32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return getUint32(b), nil
}

func (d *Decoder) u64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return getUint64(b), nil
}

func (d *Decoder) str() (string, error) {
	n, err := d.u16()
	if err != nil {
		return "", err
	}
	b, err := d.take(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}

func (d *Decoder) strList() ([]string, error) {
	n, err := d.u16()
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		out[i], err = d.str()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *Decoder) qid() (Qid, error) {
	return decodeQid(d)
}

func (d *Decoder) qidList(n int) ([]Qid, error) {
	out := make([]Qid, n)
	for i := range out {
		q, err := d.qid()
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

// bytesField consumes a 4-byte length-prefixed byte blob, used for
// Data (Tread/Twrite payloads).
func (d *Decoder) bytesField() ([]byte, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	b, err := d.take(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// remaining returns any trailing bytes not yet consumed. Used to
// accept and discard the reserved trailing fields of Rgetattr.
func (d *Decoder) remaining() []byte {
	return d.b[d.pos:]
}

// An encoder accumulates the body of one message (type, tag, and
// fields) before it is framed and written out by writeFrame.
type encoder struct {
	buf []byte
}

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) u16(v uint16) { var b [2]byte; putUint16(b[:], v); e.buf = append(e.buf, b[:]...) }
func (e *encoder) u32(v uint32) { var b [4]byte; putUint32(b[:], v); e.buf = append(e.buf, b[:]...) }
func (e *encoder) u64(v uint64) { var b [8]byte; putUint64(b[:], v); e.buf = append(e.buf, b[:]...) }

func (e *encoder) str(s string) error {
	if len(s) > 0xFFFF {
		return ErrMessageTooLong
	}
	e.u16(uint16(len(s)))
	e.buf = append(e.buf, s...)
	return nil
}

func (e *encoder) strList(ss []string) error {
	if len(ss) > 0xFFFF {
		return ErrMessageTooLong
	}
	e.u16(uint16(len(ss)))
	for _, s := range ss {
		if err := e.str(s); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) qid(q Qid) {
	var b [QidLen]byte
	b[0] = q.Type
	putUint32(b[1:5], q.Version)
	putUint64(b[5:13], q.Path)
	e.buf = append(e.buf, b[:]...)
}

func (e *encoder) qidList(qs []Qid) error {
	if len(qs) > 0xFFFF {
		return ErrMessageTooLong
	}
	e.u16(uint16(len(qs)))
	for _, q := range qs {
		e.qid(q)
	}
	return nil
}

func (e *encoder) bytesField(p []byte) error {
	if uint64(len(p)) > 0xFFFFFFFF {
		return ErrMessageTooLong
	}
	e.u32(uint32(len(p)))
	e.buf = append(e.buf, p...)
	return nil
}

// writeFrame prepends the 4-byte little-endian size prefix (the count
// of bytes that follow the prefix itself, per the framing rule) and
// writes the whole frame to w in one call.
func writeFrame(w io.Writer, body []byte) error {
	frame := make([]byte, 4+len(body))
	putUint32(frame[:4], uint32(len(body)))
	copy(frame[4:], body)
	_, err := w.Write(frame)
	return err
}

// ReadFrame reads one length-prefixed 9P2000.L frame from r: a 4-byte
// little-endian size, then exactly that many bytes. The returned slice
// is the frame body (type, tag, and fields) with the size prefix
// removed.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := getUint32(hdr[:])
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

// ParseHeader splits a frame body (as returned by ReadFrame) into its
// message type, tag, and the remaining fields.
func ParseHeader(body []byte) (mtype uint8, tag uint16, rest []byte, err error) {
	if len(body) < 3 {
		return 0, 0, nil, ErrTruncated
	}
	return body[0], getUint16(body[1:3]), body[3:], nil
}
