// Package rpc implements the wire protocol cpu's client and daemon use
// to drive a remote session: one connection per method call, each
// starting with a one-byte method code and (for every method but Dial)
// a 16-byte session id, framed the same length-prefixed way as the 9P
// codec rather than through a generated RPC stack.
package rpc

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/u-root/cpu/internal/errwriter"
)

// Method identifies which of the seven session operations a connection
// is performing. It is always the first byte written by the dialing
// side.
type Method uint8

const (
	MethodDial Method = iota + 1
	MethodStart
	MethodStdin
	MethodStdout
	MethodStderr
	MethodNinepForward
	MethodWait
)

func (m Method) String() string {
	switch m {
	case MethodDial:
		return "Dial"
	case MethodStart:
		return "Start"
	case MethodStdin:
		return "Stdin"
	case MethodStdout:
		return "Stdout"
	case MethodStderr:
		return "Stderr"
	case MethodNinepForward:
		return "NinepForward"
	case MethodWait:
		return "Wait"
	default:
		return fmt.Sprintf("Method(%d)", uint8(m))
	}
}

// status bytes. A status other than statusOK is always followed by a
// length-prefixed UTF-8 error message.
const (
	statusOK byte = iota
	statusErr
)

func writeMethod(w io.Writer, m Method) error {
	_, err := w.Write([]byte{byte(m)})
	return err
}

func readMethod(r io.Reader) (Method, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return Method(b[0]), nil
}

func writeSID(w io.Writer, id uuid.UUID) error {
	b, err := id.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func readSID(r io.Reader) (uuid.UUID, error) {
	var b [16]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return uuid.UUID{}, err
	}
	return uuid.FromBytes(b[:])
}

func writeOK(w io.Writer) error {
	_, err := w.Write([]byte{statusOK})
	return err
}

func writeErr(w io.Writer, e error) error {
	msg := e.Error()
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(msg)))
	ew := &errwriter.Writer{W: w}
	ew.Write([]byte{statusErr})
	ew.Write(hdr[:])
	ew.Write([]byte(msg))
	return ew.Err
}

// readStatus reads a status byte and, if it reports an error, the
// message that follows it.
func readStatus(r io.Reader) error {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	if b[0] == statusOK {
		return nil
	}
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return err
	}
	n := binary.LittleEndian.Uint32(hdr[:])
	msg := make([]byte, n)
	if _, err := io.ReadFull(r, msg); err != nil {
		return err
	}
	return &RemoteError{Message: string(msg)}
}

// writeChunk writes one length-prefixed frame of a stream, or a
// zero-length frame to mark end of stream.
func writeChunk(w io.Writer, p []byte) error {
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(p)))
	ew := &errwriter.Writer{W: w}
	ew.Write(hdr[:])
	if len(p) > 0 {
		ew.Write(p)
	}
	return ew.Err
}

// readChunk reads one length-prefixed frame. A zero-length result with
// a nil error marks end of stream.
func readChunk(r io.Reader, maxLen uint32) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(hdr[:])
	if n > maxLen {
		return nil, fmt.Errorf("rpc: chunk of %d bytes exceeds limit %d", n, maxLen)
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// maxChunk bounds a single Stdin/Stdout/Stderr frame.
const maxChunk = 1 << 20

// maxCommandReqSize bounds the serialized CommandReq a Start call may
// carry.
const maxCommandReqSize = 1 << 20

// RemoteError wraps an error message that crossed the wire from the
// other side of an rpc call.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return e.Message }
