package rpc

import (
	"io"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/u-root/cpu/session"
)

// Client dials a cpu daemon's rpc.Server to drive one remote session.
// Every method opens its own connection, per the package doc.
type Client struct {
	Network string
	Address string
}

func (c *Client) dial() (net.Conn, error) {
	return DialAddr(c.Network, c.Address)
}

// Dial allocates a new session id on the daemon.
func (c *Client) Dial() (uuid.UUID, error) {
	conn, err := c.dial()
	if err != nil {
		return uuid.UUID{}, err
	}
	defer conn.Close()
	if err := writeMethod(conn, MethodDial); err != nil {
		return uuid.UUID{}, err
	}
	if err := readStatus(conn); err != nil {
		return uuid.UUID{}, err
	}
	return readSID(conn)
}

// Start hands the daemon the command to run for id.
func (c *Client) Start(id uuid.UUID, cmd session.CommandReq) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := writeMethod(conn, MethodStart); err != nil {
		return err
	}
	if err := writeSID(conn, id); err != nil {
		return err
	}
	if err := writeChunk(conn, cmd.Encode()); err != nil {
		return err
	}
	return readStatus(conn)
}

// Stdin copies r to the remote command's standard input, then signals
// EOF. It blocks until r is exhausted and the daemon acknowledges.
func (c *Client) Stdin(id uuid.UUID, r io.Reader) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := writeMethod(conn, MethodStdin); err != nil {
		return err
	}
	if err := writeSID(conn, id); err != nil {
		return err
	}
	buf := make([]byte, 32*1024)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if werr := writeChunk(conn, buf[:n]); werr != nil {
				return werr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	if err := writeChunk(conn, nil); err != nil {
		return err
	}
	return readStatus(conn)
}

// stream is the io.ReadCloser returned by Stdout/Stderr: it reads
// length-prefixed chunks off its connection until a zero-length chunk
// marks end of stream, and owns closing the connection.
type stream struct {
	conn net.Conn
	buf  []byte
	once sync.Once
	err  error
}

func (s *stream) Read(p []byte) (int, error) {
	for len(s.buf) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		chunk, err := readChunk(s.conn, maxChunk)
		if err != nil {
			s.err = err
			return 0, err
		}
		if chunk == nil {
			s.err = io.EOF
			return 0, io.EOF
		}
		s.buf = chunk
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

func (s *stream) Close() error {
	var err error
	s.once.Do(func() { err = s.conn.Close() })
	return err
}

// Stdout returns a reader over the remote command's standard output.
func (c *Client) Stdout(id uuid.UUID) (io.ReadCloser, error) {
	return c.openStream(MethodStdout, id)
}

// Stderr returns a reader over the remote command's standard error.
func (c *Client) Stderr(id uuid.UUID) (io.ReadCloser, error) {
	return c.openStream(MethodStderr, id)
}

func (c *Client) openStream(m Method, id uuid.UUID) (io.ReadCloser, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	if err := writeMethod(conn, m); err != nil {
		conn.Close()
		return nil, err
	}
	if err := writeSID(conn, id); err != nil {
		conn.Close()
		return nil, err
	}
	if err := readStatus(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &stream{conn: conn}, nil
}

// NinepForward dials the daemon and pipes raw 9P frames between local
// and the daemon's copy of this session's reverse mount. It blocks
// until local or the daemon side closes.
func (c *Client) NinepForward(id uuid.UUID, local io.ReadWriter) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := writeMethod(conn, MethodNinepForward); err != nil {
		return err
	}
	if err := writeSID(conn, id); err != nil {
		return err
	}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		io.Copy(conn, local)
		if tc, ok := conn.(*net.TCPConn); ok {
			tc.CloseWrite()
		}
	}()
	go func() {
		defer wg.Done()
		io.Copy(local, conn)
	}()
	wg.Wait()
	return nil
}

// Wait blocks until the remote command exits, returning its exit code.
func (c *Client) Wait(id uuid.UUID) (int32, error) {
	conn, err := c.dial()
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	if err := writeMethod(conn, MethodWait); err != nil {
		return 0, err
	}
	if err := writeSID(conn, id); err != nil {
		return 0, err
	}
	if err := readStatus(conn); err != nil {
		return 0, err
	}
	var b [4]byte
	if _, err := io.ReadFull(conn, b[:]); err != nil {
		return 0, err
	}
	code := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16 | int32(b[3])<<24
	return code, nil
}
