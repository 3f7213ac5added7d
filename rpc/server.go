package rpc

import (
	"io"
	"net"
	"runtime"
	"time"

	"aqwari.net/retry"
	"github.com/google/uuid"

	"github.com/u-root/cpu/session"
)

// Logger is the minimal logging surface Server needs. A *log.Logger
// satisfies it.
type Logger interface {
	Printf(format string, v ...interface{})
}

// Manager is the session lifecycle a Server dispatches RPC calls onto.
// *session.Manager implements it.
type Manager interface {
	Dial() (uuid.UUID, error)
	Start(id uuid.UUID, cmd session.CommandReq) error
	Stdin(id uuid.UUID, r io.Reader) error
	Stdout(id uuid.UUID) (io.Reader, error)
	Stderr(id uuid.UUID) (io.Reader, error)
	NinepForward(id uuid.UUID, stream io.ReadWriter) error
	Wait(id uuid.UUID) (int32, error)
}

// Server accepts connections, each of which performs exactly one
// session method call before closing.
type Server struct {
	Mgr Manager
	Log Logger
}

func (s *Server) logf(format string, v ...interface{}) {
	if s.Log != nil {
		s.Log.Printf(format, v...)
	}
}

// Serve runs the accept loop until l.Accept returns a non-temporary
// error, backing off exponentially on temporary ones.
func (s *Server) Serve(l net.Listener) error {
	type tempErr interface {
		Temporary() bool
	}
	backoff := retry.Exponential(time.Millisecond).Max(time.Second)
	try := 0
	for {
		conn, err := l.Accept()
		if err != nil {
			if te, ok := err.(tempErr); ok && te.Temporary() {
				try++
				s.logf("rpc: accept error: %v; retrying in %v", err, backoff(try))
				time.Sleep(backoff(try))
				continue
			}
			return err
		}
		try = 0
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer func() {
		if err := recover(); err != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			s.logf("rpc: panic serving %v: %v\n%s", conn.RemoteAddr(), err, buf)
		}
		conn.Close()
	}()

	method, err := readMethod(conn)
	if err != nil {
		return
	}

	var sid uuid.UUID
	if method != MethodDial {
		if sid, err = readSID(conn); err != nil {
			return
		}
	}

	switch method {
	case MethodDial:
		s.handleDial(conn)
	case MethodStart:
		s.handleStart(conn, sid)
	case MethodStdin:
		s.handleStdin(conn, sid)
	case MethodStdout:
		s.handleStdout(conn, sid)
	case MethodStderr:
		s.handleStderr(conn, sid)
	case MethodNinepForward:
		s.handleNinepForward(conn, sid)
	case MethodWait:
		s.handleWait(conn, sid)
	default:
		s.logf("rpc: unknown method %d from %v", method, conn.RemoteAddr())
	}
}

func (s *Server) handleDial(conn net.Conn) {
	id, err := s.Mgr.Dial()
	if err != nil {
		writeErr(conn, err)
		return
	}
	if err := writeOK(conn); err != nil {
		return
	}
	writeSID(conn, id)
}

func (s *Server) handleStart(conn net.Conn, sid uuid.UUID) {
	raw, err := readChunk(conn, maxCommandReqSize)
	if err != nil {
		return
	}
	cmd, err := session.DecodeCommandReq(raw)
	if err != nil {
		writeErr(conn, err)
		return
	}
	if err := s.Mgr.Start(sid, cmd); err != nil {
		writeErr(conn, err)
		return
	}
	writeOK(conn)
}

func (s *Server) handleStdin(conn net.Conn, sid uuid.UUID) {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() { done <- s.Mgr.Stdin(sid, pr) }()
	for {
		chunk, err := readChunk(conn, maxChunk)
		if err != nil {
			pw.CloseWithError(err)
			<-done
			return
		}
		if chunk == nil {
			pw.Close()
			break
		}
		if _, err := pw.Write(chunk); err != nil {
			pw.CloseWithError(err)
			<-done
			return
		}
	}
	err := <-done
	if err != nil {
		writeErr(conn, err)
		return
	}
	writeOK(conn)
}

func (s *Server) handleStdout(conn net.Conn, sid uuid.UUID) {
	r, err := s.Mgr.Stdout(sid)
	if err != nil {
		writeErr(conn, err)
		return
	}
	if err := writeOK(conn); err != nil {
		return
	}
	streamOut(conn, r)
}

func (s *Server) handleStderr(conn net.Conn, sid uuid.UUID) {
	r, err := s.Mgr.Stderr(sid)
	if err != nil {
		writeErr(conn, err)
		return
	}
	if err := writeOK(conn); err != nil {
		return
	}
	streamOut(conn, r)
}

func streamOut(conn net.Conn, r io.Reader) {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if werr := writeChunk(conn, buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			writeChunk(conn, nil)
			return
		}
	}
}

// handleNinepForward does not speak the status-byte handshake every
// other method uses: once past the method and session id, this
// connection carries raw 9P frames for the lifetime of the session, so
// there is no room to interleave a framing byte. A caller learns of a
// missing session only by the connection closing immediately.
func (s *Server) handleNinepForward(conn net.Conn, sid uuid.UUID) {
	if err := s.Mgr.NinepForward(sid, conn); err != nil {
		s.logf("rpc: ninepforward %s: %v", sid, err)
	}
}

func (s *Server) handleWait(conn net.Conn, sid uuid.UUID) {
	code, err := s.Mgr.Wait(sid)
	if err != nil {
		writeErr(conn, err)
		return
	}
	if err := writeOK(conn); err != nil {
		return
	}
	var b [4]byte
	b[0] = byte(code)
	b[1] = byte(code >> 8)
	b[2] = byte(code >> 16)
	b[3] = byte(code >> 24)
	conn.Write(b[:])
}
