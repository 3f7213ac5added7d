package rpc

import (
	"bytes"
	"io"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/u-root/cpu/internal/netutil"
	"github.com/u-root/cpu/session"
)

// fakeMgr is a stub session.Manager-shaped Manager for exercising the
// wire protocol without spawning any real process.
type fakeMgr struct {
	id      uuid.UUID
	started session.CommandReq
	stdin   bytes.Buffer
	stdout  string
	stderr  string
	code    int32
	waitErr error
}

func (m *fakeMgr) Dial() (uuid.UUID, error) { return m.id, nil }

func (m *fakeMgr) Start(id uuid.UUID, cmd session.CommandReq) error {
	if id != m.id {
		return session.ErrSessionNotExist
	}
	m.started = cmd
	return nil
}

func (m *fakeMgr) Stdin(id uuid.UUID, r io.Reader) error {
	if id != m.id {
		return session.ErrSessionNotExist
	}
	_, err := io.Copy(&m.stdin, r)
	return err
}

func (m *fakeMgr) Stdout(id uuid.UUID) (io.Reader, error) {
	if id != m.id {
		return nil, session.ErrSessionNotExist
	}
	return strings.NewReader(m.stdout), nil
}

func (m *fakeMgr) Stderr(id uuid.UUID) (io.Reader, error) {
	if id != m.id {
		return nil, session.ErrSessionNotExist
	}
	return strings.NewReader(m.stderr), nil
}

func (m *fakeMgr) NinepForward(id uuid.UUID, stream io.ReadWriter) error {
	if id != m.id {
		return session.ErrSessionNotExist
	}
	io.Copy(stream, stream)
	return nil
}

func (m *fakeMgr) Wait(id uuid.UUID) (int32, error) {
	if id != m.id {
		return 0, session.ErrSessionNotExist
	}
	return m.code, m.waitErr
}

func newTestServer(t *testing.T, mgr Manager) *netutil.PipeListener {
	t.Helper()
	l := &netutil.PipeListener{}
	srv := &Server{Mgr: mgr, Log: log.New(os.Stderr, "", 0)}
	go srv.Serve(l)
	return l
}

func TestDialAssignsSessionID(t *testing.T) {
	want := uuid.New()
	mgr := &fakeMgr{id: want}
	l := newTestServer(t, mgr)
	defer l.Close()

	conn, err := l.Dial()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := writeMethod(conn, MethodDial); err != nil {
		t.Fatal(err)
	}
	if err := readStatus(conn); err != nil {
		t.Fatal(err)
	}
	got, err := readSID(conn)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got sid %v, want %v", got, want)
	}
}

func TestStartUnknownSessionReturnsError(t *testing.T) {
	mgr := &fakeMgr{id: uuid.New()}
	l := newTestServer(t, mgr)
	defer l.Close()

	conn, err := l.Dial()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := writeMethod(conn, MethodStart); err != nil {
		t.Fatal(err)
	}
	if err := writeSID(conn, uuid.New()); err != nil {
		t.Fatal(err)
	}
	cmd := session.CommandReq{Program: "echo", Args: []string{"hi"}}
	if err := writeChunk(conn, cmd.Encode()); err != nil {
		t.Fatal(err)
	}
	if err := readStatus(conn); err == nil {
		t.Fatal("expected error for unknown session id")
	}
}

func TestStartDeliversCommandReq(t *testing.T) {
	id := uuid.New()
	mgr := &fakeMgr{id: id}
	l := newTestServer(t, mgr)
	defer l.Close()

	conn, err := l.Dial()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	writeMethod(conn, MethodStart)
	writeSID(conn, id)
	cmd := session.CommandReq{Program: "cat", Args: []string{"-n"}, Envs: []session.EnvVar{{Key: "X", Val: "1"}}}
	writeChunk(conn, cmd.Encode())
	if err := readStatus(conn); err != nil {
		t.Fatal(err)
	}

	// give the server goroutine a moment to record the call
	time.Sleep(10 * time.Millisecond)
	if mgr.started.Program != "cat" {
		t.Fatalf("got program %q, want cat", mgr.started.Program)
	}
}

func TestStdoutStreamsUntilEOF(t *testing.T) {
	id := uuid.New()
	mgr := &fakeMgr{id: id, stdout: "hello world"}
	l := newTestServer(t, mgr)
	defer l.Close()

	conn, err := l.Dial()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	writeMethod(conn, MethodStdout)
	writeSID(conn, id)
	if err := readStatus(conn); err != nil {
		t.Fatal(err)
	}
	var got bytes.Buffer
	for {
		chunk, err := readChunk(conn, maxChunk)
		if err != nil {
			t.Fatal(err)
		}
		if chunk == nil {
			break
		}
		got.Write(chunk)
	}
	if got.String() != "hello world" {
		t.Fatalf("got %q, want %q", got.String(), "hello world")
	}
}

func TestWaitReturnsExitCode(t *testing.T) {
	id := uuid.New()
	mgr := &fakeMgr{id: id, code: 17}
	l := newTestServer(t, mgr)
	defer l.Close()

	conn, err := l.Dial()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	writeMethod(conn, MethodWait)
	writeSID(conn, id)
	if err := readStatus(conn); err != nil {
		t.Fatal(err)
	}
	var b [4]byte
	if _, err := io.ReadFull(conn, b[:]); err != nil {
		t.Fatal(err)
	}
	code := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16 | int32(b[3])<<24
	if code != 17 {
		t.Fatalf("got exit code %d, want 17", code)
	}
}
