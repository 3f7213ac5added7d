package session

import (
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDialReturnsFreshID(t *testing.T) {
	m := NewManager("/bin/true", log.New(os.Stderr, "", 0))
	a, err := m.Dial()
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Dial()
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("expected distinct session ids")
	}
}

func TestNinepForwardUnknownSession(t *testing.T) {
	m := NewManager("/bin/true", log.New(os.Stderr, "", 0))
	pr, pw := io.Pipe()
	defer pr.Close()
	defer pw.Close()
	if err := m.NinepForward(uuid.New(), &rwPair{pr, pw}); err != ErrSessionNotExist {
		t.Fatalf("got %v, want ErrSessionNotExist", err)
	}
}

func TestStartUnknownSession(t *testing.T) {
	m := NewManager("/bin/true", log.New(os.Stderr, "", 0))
	if err := m.Start(uuid.New(), CommandReq{Program: "true"}); err != ErrSessionNotExist {
		t.Fatalf("got %v, want ErrSessionNotExist", err)
	}
}

func TestStartRequiresNinepPortWhenRequested(t *testing.T) {
	m := NewManager("/bin/true", log.New(os.Stderr, "", 0))
	id, err := m.Dial()
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Start(id, CommandReq{Program: "true", Ninep: true}); err != ErrNo9pPort {
		t.Fatalf("got %v, want ErrNo9pPort", err)
	}
}

func TestNinepForwardBridgesBytes(t *testing.T) {
	m := NewManager("/bin/true", log.New(os.Stderr, "", 0))
	id, err := m.Dial()
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	local, remote := net.Pipe()
	go func() { done <- m.NinepForward(id, remote) }()

	// give NinepForward a moment to allocate its listener and record
	// the port before we try to dial it.
	time.Sleep(20 * time.Millisecond)

	got, err := dialRecordedPort(m, id)
	if err != nil {
		t.Fatal(err)
	}
	defer got.Close()

	if _, err := got.Write([]byte("ping")); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(local, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "ping" {
		t.Fatalf("got %q, want ping", buf)
	}
	got.Close()
	local.Close()
	remote.Close()
	<-done
}

type rwPair struct {
	io.Reader
	io.Writer
}

func dialRecordedPort(m *Manager, id uuid.UUID) (net.Conn, error) {
	ps, ok := m.pending.Get(id)
	if !ok {
		return nil, ErrSessionNotExist
	}
	ps.mu.Lock()
	port := ps.ninepPort
	ps.mu.Unlock()
	return net.Dial("tcp", "127.0.0.1:"+strconv.Itoa(port))
}
