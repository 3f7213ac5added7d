package session

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os/exec"
	"sync"

	"github.com/google/uuid"
	"github.com/kr/pty"

	"github.com/u-root/cpu/internal/threadsafe"
)

// Logger is the minimal logging surface the session manager needs. A
// *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...interface{})
}

// pending is a session between Dial and Start: it exists so a client
// can optionally call NinepForward before the command is actually
// spawned, recording the loopback port the launcher should dial back
// into once its mount namespace is ready.
type pending struct {
	mu        sync.Mutex
	ninepPort int
}

// running is a session between Start and Wait.
type running struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *outputTask
	stderr  *outputTask // nil when TTY multiplexes stdout and stderr together
	drainWG sync.WaitGroup

	waitDone chan struct{}
	waitErr  error
	exitCode int32
}

// Manager tracks every in-flight remote command on the daemon side. It
// implements the six-step lifecycle an rpc.Server drives: Dial,
// NinepForward, Start, Stdin, Stdout/Stderr, Wait.
type Manager struct {
	launcherPath string
	log          Logger

	pending *threadsafe.Map[uuid.UUID, *pending]
	running *threadsafe.Map[uuid.UUID, *running]
}

// NewManager returns a Manager that spawns launcherPath (re-invoking
// the daemon's own binary with a hidden flag) for every Start call.
func NewManager(launcherPath string, log Logger) *Manager {
	return &Manager{
		launcherPath: launcherPath,
		log:          log,
		pending:      threadsafe.NewMap[uuid.UUID, *pending](),
		running:      threadsafe.NewMap[uuid.UUID, *running](),
	}
}

// Dial allocates a fresh session id and places it in the pending table.
func (m *Manager) Dial() (uuid.UUID, error) {
	for {
		id := uuid.New()
		if m.pending.Add(id, &pending{}) {
			return id, nil
		}
		// a UUID collision is astronomically unlikely; retry rather
		// than fail the call outright.
	}
}

// NinepForward bridges stream, a full-duplex byte pipe carrying raw 9P
// frames from the remote child's kernel client, to a loopback TCP
// listener the launcher helper will be told to connect to once its
// mount namespace is set up. It must be called while id is still
// pending, before Start, and blocks for the lifetime of the 9P
// session, returning once the launcher side closes its end.
func (m *Manager) NinepForward(id uuid.UUID, stream io.ReadWriter) error {
	ps, ok := m.pending.Get(id)
	if !ok {
		return ErrSessionNotExist
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("session: listen for 9p forward: %w", err)
	}
	defer l.Close()
	ps.mu.Lock()
	ps.ninepPort = l.Addr().(*net.TCPAddr).Port
	ps.mu.Unlock()

	conn, err := l.Accept()
	if err != nil {
		return fmt.Errorf("session: accept 9p forward: %w", err)
	}
	defer conn.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		io.Copy(conn, stream)
		if tc, ok := conn.(*net.TCPConn); ok {
			tc.CloseWrite()
		}
	}()
	go func() {
		defer wg.Done()
		io.Copy(stream, conn)
	}()
	wg.Wait()
	return nil
}

// Start moves id from pending to running: it launches the launcher
// helper, hands it the serialized CommandReq over a loopback control
// socket, and records the child's stdio for later Stdin/Stdout/Stderr
// calls.
func (m *Manager) Start(id uuid.UUID, cmd CommandReq) error {
	ps, ok := m.pending.Get(id)
	if !ok {
		return ErrSessionNotExist
	}
	ps.mu.Lock()
	ninepPort := ps.ninepPort
	ps.mu.Unlock()
	if cmd.Ninep && ninepPort == 0 {
		return ErrNo9pPort
	}
	m.pending.Del(id)

	ctl, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("session: listen for launcher control: %w", err)
	}
	port := ctl.Addr().(*net.TCPAddr).Port

	hc := exec.Command(m.launcherPath, "--launch", fmt.Sprintf("%d", port))
	hc.Env = append(hc.Env, fmt.Sprintf("CPU_NINEP_PORT=%d", ninepPort))

	rs := &running{cmd: hc, waitDone: make(chan struct{})}

	var stdin io.WriteCloser

	if cmd.TTY {
		f, tty, err := pty.Open()
		if err != nil {
			ctl.Close()
			return fmt.Errorf("%w: open pty: %v", ErrSpawnFail, err)
		}
		hc.Stdin, hc.Stdout, hc.Stderr = tty, tty, tty
		if err := hc.Start(); err != nil {
			tty.Close()
			f.Close()
			ctl.Close()
			return fmt.Errorf("%w: %v", ErrSpawnFail, err)
		}
		tty.Close()
		stdin = f

		rs.stdout = newOutputTask()
		rs.drainWG.Add(1)
		go func() {
			defer rs.drainWG.Done()
			rs.stdout.drain(f)
		}()
	} else {
		var stdoutPipe, stderrPipe io.ReadCloser
		if stdin, err = hc.StdinPipe(); err != nil {
			ctl.Close()
			return fmt.Errorf("%w: stdin pipe: %v", ErrSpawnFail, err)
		}
		if stdoutPipe, err = hc.StdoutPipe(); err != nil {
			ctl.Close()
			return fmt.Errorf("%w: stdout pipe: %v", ErrSpawnFail, err)
		}
		if stderrPipe, err = hc.StderrPipe(); err != nil {
			ctl.Close()
			return fmt.Errorf("%w: stderr pipe: %v", ErrSpawnFail, err)
		}
		if err := hc.Start(); err != nil {
			ctl.Close()
			return fmt.Errorf("%w: %v", ErrSpawnFail, err)
		}

		// Drain both pipes into buffers the moment the child is
		// running: exec.Cmd closes these pipes once Wait sees the
		// child exit, which can race a client's Stdout/Stderr call
		// that hasn't been dialed yet for a command that finishes
		// quickly.
		rs.stdout = newOutputTask()
		rs.stderr = newOutputTask()
		rs.drainWG.Add(2)
		go func() {
			defer rs.drainWG.Done()
			rs.stdout.drain(stdoutPipe)
		}()
		go func() {
			defer rs.drainWG.Done()
			rs.stderr.drain(stderrPipe)
		}()
	}
	rs.stdin = stdin

	conn, err := ctl.Accept()
	ctl.Close()
	if err != nil {
		return fmt.Errorf("%w: accept control connection: %v", ErrSpawnFail, err)
	}

	payload := cmd.Encode()
	var hdr [8]byte
	binary.LittleEndian.PutUint64(hdr[:], uint64(len(payload)))
	if _, err := conn.Write(hdr[:]); err != nil {
		conn.Close()
		return fmt.Errorf("%w: write control header: %v", ErrSpawnFail, err)
	}
	if _, err := conn.Write(payload); err != nil {
		conn.Close()
		return fmt.Errorf("%w: write control payload: %v", ErrSpawnFail, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.CloseWrite()
	}
	var trailing [1]byte
	if n, rerr := conn.Read(trailing[:]); n != 0 || rerr != io.EOF {
		m.log.Printf("session %s: launcher control socket did not half-close cleanly (n=%d err=%v)", id, n, rerr)
	}
	conn.Close()

	m.running.Put(id, rs)

	go func() {
		// Join the drain tasks before reaping: exec.Cmd's own docs
		// warn that calling Wait before all pipe reads have completed
		// is incorrect, since Wait closes the pipes as soon as it
		// sees the child exit.
		rs.drainWG.Wait()
		werr := hc.Wait()
		var code int32
		if ee, ok := werr.(*exec.ExitError); ok {
			code = int32(ee.ExitCode())
		} else if werr != nil {
			rs.waitErr = werr
		}
		rs.exitCode = code
		close(rs.waitDone)
	}()
	return nil
}

// Stdin copies r to the running child's standard input until r is
// exhausted, then closes the child's stdin so it observes EOF.
func (m *Manager) Stdin(id uuid.UUID, r io.Reader) error {
	rs, ok := m.running.Get(id)
	if !ok {
		return ErrSessionNotExist
	}
	_, err := io.Copy(rs.stdin, r)
	rs.stdin.Close()
	return err
}

// Stdout returns the running child's standard output, read from the
// buffer Start began draining into as soon as the child was spawned,
// not from the child's pipe directly.
func (m *Manager) Stdout(id uuid.UUID) (io.Reader, error) {
	rs, ok := m.running.Get(id)
	if !ok {
		return nil, ErrSessionNotExist
	}
	return rs.stdout, nil
}

// Stderr returns the running child's buffered standard error. Under a
// TTY session stdout and stderr share one stream, so Stderr returns an
// already-exhausted reader.
func (m *Manager) Stderr(id uuid.UUID) (io.Reader, error) {
	rs, ok := m.running.Get(id)
	if !ok {
		return nil, ErrSessionNotExist
	}
	if rs.stderr == nil {
		return eofReader{}, nil
	}
	return rs.stderr, nil
}

// Wait blocks until id's child has exited, returning its exit code. It
// removes id from the running table, so a second Wait call for the
// same id returns ErrSessionNotExist.
func (m *Manager) Wait(id uuid.UUID) (int32, error) {
	rs, ok := m.running.Get(id)
	if !ok {
		return 0, ErrSessionNotExist
	}
	<-rs.waitDone
	m.running.Del(id)
	if rs.waitErr != nil {
		return 0, ErrNoReturnCode
	}
	return rs.exitCode, nil
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
