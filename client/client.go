// Package client implements the cpu command-line driver: it dials a
// cpu daemon, optionally serves a 9P namespace back to the remote
// command, pumps stdio, and reports the remote exit code.
package client

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/u-root/cpu/ninep"
	"github.com/u-root/cpu/passthrough"
	"github.com/u-root/cpu/rpc"
	"github.com/u-root/cpu/session"
)

// Logger is the minimal logging surface Run needs. A *log.Logger
// satisfies it.
type Logger interface {
	Printf(format string, v ...interface{})
}

// Config describes one remote command invocation.
type Config struct {
	Network string
	Address string

	Program string
	Args    []string
	Envs    []session.EnvVar

	Namespace string
	FsTabFile string
	TmpMnt    string
	TTY       bool
	UID, GID  uint32

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Log Logger
}

// stdinChunk bounds a single pumped chunk, matching the spec's
// "≤128-byte chunks" stdin pacing.
const stdinChunk = 128

// Run drives one remote command end to end and returns its exit code.
func Run(cfg Config) (int, error) {
	c := &rpc.Client{Network: cfg.Network, Address: cfg.Address}

	id, err := c.Dial()
	if err != nil {
		return 1, fmt.Errorf("client: dial: %w", err)
	}

	nsEntries, err := ParseNamespaceSpec(cfg.Namespace)
	if err != nil {
		return 1, fmt.Errorf("client: %w", err)
	}
	fstab := BuildFsTab(nsEntries, cfg.TmpMnt, cfg.Log)
	if cfg.FsTabFile != "" {
		extra, err := ParseFstabFile(cfg.FsTabFile)
		if err != nil {
			return 1, fmt.Errorf("client: fstab file: %w", err)
		}
		fstab = append(fstab, extra...)
	}

	ninepEnabled := len(nsEntries) > 0
	var wg sync.WaitGroup
	if ninepEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := serveNinep(c, id, cfg.Log); err != nil {
				cfg.Log.Printf("client: 9p forward ended: %v", err)
			}
		}()
	}

	cmd := session.CommandReq{
		Program: cfg.Program,
		Args:    cfg.Args,
		Envs:    cfg.Envs,
		Fstab:   fstab,
		TTY:     cfg.TTY,
		Ninep:   ninepEnabled,
		TmpMnt:  cfg.TmpMnt,
		UID:     cfg.UID,
		GID:     cfg.GID,
	}
	if err := c.Start(id, cmd); err != nil {
		return 1, fmt.Errorf("client: start: %w", err)
	}

	shutdown := make(chan struct{})
	var pumps sync.WaitGroup

	pumps.Add(1)
	go func() {
		defer pumps.Done()
		if err := pumpOut(c, id, false, cfg.Stdout); err != nil {
			cfg.Log.Printf("client: stdout: %v", err)
		}
	}()
	pumps.Add(1)
	go func() {
		defer pumps.Done()
		if err := pumpOut(c, id, true, cfg.Stderr); err != nil {
			cfg.Log.Printf("client: stderr: %v", err)
		}
	}()
	pumps.Add(1)
	go func() {
		defer pumps.Done()
		pumpIn(c, id, cfg.Stdin, shutdown)
	}()

	var restore func()
	if cfg.TTY {
		if f, ok := cfg.Stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			old, err := term.MakeRaw(int(f.Fd()))
			if err == nil {
				restore = func() { term.Restore(int(f.Fd()), old) }
			}
		}
	}

	code, werr := c.Wait(id)
	close(shutdown)
	pumps.Wait()
	if restore != nil {
		restore()
	}
	wg.Wait()

	if werr != nil {
		return 1, fmt.Errorf("client: wait: %w", werr)
	}
	return int(code), nil
}

// serveNinep answers 9P requests arriving over the NinepForward stream
// using the passthrough filesystem rooted at the local machine's root,
// giving the remote command a view of the client's namespace.
func serveNinep(c *rpc.Client, id uuid.UUID, log Logger) error {
	// Two pipes form the loopback: requests flow daemon->reqW->reqR->
	// ninep.Conn, replies flow ninep.Conn->repW->repR->daemon.
	reqR, reqW := io.Pipe()
	repR, repW := io.Pipe()
	ninepSide := &pipeReadWriter{r: reqR, w: repW}
	forwardSide := &pipeReadWriter{r: repR, w: reqW}

	conn := ninep.NewConn(ninepSide, &passthrough.FS{Root: "/"}, log)
	done := make(chan error, 1)
	go func() { done <- conn.Serve() }()

	err := c.NinepForward(id, forwardSide)
	reqR.Close()
	reqW.Close()
	repR.Close()
	repW.Close()
	<-done
	return err
}

// pipeReadWriter adapts an io.PipeReader/io.PipeWriter pair (used so
// ninep.Conn and rpc.Client.NinepForward can each own one direction)
// into the single io.ReadWriter both APIs expect.
type pipeReadWriter struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p *pipeReadWriter) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeReadWriter) Write(b []byte) (int, error) { return p.w.Write(b) }

func pumpOut(c *rpc.Client, id uuid.UUID, stderr bool, w io.Writer) error {
	var r io.ReadCloser
	var err error
	if stderr {
		r, err = c.Stderr(id)
	} else {
		r, err = c.Stdout(id)
	}
	if err != nil {
		return err
	}
	defer r.Close()
	_, err = io.Copy(w, r)
	return err
}

func pumpIn(c *rpc.Client, id uuid.UUID, r io.Reader, shutdown <-chan struct{}) {
	pr, pw := io.Pipe()
	go func() {
		buf := make([]byte, stdinChunk)
		for {
			select {
			case <-shutdown:
				pw.Close()
				return
			default:
			}
			n, err := r.Read(buf)
			if n > 0 {
				if _, werr := pw.Write(buf[:n]); werr != nil {
					return
				}
			}
			if err != nil {
				pw.Close()
				return
			}
		}
	}()
	c.Stdin(id, pr)
}
