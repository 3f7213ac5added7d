// Package launcher implements the cpu daemon's re-exec helper: a
// process spawned with a hidden flag that unshares its own mount
// namespace, fetches the command to run from the daemon over a
// loopback socket, applies the requested fstab and environment, drops
// privilege, and execs the target program.
package launcher

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/u-root/cpu/session"
)

// Logger is the minimal logging surface Run needs. A *log.Logger
// satisfies it.
type Logger interface {
	Printf(format string, v ...interface{})
}

// Run connects to 127.0.0.1:port, reads the CommandReq the daemon's
// Manager.Start wrote there, and execs into it. It only returns on
// error: success ends the process via exec(2).
func Run(port int, log Logger) error {
	if err := unix.Unshare(unix.CLONE_NEWNS); err != nil {
		return fmt.Errorf("launcher: unshare mount namespace: %w", err)
	}

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return fmt.Errorf("launcher: connect to daemon: %w", err)
	}

	cmd, err := readCommandReq(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("launcher: read command: %w", err)
	}

	if err := unix.Mount("", "/", "", unix.MS_REC|unix.MS_PRIVATE, ""); err != nil {
		conn.Close()
		return fmt.Errorf("launcher: remount / private: %w", err)
	}

	for _, tab := range cmd.Fstab {
		flags, data := parseFstabOpts(tab.Mntops)
		if err := unix.Mount(tab.Spec, tab.File, tab.Vfstype, flags, data); err != nil {
			log.Printf("launcher: mount %+v: %v", tab, err)
		}
	}

	var trailing [1]byte
	if n, rerr := conn.Read(trailing[:]); n != 0 || rerr != io.EOF {
		conn.Close()
		return fmt.Errorf("launcher: unexpected bytes on control socket (n=%d err=%v)", n, rerr)
	}
	conn.Close()

	for _, e := range cmd.Envs {
		if err := os.Setenv(e.Key, e.Val); err != nil {
			log.Printf("launcher: setenv %s: %v", e.Key, err)
		}
	}

	if cmd.TTY {
		if _, err := unix.Setsid(); err != nil {
			return fmt.Errorf("launcher: setsid: %w", err)
		}
		if err := unix.IoctlSetInt(0, unix.TIOCSCTTY, 0); err != nil {
			return fmt.Errorf("launcher: set controlling terminal: %w", err)
		}
	}

	if err := unix.Setgid(int(cmd.GID)); err != nil {
		return fmt.Errorf("launcher: setgid: %w", err)
	}
	if err := unix.Setuid(int(cmd.UID)); err != nil {
		return fmt.Errorf("launcher: setuid: %w", err)
	}

	argv := append([]string{cmd.Program}, cmd.Args...)
	if err := unix.Exec(resolvePath(cmd.Program), argv, os.Environ()); err != nil {
		return fmt.Errorf("launcher: exec %s: %w", cmd.Program, err)
	}
	panic("unreachable: exec returned without error")
}

// parseFstabOpts splits a comma-separated mount-options field into the
// MS_* flag bits it recognizes ("defaults" is a no-op, "bind" sets
// MS_BIND) and the remaining options passed through as mount(2) data.
func parseFstabOpts(opts string) (flags uintptr, data string) {
	var rest []string
	for _, f := range strings.Split(opts, ",") {
		switch f {
		case "", "defaults":
			continue
		case "bind":
			flags |= unix.MS_BIND
		default:
			rest = append(rest, f)
		}
	}
	return flags, strings.Join(rest, ",")
}

func readCommandReq(r io.Reader) (session.CommandReq, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return session.CommandReq{}, err
	}
	n := binary.LittleEndian.Uint64(hdr[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return session.CommandReq{}, err
	}
	return session.DecodeCommandReq(buf)
}

// resolvePath looks the program up on PATH if it isn't already
// absolute, since unix.Exec (unlike exec.Command) does not search PATH
// itself.
func resolvePath(program string) string {
	if strings.Contains(program, "/") {
		return program
	}
	for _, dir := range strings.Split(os.Getenv("PATH"), ":") {
		if dir == "" {
			continue
		}
		candidate := dir + "/" + program
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate
		}
	}
	return program
}
