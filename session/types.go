// Package session implements the daemon-side lifecycle of one remote
// command: Dial allocates an id, Start spawns the launcher helper and
// wires up its stdio, Stdin/Stdout/Stderr move bytes, NinepForward
// bridges the reverse 9P stream, and Wait collects the exit code.
package session

import "errors"

// CommandReq is the record the daemon sends to a freshly spawned
// launcher helper over its loopback control socket, describing what to
// run and how to prepare its mount namespace first.
type CommandReq struct {
	Program string
	Args    []string
	Envs    []EnvVar
	Fstab   []FsTab
	TTY     bool
	Ninep   bool
	TmpMnt  string
	UID     uint32
	GID     uint32
}

// EnvVar is one entry of a CommandReq's environment.
type EnvVar struct {
	Key, Val string
}

// FsTab is one /etc/fstab-style mount description: six textual fields
// exactly as the file format uses them. The "bind" token in Mntops
// toggles bind-mount semantics; "defaults" is a no-op kept only for
// fstab-file compatibility.
type FsTab struct {
	Spec    string
	File    string
	Vfstype string
	Mntops  string
	Freq    uint32
	Passno  uint32
}

// Session-layer errors, surfaced to an RPC caller rather than
// propagated as 9P or filesystem errors.
var (
	ErrDuplicateID     = errors.New("session: duplicate session id")
	ErrSessionNotExist = errors.New("session: no such session")
	ErrAlreadyStarted  = errors.New("session: already started")
	ErrNo9pPort        = errors.New("session: ninep requested but no forward port recorded")
	ErrNotStarted      = errors.New("session: session has not been started")
	ErrSpawnFail       = errors.New("session: failed to spawn launcher")
	ErrNoReturnCode    = errors.New("session: child exited without a return code")
)
