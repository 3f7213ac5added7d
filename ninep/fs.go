// Package ninep implements the server-side 9P2000.L state machine: a
// per-connection fid table dispatching decoded p9 messages onto a
// pluggable filesystem. The filesystem itself is modeled the way the
// teacher library modeled a file tree — a minimal File interface plus
// a set of narrow, optional capability interfaces that a concrete File
// implements only for the operations it actually supports. The
// dispatcher discovers capabilities with a type assertion per request
// rather than requiring one fat interface.
package ninep

import "github.com/u-root/cpu/p9"

// A File is whatever a fid currently refers to: the result of an
// Attach or a Walk step. Every File must be able to report its Qid;
// everything else is optional.
type File interface {
	Qid() p9.Qid
}

// A Filesystem answers Tattach. uname/aname are passed through
// unexamined; authentication beyond the no-auth sentinel is not
// implemented, so a Filesystem that wants to reject an attach returns
// an error.
type Filesystem interface {
	Attach(uname, aname string) (File, error)
}

// Cloner produces an independent File referring to the same location,
// used for the zero-length-Twalk "clone the fid" case so that the two
// fids' open state (and eventually their file handles) do not alias.
type Cloner interface {
	Clone() File
}

// Walker steps one path element down from a File.
type Walker interface {
	Walk(name string) (File, error)
}

// Getattrer answers Tgetattr.
type Getattrer interface {
	Getattr() (p9.Stat, error)
}

// Setattrer answers Tsetattr.
type Setattrer interface {
	Setattr(p9.SetAttr) error
}

// Opener answers Tlopen. flags has already been sanitized to the
// UnixOpenFlags union by the dispatcher.
type Opener interface {
	Open(flags uint32) (iounit uint32, err error)
}

// Creater answers Tlcreate: create name in the directory denoted by
// the receiver, and retarget the receiver to the new file.
type Creater interface {
	Create(name string, flags, mode, gid uint32) (iounit uint32, err error)
}

// Reader answers Tread.
type Reader interface {
	ReadAt(p []byte, off int64) (int, error)
}

// Writer answers Twrite.
type Writer interface {
	WriteAt(p []byte, off int64) (int, error)
}

// Direntryer answers Treaddir for host entries only; the dispatcher
// synthesizes "." and ".." itself per the offset-bias rule.
type Direntryer interface {
	Readdir(off uint64) ([]p9.DirEntry, error)
}

// Mkdirer answers Tmkdir.
type Mkdirer interface {
	Mkdir(name string, mode, gid uint32) (p9.Qid, error)
}

// Symlinker answers Tsymlink.
type Symlinker interface {
	Symlink(name, target string, gid uint32) (p9.Qid, error)
}

// Mknoder answers Tmknod.
type Mknoder interface {
	Mknod(name string, mode, major, minor, gid uint32) (p9.Qid, error)
}

// Linker answers Tlink: create a hard link named name in the receiver
// pointing at target.
type Linker interface {
	Link(name string, target File) error
}

// Unlinkater answers Tunlinkat.
type Unlinkater interface {
	Unlinkat(name string, flags uint32) error
}

// Renameatarer answers Trenameat: rename name (a child of the
// receiver) to newname under newdir.
type Renameatarer interface {
	Renameat(oldname string, newdir File, newname string) error
}

// Renamer answers the older Trename message, which renames the fid
// itself (rather than a named child) to newname inside newdir.
type Renamer interface {
	Rename(newdir File, newname string) error
}

// Remover answers Tremove: remove the file the fid refers to. The fid
// is clunked by the dispatcher whether or not Remove succeeds.
type Remover interface {
	Remove() error
}

// Readlinker answers Treadlink.
type Readlinker interface {
	Readlink() (string, error)
}

// Fsyncer answers Tfsync.
type Fsyncer interface {
	Fsync() error
}

// Statfser answers Tstatfs.
type Statfser interface {
	Statfs() (p9.Statfs, error)
}

// Clunker is notified when its fid is clunked, to release any open
// handle. The fid table entry itself is always removed by the
// dispatcher regardless of whether Clunk returns an error.
type Clunker interface {
	Clunk() error
}
