// Package passthrough implements ninep.Filesystem over a real
// directory tree on the host, the way a 9P2000.L client expects a
// server backing a mount namespace's external files to behave. Every
// File is a resolved host path plus, once opened, an *os.File handle.
package passthrough

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/u-root/cpu/ninep"
	"github.com/u-root/cpu/p9"
)

// FS roots a passthrough filesystem at Root. Attach always returns
// Root regardless of the aname a client requests — there is no
// per-user namespace selection, matching a daemon that exposes one
// tree per connection.
type FS struct {
	Root string
}

// Attach implements ninep.Filesystem.
func (fs *FS) Attach(uname, aname string) (ninep.File, error) {
	n := &Node{path: fs.Root}
	if _, err := n.stat(); err != nil {
		return nil, err
	}
	return n, nil
}

// A Node is a fid's state: a resolved host path and, once Tlopen or
// Tlcreate succeeds, an open handle. mu guards the open handle f;
// Create and Rename also rewrite path while holding mu, and the other
// methods read path without taking it.
type Node struct {
	path string

	mu sync.Mutex
	f  *os.File
}

func (n *Node) stat() (os.FileInfo, error) {
	return os.Lstat(n.path)
}

// Qid implements ninep.File.
func (n *Node) Qid() p9.Qid {
	fi, err := n.stat()
	if err != nil {
		return p9.Qid{}
	}
	return qidFromInfo(fi)
}

func qidFromInfo(fi os.FileInfo) p9.Qid {
	var path uint64
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		path = st.Ino
	}
	return p9.Qid{
		Type:    qidType(fi.Mode()),
		Version: 0,
		Path:    path,
	}
}

func qidType(mode os.FileMode) uint8 {
	switch {
	case mode&os.ModeDir != 0:
		return p9.QTDIR
	case mode&os.ModeSymlink != 0:
		return p9.QTSYMLINK
	case mode&os.ModeAppend != 0:
		return p9.QTAPPEND
	default:
		return p9.QTFILE
	}
}

// Clone implements ninep.Cloner.
func (n *Node) Clone() ninep.File {
	return &Node{path: n.path}
}

// Walk implements ninep.Walker.
func (n *Node) Walk(name string) (ninep.File, error) {
	joined := filepath.Join(n.path, name)
	if _, err := os.Lstat(joined); err != nil {
		return nil, err
	}
	return &Node{path: joined}, nil
}

// Getattr implements ninep.Getattrer.
func (n *Node) Getattr() (p9.Stat, error) {
	fi, err := n.stat()
	if err != nil {
		return p9.Stat{}, err
	}
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return p9.Stat{}, syscall.ENOSYS
	}
	return p9.Stat{
		Valid:   ^uint64(0),
		Qid:     qidFromInfo(fi),
		Mode:    uint32(st.Mode),
		UID:     st.Uid,
		GID:     st.Gid,
		Nlink:   uint64(st.Nlink),
		RDev:    uint64(st.Rdev),
		Size:    uint64(st.Size),
		BlkSize: uint64(st.Blksize),
		Blocks:  uint64(st.Blocks),
		Atime:   timespecOf(unix.Timespec(st.Atim)),
		Mtime:   timespecOf(unix.Timespec(st.Mtim)),
		Ctime:   timespecOf(unix.Timespec(st.Ctim)),
	}, nil
}

// Setattr implements ninep.Setattrer. Fields are applied in the order
// the design calls for: mode, then ownership, then size, then times.
// Setting ctime directly is not supported by POSIX and is silently
// ignored here, matching the behavior the original source's mask
// handling fell back to.
func (n *Node) Setattr(sa p9.SetAttr) error {
	if sa.Valid&p9.SetattrMode != 0 {
		if err := os.Chmod(n.path, os.FileMode(sa.Mode&0777)); err != nil {
			return err
		}
	}
	if sa.Valid&(p9.SetattrUID|p9.SetattrGID) != 0 {
		uid, gid := -1, -1
		if sa.Valid&p9.SetattrUID != 0 {
			uid = int(sa.UID)
		}
		if sa.Valid&p9.SetattrGID != 0 {
			gid = int(sa.GID)
		}
		if err := os.Lchown(n.path, uid, gid); err != nil {
			return err
		}
	}
	if sa.Valid&p9.SetattrSize != 0 {
		f, err := os.OpenFile(n.path, os.O_WRONLY, 0)
		if err != nil {
			return err
		}
		err = f.Truncate(int64(sa.Size))
		f.Close()
		if err != nil {
			return err
		}
	}
	if sa.Valid&(p9.SetattrATime|p9.SetattrMTime) != 0 {
		fi, err := n.stat()
		if err != nil {
			return err
		}
		st := fi.Sys().(*syscall.Stat_t)
		atime := timeFromTimespec(unix.Timespec(st.Atim))
		mtime := timeFromTimespec(unix.Timespec(st.Mtim))
		if sa.Valid&p9.SetattrATime != 0 && sa.Valid&p9.SetattrATimeSet != 0 {
			atime = timeFromTimespec(unix.Timespec{Sec: int64(sa.Atime.Sec), Nsec: int64(sa.Atime.Nsec)})
		}
		if sa.Valid&p9.SetattrMTime != 0 && sa.Valid&p9.SetattrMTimeSet != 0 {
			mtime = timeFromTimespec(unix.Timespec{Sec: int64(sa.Mtime.Sec), Nsec: int64(sa.Mtime.Nsec)})
		}
		if err := os.Chtimes(n.path, atime, mtime); err != nil {
			return err
		}
	}
	return nil
}

// Open implements ninep.Opener. Opening a directory succeeds without
// creating a backing *os.File or recording any open state; everything
// else is opened with the sanitized flags.
func (n *Node) Open(flags uint32) (uint32, error) {
	fi, err := n.stat()
	if err != nil {
		return 0, err
	}
	if fi.IsDir() {
		return 0, nil
	}
	f, err := os.OpenFile(n.path, int(flags), 0)
	if err != nil {
		return 0, err
	}
	n.mu.Lock()
	n.f = f
	n.mu.Unlock()
	return 0, nil
}

// Create implements ninep.Creater.
func (n *Node) Create(name string, flags, mode, gid uint32) (uint32, error) {
	joined := filepath.Join(n.path, name)
	f, err := os.OpenFile(joined, int(flags)|os.O_CREATE, os.FileMode(mode&0777))
	if err != nil {
		return 0, err
	}
	if gid != 0 {
		unix.Fchown(int(f.Fd()), -1, int(gid))
	}
	n.mu.Lock()
	n.path = joined
	n.f = f
	n.mu.Unlock()
	return 0, nil
}

// ReadAt implements ninep.Reader.
func (n *Node) ReadAt(p []byte, off int64) (int, error) {
	n.mu.Lock()
	f := n.f
	n.mu.Unlock()
	if f == nil {
		return 0, syscall.EBADF
	}
	c, err := f.ReadAt(p, off)
	if err == io.EOF {
		err = nil
	}
	return c, err
}

// WriteAt implements ninep.Writer.
func (n *Node) WriteAt(p []byte, off int64) (int, error) {
	n.mu.Lock()
	f := n.f
	n.mu.Unlock()
	if f == nil {
		return 0, syscall.EBADF
	}
	return f.WriteAt(p, off)
}

// Readdir implements ninep.Direntryer. off is the host-entry-relative
// offset after the server core's "."/".." bias has been removed.
func (n *Node) Readdir(off uint64) ([]p9.DirEntry, error) {
	entries, err := os.ReadDir(n.path)
	if err != nil {
		return nil, err
	}
	if off >= uint64(len(entries)) {
		return nil, nil
	}
	out := make([]p9.DirEntry, 0, len(entries)-int(off))
	for i := int(off); i < len(entries); i++ {
		fi, err := entries[i].Info()
		if err != nil {
			continue
		}
		out = append(out, p9.DirEntry{
			Qid:    qidFromInfo(fi),
			Offset: uint64(i) + 3,
			Name:   entries[i].Name(),
		})
	}
	return out, nil
}

// Mkdir implements ninep.Mkdirer.
func (n *Node) Mkdir(name string, mode, gid uint32) (p9.Qid, error) {
	joined := filepath.Join(n.path, name)
	if err := os.Mkdir(joined, os.FileMode(mode&0777)); err != nil {
		return p9.Qid{}, err
	}
	if gid != 0 {
		os.Lchown(joined, -1, int(gid))
	}
	fi, err := os.Lstat(joined)
	if err != nil {
		return p9.Qid{}, err
	}
	return qidFromInfo(fi), nil
}

// Symlink implements ninep.Symlinker.
func (n *Node) Symlink(name, target string, gid uint32) (p9.Qid, error) {
	joined := filepath.Join(n.path, name)
	if err := os.Symlink(target, joined); err != nil {
		return p9.Qid{}, err
	}
	if gid != 0 {
		unix.Lchown(joined, -1, int(gid))
	}
	fi, err := os.Lstat(joined)
	if err != nil {
		return p9.Qid{}, err
	}
	return qidFromInfo(fi), nil
}

// Mknod implements ninep.Mknoder.
func (n *Node) Mknod(name string, mode, major, minor, gid uint32) (p9.Qid, error) {
	joined := filepath.Join(n.path, name)
	dev := unix.Mkdev(major, minor)
	if err := unix.Mknod(joined, mode, int(dev)); err != nil {
		return p9.Qid{}, err
	}
	if gid != 0 {
		unix.Lchown(joined, -1, int(gid))
	}
	fi, err := os.Lstat(joined)
	if err != nil {
		return p9.Qid{}, err
	}
	return qidFromInfo(fi), nil
}

// Link implements ninep.Linker.
func (n *Node) Link(name string, target ninep.File) error {
	t, ok := target.(*Node)
	if !ok {
		return syscall.EXDEV
	}
	return os.Link(t.path, filepath.Join(n.path, name))
}

// Rename implements ninep.Renamer.
func (n *Node) Rename(newdir ninep.File, newname string) error {
	nd, ok := newdir.(*Node)
	if !ok {
		return syscall.EXDEV
	}
	dest := filepath.Join(nd.path, newname)
	if err := os.Rename(n.path, dest); err != nil {
		return err
	}
	n.mu.Lock()
	n.path = dest
	n.mu.Unlock()
	return nil
}

// Renameat implements ninep.Renameatarer.
func (n *Node) Renameat(oldname string, newdir ninep.File, newname string) error {
	nd, ok := newdir.(*Node)
	if !ok {
		return syscall.EXDEV
	}
	return os.Rename(filepath.Join(n.path, oldname), filepath.Join(nd.path, newname))
}

// Unlinkat implements ninep.Unlinkater.
func (n *Node) Unlinkat(name string, flags uint32) error {
	return os.Remove(filepath.Join(n.path, name))
}

// Remove implements ninep.Remover.
func (n *Node) Remove() error {
	return os.Remove(n.path)
}

// Readlink implements ninep.Readlinker.
func (n *Node) Readlink() (string, error) {
	return os.Readlink(n.path)
}

// Fsync implements ninep.Fsyncer.
func (n *Node) Fsync() error {
	n.mu.Lock()
	f := n.f
	n.mu.Unlock()
	if f == nil {
		return syscall.EBADF
	}
	return f.Sync()
}

// Statfs implements ninep.Statfser.
func (n *Node) Statfs() (p9.Statfs, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(n.path, &st); err != nil {
		return p9.Statfs{}, err
	}
	return p9.Statfs{
		Type:    0,
		BSize:   uint32(st.Bsize),
		Blocks:  st.Blocks,
		BFree:   st.Bfree,
		BAvail:  st.Bavail,
		Files:   st.Files,
		FFree:   st.Ffree,
		NameLen: uint32(st.Namelen),
	}, nil
}

// Clunk implements ninep.Clunker.
func (n *Node) Clunk() error {
	n.mu.Lock()
	f := n.f
	n.f = nil
	n.mu.Unlock()
	if f == nil {
		return nil
	}
	return f.Close()
}
