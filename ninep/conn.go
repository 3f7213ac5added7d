package ninep

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/u-root/cpu/internal/threadsafe"
	"github.com/u-root/cpu/p9"
)

// A Logger is satisfied by *log.Logger; connections log protocol
// errors and per-request failures through it.
type Logger interface {
	Printf(format string, v ...interface{})
}

// DefaultMsize is the ceiling a connection negotiates down to if a
// client proposes something larger.
const DefaultMsize = 1 << 20

// errProtocol wraps a decode failure that must terminate the
// connection: a malformed frame leaves the stream unparseable from
// that point on.
type errProtocol struct{ err error }

func (e *errProtocol) Error() string { return "9p protocol error: " + e.err.Error() }
func (e *errProtocol) Unwrap() error { return e.err }

// fidEntry is what the fid table actually stores: the File the fid
// currently names, plus a lock serializing reads/writes against that
// File's open handle, per the one-mutation-at-a-time guarantee a
// single fid's I/O must offer even though requests dispatch
// concurrently.
type fidEntry struct {
	mu   sync.Mutex
	file File
}

// A Conn is one 9P2000.L connection: a read loop decoding frames off
// rwc, a fid table, and a writer serialized by a single mutex so
// replies never interleave mid-frame even though they may arrive out
// of request order.
type Conn struct {
	rwc io.ReadWriter
	fs  Filesystem
	log Logger

	fids *threadsafe.Map[uint32, *fidEntry]

	pendMu  sync.Mutex
	pending map[uint16]context.CancelFunc

	writeMu sync.Mutex
	msize   uint32

	wg sync.WaitGroup
}

// NewConn wraps rwc (typically a net.Conn, but any ReadWriter works —
// including the reverse 9P stream bridged from a NinepForward RPC) as
// a 9P2000.L connection serving fs.
func NewConn(rwc io.ReadWriter, fs Filesystem, log Logger) *Conn {
	return &Conn{
		rwc:     rwc,
		fs:      fs,
		log:     log,
		fids:    threadsafe.NewMap[uint32, *fidEntry](),
		pending: make(map[uint16]context.CancelFunc),
		msize:   DefaultMsize,
	}
}

// Serve reads frames from the connection until it closes or a
// protocol-level error forces a shutdown. Each decoded message is
// dispatched in its own goroutine; Serve returns once the read loop
// ends and all in-flight dispatches have replied.
func (c *Conn) Serve() error {
	defer func() {
		c.wg.Wait()
		if nc, ok := c.rwc.(net.Conn); ok {
			nc.Close()
		}
	}()
	for {
		body, err := p9.ReadFrame(c.rwc)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		msg, err := p9.DecodeMsg(body)
		if err != nil {
			return &errProtocol{err}
		}
		tag := msg.Tag()
		ctx, cancel := context.WithCancel(context.Background())
		c.pendMu.Lock()
		c.pending[tag] = cancel
		c.pendMu.Unlock()

		c.wg.Add(1)
		go c.dispatch(ctx, msg)
	}
}

func (c *Conn) dispatch(ctx context.Context, msg p9.Msg) {
	defer c.wg.Done()
	tag := msg.Tag()
	reply := c.handle(ctx, msg)
	c.pendMu.Lock()
	delete(c.pending, tag)
	c.pendMu.Unlock()
	if err := c.writeReply(reply); err != nil && c.log != nil {
		c.log.Printf("9p: write reply tag %d: %v", tag, err)
	}
}

func (c *Conn) writeReply(m p9.Msg) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return m.Encode(c.rwc)
}

func (c *Conn) getFid(fid uint32) (*fidEntry, error) {
	ent, ok := c.fids.Get(fid)
	if !ok {
		return nil, syscall.EBADF
	}
	return ent, nil
}

// handle runs the operation named by msg and returns the reply to
// send, translating filesystem errors into Rlerror along the way.
// ctx is cancelled by a matching Tflush; handlers that perform I/O
// should poll it when practical, though filesystem operations in this
// repository's passthrough implementation are not themselves
// cancellable syscalls.
func (c *Conn) handle(ctx context.Context, msg p9.Msg) p9.Msg {
	switch m := msg.(type) {
	case *p9.Tversionmsg:
		return c.version(m)
	case *p9.Tauthmsg:
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	case *p9.Tattachmsg:
		return c.attach(m)
	case *p9.Tflushmsg:
		return c.flush(m)
	case *p9.Twalkmsg:
		return c.walk(m)
	case *p9.Tgetattrmsg:
		return c.getattr(m)
	case *p9.Tsetattrmsg:
		return c.setattr(m)
	case *p9.Tlopenmsg:
		return c.lopen(m)
	case *p9.Tlcreatemsg:
		return c.lcreate(m)
	case *p9.Tsymlinkmsg:
		return c.symlink(m)
	case *p9.Tmknodmsg:
		return c.mknod(m)
	case *p9.Trenamemsg:
		return c.rename(m)
	case *p9.Treadlinkmsg:
		return c.readlink(m)
	case *p9.Txattrwalkmsg:
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	case *p9.Txattrcreatemsg:
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	case *p9.Treaddirmsg:
		return c.readdir(m)
	case *p9.Tfsyncmsg:
		return c.fsync(m)
	case *p9.Tlockmsg:
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	case *p9.Tgetlockmsg:
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	case *p9.Tlinkmsg:
		return c.link(m)
	case *p9.Tmkdirmsg:
		return c.mkdir(m)
	case *p9.Trenameatmsg:
		return c.renameat(m)
	case *p9.Tunlinkatmsg:
		return c.unlinkat(m)
	case *p9.Treadmsg:
		return c.read(m)
	case *p9.Twritemsg:
		return c.write(m)
	case *p9.Tclunkmsg:
		return c.clunk(m)
	case *p9.Tremovemsg:
		return c.remove(m)
	case *p9.Tstatfsmsg:
		return c.statfs(m)
	default:
		return p9.NewRlerror(msg.Tag(), syscall.EOPNOTSUPP)
	}
}

func (c *Conn) version(m *p9.Tversionmsg) p9.Msg {
	for _, ent := range c.fids.Clear() {
		if cl, ok := ent.file.(Clunker); ok {
			cl.Clunk()
		}
	}
	msize := m.Msize
	if msize > DefaultMsize {
		msize = DefaultMsize
	}
	atomic.StoreUint32(&c.msize, msize)
	version := p9.UnknownVersion
	if m.Version == p9.Version {
		version = p9.Version
	}
	return p9.NewRversion(m.Tag(), msize, version)
}

func (c *Conn) attach(m *p9.Tattachmsg) p9.Msg {
	if m.Afid != p9.NOFID {
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	}
	f, err := c.fs.Attach(m.Uname, m.Aname)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	c.fids.Put(m.Fid, &fidEntry{file: f})
	return p9.NewRattach(m.Tag(), f.Qid())
}

func (c *Conn) flush(m *p9.Tflushmsg) p9.Msg {
	c.pendMu.Lock()
	cancel, ok := c.pending[m.Oldtag]
	c.pendMu.Unlock()
	if ok {
		cancel()
	}
	return p9.NewRflush(m.Tag())
}

func (c *Conn) walk(m *p9.Twalkmsg) p9.Msg {
	ent, err := c.getFid(m.Fid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	ent.mu.Lock()
	cur := ent.file
	ent.mu.Unlock()

	if len(m.Wname) == 0 {
		next := cur
		if cl, ok := cur.(Cloner); ok {
			next = cl.Clone()
		}
		c.fids.Put(m.Newfid, &fidEntry{file: next})
		return p9.NewRwalk(m.Tag(), nil)
	}

	qids := make([]p9.Qid, 0, len(m.Wname))
	for i, name := range m.Wname {
		w, ok := cur.(Walker)
		if !ok {
			if i == 0 {
				return p9.NewRlerror(m.Tag(), syscall.ENOTDIR)
			}
			break
		}
		next, err := w.Walk(name)
		if err != nil {
			if i == 0 {
				return p9.NewRlerror(m.Tag(), err)
			}
			break
		}
		qids = append(qids, next.Qid())
		cur = next
	}
	if len(qids) == len(m.Wname) {
		c.fids.Put(m.Newfid, &fidEntry{file: cur})
	}
	return p9.NewRwalk(m.Tag(), qids)
}

func (c *Conn) getattr(m *p9.Tgetattrmsg) p9.Msg {
	ent, err := c.getFid(m.Fid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	g, ok := ent.file.(Getattrer)
	if !ok {
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	}
	st, err := g.Getattr()
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	return p9.NewRgetattr(m.Tag(), st)
}

func (c *Conn) setattr(m *p9.Tsetattrmsg) p9.Msg {
	ent, err := c.getFid(m.Fid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	s, ok := ent.file.(Setattrer)
	if !ok {
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	}
	if err := s.Setattr(m.SetAttr); err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	return p9.NewRsetattr(m.Tag())
}

func (c *Conn) lopen(m *p9.Tlopenmsg) p9.Msg {
	ent, err := c.getFid(m.Fid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	o, ok := ent.file.(Opener)
	if !ok {
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	}
	flags := m.Flags & p9.UnixOpenFlags
	ent.mu.Lock()
	iounit, err := o.Open(flags)
	ent.mu.Unlock()
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	return p9.NewRlopen(m.Tag(), ent.file.Qid(), iounit)
}

func (c *Conn) lcreate(m *p9.Tlcreatemsg) p9.Msg {
	ent, err := c.getFid(m.Fid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	cr, ok := ent.file.(Creater)
	if !ok {
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	}
	flags := m.Flags & p9.UnixOpenFlags
	ent.mu.Lock()
	iounit, err := cr.Create(m.Name, flags, m.Mode, m.Gid)
	ent.mu.Unlock()
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	return p9.NewRlcreate(m.Tag(), ent.file.Qid(), iounit)
}

func (c *Conn) symlink(m *p9.Tsymlinkmsg) p9.Msg {
	ent, err := c.getFid(m.Fid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	s, ok := ent.file.(Symlinker)
	if !ok {
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	}
	qid, err := s.Symlink(m.Name, m.Target, m.Gid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	return p9.NewRsymlink(m.Tag(), qid)
}

func (c *Conn) mknod(m *p9.Tmknodmsg) p9.Msg {
	ent, err := c.getFid(m.Fid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	n, ok := ent.file.(Mknoder)
	if !ok {
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	}
	qid, err := n.Mknod(m.Name, m.Mode, m.Major, m.Minor, m.Gid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	return p9.NewRmknod(m.Tag(), qid)
}

func (c *Conn) rename(m *p9.Trenamemsg) p9.Msg {
	ent, err := c.getFid(m.Fid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	dent, err := c.getFid(m.Dfid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	r, ok := ent.file.(Renamer)
	if !ok {
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	}
	if err := r.Rename(dent.file, m.Name); err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	return p9.NewRrename(m.Tag())
}

func (c *Conn) readlink(m *p9.Treadlinkmsg) p9.Msg {
	ent, err := c.getFid(m.Fid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	r, ok := ent.file.(Readlinker)
	if !ok {
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	}
	target, err := r.Readlink()
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	return p9.NewRreadlink(m.Tag(), target)
}

func (c *Conn) readdir(m *p9.Treaddirmsg) p9.Msg {
	ent, err := c.getFid(m.Fid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	var entries []p9.DirEntry
	used := 0
	add := func(e p9.DirEntry) bool {
		n := e.EncodedLen()
		if used+n > int(m.Count) {
			return false
		}
		used += n
		entries = append(entries, e)
		return true
	}

	qid := ent.file.Qid()
	off := m.Offset
	if off == 0 {
		if !add(p9.DirEntry{Qid: qid, Offset: 1, Name: "."}) {
			return p9.NewRreaddir(m.Tag(), nil)
		}
		off = 1
	}
	if off == 1 {
		if !add(p9.DirEntry{Qid: qid, Offset: 2, Name: ".."}) {
			return p9.NewRreaddir(m.Tag(), entries)
		}
		off = 2
	}
	dir, ok := ent.file.(Direntryer)
	if !ok {
		return p9.NewRreaddir(m.Tag(), entries)
	}
	host, err := dir.Readdir(off - 2)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	for _, e := range host {
		if !add(e) {
			break
		}
	}
	return p9.NewRreaddir(m.Tag(), entries)
}

func (c *Conn) fsync(m *p9.Tfsyncmsg) p9.Msg {
	ent, err := c.getFid(m.Fid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	f, ok := ent.file.(Fsyncer)
	if !ok {
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	}
	if err := f.Fsync(); err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	return p9.NewRfsync(m.Tag())
}

func (c *Conn) link(m *p9.Tlinkmsg) p9.Msg {
	dent, err := c.getFid(m.Dfid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	tent, err := c.getFid(m.Fid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	l, ok := dent.file.(Linker)
	if !ok {
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	}
	if err := l.Link(m.Name, tent.file); err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	return p9.NewRlink(m.Tag())
}

func (c *Conn) mkdir(m *p9.Tmkdirmsg) p9.Msg {
	ent, err := c.getFid(m.Dfid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	d, ok := ent.file.(Mkdirer)
	if !ok {
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	}
	qid, err := d.Mkdir(m.Name, m.Mode, m.Gid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	return p9.NewRmkdir(m.Tag(), qid)
}

func (c *Conn) renameat(m *p9.Trenameatmsg) p9.Msg {
	oent, err := c.getFid(m.Olddirfid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	nent, err := c.getFid(m.Newdirfid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	r, ok := oent.file.(Renameatarer)
	if !ok {
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	}
	if err := r.Renameat(m.Oldname, nent.file, m.Newname); err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	return p9.NewRrenameat(m.Tag())
}

func (c *Conn) unlinkat(m *p9.Tunlinkatmsg) p9.Msg {
	ent, err := c.getFid(m.Dirfid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	u, ok := ent.file.(Unlinkater)
	if !ok {
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	}
	if err := u.Unlinkat(m.Name, m.Flags); err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	return p9.NewRunlinkat(m.Tag())
}

func (c *Conn) read(m *p9.Treadmsg) p9.Msg {
	ent, err := c.getFid(m.Fid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	r, ok := ent.file.(Reader)
	if !ok {
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	}
	buf := make([]byte, m.Count)
	ent.mu.Lock()
	n, err := r.ReadAt(buf, int64(m.Offset))
	ent.mu.Unlock()
	if err != nil && !errors.Is(err, io.EOF) {
		return p9.NewRlerror(m.Tag(), err)
	}
	return p9.NewRread(m.Tag(), buf[:n])
}

func (c *Conn) write(m *p9.Twritemsg) p9.Msg {
	ent, err := c.getFid(m.Fid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	w, ok := ent.file.(Writer)
	if !ok {
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	}
	ent.mu.Lock()
	n, err := w.WriteAt(m.Data, int64(m.Offset))
	ent.mu.Unlock()
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	return p9.NewRwrite(m.Tag(), uint32(n))
}

func (c *Conn) clunk(m *p9.Tclunkmsg) p9.Msg {
	ent, err := c.getFid(m.Fid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	c.fids.Del(m.Fid)
	if cl, ok := ent.file.(Clunker); ok {
		cl.Clunk()
	}
	return p9.NewRclunk(m.Tag())
}

func (c *Conn) remove(m *p9.Tremovemsg) p9.Msg {
	ent, err := c.getFid(m.Fid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	c.fids.Del(m.Fid)
	defer func() {
		if cl, ok := ent.file.(Clunker); ok {
			cl.Clunk()
		}
	}()
	r, ok := ent.file.(Remover)
	if !ok {
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	}
	if err := r.Remove(); err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	return p9.NewRremove(m.Tag())
}

func (c *Conn) statfs(m *p9.Tstatfsmsg) p9.Msg {
	ent, err := c.getFid(m.Fid)
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	s, ok := ent.file.(Statfser)
	if !ok {
		return p9.NewRlerror(m.Tag(), syscall.EOPNOTSUPP)
	}
	st, err := s.Statfs()
	if err != nil {
		return p9.NewRlerror(m.Tag(), err)
	}
	return p9.NewRstatfs(m.Tag(), st)
}
