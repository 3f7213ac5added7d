package ninep_test

import (
	"log"
	"net"
	"os"
	"testing"
	"time"

	"github.com/u-root/cpu/ninep"
	"github.com/u-root/cpu/p9"
	"github.com/u-root/cpu/passthrough"
)

// harness drives request/reply pairs, one at a time, over a net.Conn
// pair to a Conn backed by a passthrough.FS rooted at dir, the way a
// real 9P2000.L client would.
type harness struct {
	t    *testing.T
	conn net.Conn
}

func newHarness(t *testing.T, dir string) *harness {
	t.Helper()
	client, server := net.Pipe()
	c := ninep.NewConn(server, &passthrough.FS{Root: dir}, log.New(os.Stderr, "", 0))
	go c.Serve()
	return &harness{t: t, conn: client}
}

func (h *harness) send(m p9.Msg) p9.Msg {
	h.t.Helper()
	if err := m.Encode(h.conn); err != nil {
		h.t.Fatalf("encode: %v", err)
	}
	h.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	body, err := p9.ReadFrame(h.conn)
	if err != nil {
		h.t.Fatalf("read frame: %v", err)
	}
	reply, err := p9.DecodeMsg(body)
	if err != nil {
		h.t.Fatalf("decode: %v", err)
	}
	return reply
}

func TestVersionNegotiatesMsize(t *testing.T) {
	h := newHarness(t, t.TempDir())
	reply := h.send(&p9.Tversionmsg{Msize: 4096, Version: p9.Version})
	rv, ok := reply.(*p9.Rversionmsg)
	if !ok {
		t.Fatalf("got %T, want *Rversionmsg", reply)
	}
	if rv.Version != p9.Version {
		t.Fatalf("got version %q", rv.Version)
	}
	if rv.Msize != 4096 {
		t.Fatalf("got msize %d, want 4096", rv.Msize)
	}
}

func TestVersionRejectsUnknown(t *testing.T) {
	h := newHarness(t, t.TempDir())
	reply := h.send(&p9.Tversionmsg{Msize: 4096, Version: "9P2000"})
	rv, ok := reply.(*p9.Rversionmsg)
	if !ok {
		t.Fatalf("got %T, want *Rversionmsg", reply)
	}
	if rv.Version != p9.UnknownVersion {
		t.Fatalf("got version %q, want unknown", rv.Version)
	}
}

func TestAttachWalkClunk(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(dir+"/greeting", []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, dir)
	h.send(&p9.Tversionmsg{Msize: 65536, Version: p9.Version})

	reply := h.send(&p9.Tattachmsg{Fid: 1, Afid: p9.NOFID, Uname: "user", Aname: ""})
	if _, ok := reply.(*p9.Rattachmsg); !ok {
		t.Fatalf("attach: got %T", reply)
	}

	reply = h.send(&p9.Twalkmsg{Fid: 1, Newfid: 2, Wname: []string{"greeting"}})
	rw, ok := reply.(*p9.Rwalkmsg)
	if !ok {
		t.Fatalf("walk: got %T", reply)
	}
	if len(rw.Wqid) != 1 {
		t.Fatalf("got %d qids, want 1", len(rw.Wqid))
	}

	reply = h.send(&p9.Tlopenmsg{Fid: 2, Flags: p9.ORDONLY})
	if _, ok := reply.(*p9.Rlopenmsg); !ok {
		t.Fatalf("lopen: got %T", reply)
	}

	reply = h.send(&p9.Treadmsg{Fid: 2, Offset: 0, Count: 64})
	rr, ok := reply.(*p9.Rreadmsg)
	if !ok {
		t.Fatalf("read: got %T", reply)
	}
	if string(rr.Data) != "hi" {
		t.Fatalf("got %q, want hi", rr.Data)
	}

	reply = h.send(&p9.Tclunkmsg{Fid: 2})
	if _, ok := reply.(*p9.Rclunkmsg); !ok {
		t.Fatalf("clunk: got %T", reply)
	}
}

func TestWalkUnknownNameFails(t *testing.T) {
	h := newHarness(t, t.TempDir())
	h.send(&p9.Tversionmsg{Msize: 65536, Version: p9.Version})
	h.send(&p9.Tattachmsg{Fid: 1, Afid: p9.NOFID, Uname: "user", Aname: ""})

	reply := h.send(&p9.Twalkmsg{Fid: 1, Newfid: 2, Wname: []string{"nope"}})
	if _, ok := reply.(*p9.Rlerrormsg); !ok {
		t.Fatalf("got %T, want *Rlerrormsg", reply)
	}
}

func TestOperationOnUnknownFidFails(t *testing.T) {
	h := newHarness(t, t.TempDir())
	h.send(&p9.Tversionmsg{Msize: 65536, Version: p9.Version})

	reply := h.send(&p9.Tclunkmsg{Fid: 99})
	if _, ok := reply.(*p9.Rlerrormsg); !ok {
		t.Fatalf("got %T, want *Rlerrormsg", reply)
	}
}

func TestReaddirBootstrapEmptyDir(t *testing.T) {
	h := newHarness(t, t.TempDir())
	h.send(&p9.Tversionmsg{Msize: 65536, Version: p9.Version})
	h.send(&p9.Tattachmsg{Fid: 1, Afid: p9.NOFID, Uname: "user", Aname: ""})

	reply := h.send(&p9.Treaddirmsg{Fid: 1, Offset: 2, Count: 8192})
	rd, ok := reply.(*p9.Rreaddirmsg)
	if !ok {
		t.Fatalf("got %T, want *Rreaddirmsg", reply)
	}
	if len(rd.Data) != 0 {
		t.Fatalf("got %d entries, want 0", len(rd.Data))
	}
}

func TestReaddirDotDotDot(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(dir+"/child", 0755); err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, dir)
	h.send(&p9.Tversionmsg{Msize: 65536, Version: p9.Version})
	h.send(&p9.Tattachmsg{Fid: 1, Afid: p9.NOFID, Uname: "user", Aname: ""})

	reply := h.send(&p9.Treaddirmsg{Fid: 1, Offset: 0, Count: 8192})
	rd, ok := reply.(*p9.Rreaddirmsg)
	if !ok {
		t.Fatalf("got %T, want *Rreaddirmsg", reply)
	}
	if len(rd.Data) != 3 {
		t.Fatalf("got %d entries, want 3 (., .., child)", len(rd.Data))
	}
	if rd.Data[0].Name != "." || rd.Data[1].Name != ".." {
		t.Fatalf("got entries %+v", rd.Data)
	}
}
