package p9

import (
	"bytes"
	"testing"
)

// roundTrip encodes m, reads the frame back with ReadFrame, and
// decodes it with DecodeMsg, returning the result for the caller to
// inspect.
func roundTrip(t *testing.T, m Msg) Msg {
	t.Helper()
	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	body, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	got, err := DecodeMsg(body)
	if err != nil {
		t.Fatalf("DecodeMsg: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("%d trailing bytes after frame", buf.Len())
	}
	return got
}

func TestVersionRoundTrip(t *testing.T) {
	want := &Tversionmsg{header{NOTAG}, 1 << 20, Version}
	got, ok := roundTrip(t, want).(*Tversionmsg)
	if !ok {
		t.Fatalf("got %T, want *Tversionmsg", got)
	}
	if got.Msize != want.Msize || got.Version != want.Version || got.Tag() != NOTAG {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestAttachRoundTrip(t *testing.T) {
	want := &Tattachmsg{header{1}, 0, NOFID, "glenda", "/", 0xFFFFFFFF}
	got, ok := roundTrip(t, want).(*Tattachmsg)
	if !ok {
		t.Fatalf("got %T, want *Tattachmsg", got)
	}
	if *got != *want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestWalkRoundTrip(t *testing.T) {
	want := &Twalkmsg{header{5}, 0, 1, []string{"a", "b", "c"}}
	got, ok := roundTrip(t, want).(*Twalkmsg)
	if !ok {
		t.Fatalf("got %T, want *Twalkmsg", got)
	}
	if got.Fid != want.Fid || got.Newfid != want.Newfid || len(got.Wname) != 3 {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestWalkEmptyWnameIsFidClone(t *testing.T) {
	want := &Twalkmsg{header{5}, 3, 4, nil}
	got, ok := roundTrip(t, want).(*Twalkmsg)
	if !ok {
		t.Fatalf("got %T, want *Twalkmsg", got)
	}
	if len(got.Wname) != 0 {
		t.Errorf("got %d wname elements, want 0", len(got.Wname))
	}
}

func TestReadWriteDataRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("cpu"), 1000)
	want := &Twritemsg{header{9}, 7, 4096, data}
	got, ok := roundTrip(t, want).(*Twritemsg)
	if !ok {
		t.Fatalf("got %T, want *Twritemsg", got)
	}
	if !bytes.Equal(got.Data, data) {
		t.Errorf("data mismatch after round trip")
	}
	if got.Offset != want.Offset {
		t.Errorf("got offset %d, want %d", got.Offset, want.Offset)
	}
}

func TestGetattrReservedWordsDiscarded(t *testing.T) {
	want := &Rgetattrmsg{header{2}, Stat{
		Valid: ^uint64(0),
		Qid:   Qid{Type: QTFILE, Version: 1, Path: 42},
		Mode:  0644,
		Size:  1024,
	}}
	got, ok := roundTrip(t, want).(*Rgetattrmsg)
	if !ok {
		t.Fatalf("got %T, want *Rgetattrmsg", got)
	}
	if got.Stat.Qid != want.Stat.Qid || got.Stat.Mode != want.Stat.Mode || got.Stat.Size != want.Stat.Size {
		t.Errorf("got %+v, want %+v", got.Stat, want.Stat)
	}
}

func TestReaddirRoundTrip(t *testing.T) {
	want := &Rreaddirmsg{header{11}, []DirEntry{
		{Qid: Qid{Type: QTDIR, Path: 1}, Offset: 1, Type: 0, Name: "."},
		{Qid: Qid{Type: QTDIR, Path: 0}, Offset: 2, Type: 0, Name: ".."},
		{Qid: Qid{Type: QTFILE, Path: 2}, Offset: 3, Type: 0, Name: "hosts"},
	}}
	got, ok := roundTrip(t, want).(*Rreaddirmsg)
	if !ok {
		t.Fatalf("got %T, want *Rreaddirmsg", got)
	}
	if len(got.Data) != len(want.Data) {
		t.Fatalf("got %d entries, want %d", len(got.Data), len(want.Data))
	}
	for i := range want.Data {
		if got.Data[i] != want.Data[i] {
			t.Errorf("entry %d: got %+v, want %+v", i, got.Data[i], want.Data[i])
		}
	}
}

func TestRlerrorRoundTrip(t *testing.T) {
	want := NewRlerror(3, ErrTruncated)
	got, ok := roundTrip(t, want).(*Rlerrormsg)
	if !ok {
		t.Fatalf("got %T, want *Rlerrormsg", got)
	}
	if got.Ecode != want.Ecode {
		t.Errorf("got ecode %d, want %d", got.Ecode, want.Ecode)
	}
}

func TestStatfsRoundTrip(t *testing.T) {
	want := &Rstatfsmsg{header{4}, Statfs{Type: 0x01021994, BSize: 4096, Blocks: 1000, NameLen: 255}}
	got, ok := roundTrip(t, want).(*Rstatfsmsg)
	if !ok {
		t.Fatalf("got %T, want *Rstatfsmsg", got)
	}
	if got.Statfs != want.Statfs {
		t.Errorf("got %+v, want %+v", got.Statfs, want.Statfs)
	}
}

func TestDecodeMsgUnknownType(t *testing.T) {
	body := []byte{0xFE, 0x01, 0x00}
	if _, err := DecodeMsg(body); err != ErrUnknownType {
		t.Errorf("got %v, want ErrUnknownType", err)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	buf := bytes.NewBuffer([]byte{10, 0, 0, 0, 1, 2, 3})
	if _, err := ReadFrame(buf); err == nil {
		t.Errorf("expected error reading a frame shorter than its declared length")
	}
}

func TestDecodeStringRejectsInvalidUTF8(t *testing.T) {
	d := NewDecoder([]byte{2, 0, 0xff, 0xfe})
	if _, err := d.str(); err != ErrInvalidUTF8 {
		t.Errorf("got %v, want ErrInvalidUTF8", err)
	}
}
