package p9

import "io"

// A Timespec is a {sec, nsec} pair as used by the atime/mtime/ctime
// fields of Stat and the SetAttr time fields.
type Timespec struct {
	Sec  uint64
	Nsec uint64
}

func (t Timespec) encode(e *encoder) {
	e.u64(t.Sec)
	e.u64(t.Nsec)
}

func decodeTimespec(d *Decoder) (Timespec, error) {
	sec, err := d.u64()
	if err != nil {
		return Timespec{}, err
	}
	nsec, err := d.u64()
	if err != nil {
		return Timespec{}, err
	}
	return Timespec{Sec: sec, Nsec: nsec}, nil
}

// Stat is the POSIX metadata record returned by Rgetattr. Valid is a
// bitmask (same numbering as SetattrMask) marking which fields the
// server actually populated; the passthrough filesystem always fills
// every field it can reach via lstat(2), so Valid is effectively
// all-ones there.
type Stat struct {
	Valid   uint64
	Qid     Qid
	Mode    uint32
	UID     uint32
	GID     uint32
	Nlink   uint64
	RDev    uint64
	Size    uint64
	BlkSize uint64
	Blocks  uint64
	Atime   Timespec
	Mtime   Timespec
	Ctime   Timespec
}

func (s Stat) encode(e *encoder) {
	e.u64(s.Valid)
	e.qid(s.Qid)
	e.u32(s.Mode)
	e.u32(s.UID)
	e.u32(s.GID)
	e.u64(s.Nlink)
	e.u64(s.RDev)
	e.u64(s.Size)
	e.u64(s.BlkSize)
	e.u64(s.Blocks)
	s.Atime.encode(e)
	s.Mtime.encode(e)
	s.Ctime.encode(e)
}

func decodeStat(d *Decoder) (Stat, error) {
	var s Stat
	var err error
	if s.Valid, err = d.u64(); err != nil {
		return s, err
	}
	if s.Qid, err = d.qid(); err != nil {
		return s, err
	}
	if s.Mode, err = d.u32(); err != nil {
		return s, err
	}
	if s.UID, err = d.u32(); err != nil {
		return s, err
	}
	if s.GID, err = d.u32(); err != nil {
		return s, err
	}
	if s.Nlink, err = d.u64(); err != nil {
		return s, err
	}
	if s.RDev, err = d.u64(); err != nil {
		return s, err
	}
	if s.Size, err = d.u64(); err != nil {
		return s, err
	}
	if s.BlkSize, err = d.u64(); err != nil {
		return s, err
	}
	if s.Blocks, err = d.u64(); err != nil {
		return s, err
	}
	if s.Atime, err = decodeTimespec(d); err != nil {
		return s, err
	}
	if s.Mtime, err = decodeTimespec(d); err != nil {
		return s, err
	}
	if s.Ctime, err = decodeTimespec(d); err != nil {
		return s, err
	}
	return s, nil
}

// SetAttr carries a Tsetattr request. Only fields whose bit is set in
// Valid (the SetattrMask bits) should be applied by the filesystem.
type SetAttr struct {
	Valid uint32
	Mode  uint32
	UID   uint32
	GID   uint32
	Size  uint64
	Atime Timespec
	Mtime Timespec
}

func (s SetAttr) encode(e *encoder) {
	e.u32(s.Valid)
	e.u32(s.Mode)
	e.u32(s.UID)
	e.u32(s.GID)
	e.u64(s.Size)
	s.Atime.encode(e)
	s.Mtime.encode(e)
}

func decodeSetAttr(d *Decoder) (SetAttr, error) {
	var s SetAttr
	var err error
	if s.Valid, err = d.u32(); err != nil {
		return s, err
	}
	if s.Mode, err = d.u32(); err != nil {
		return s, err
	}
	if s.UID, err = d.u32(); err != nil {
		return s, err
	}
	if s.GID, err = d.u32(); err != nil {
		return s, err
	}
	if s.Size, err = d.u64(); err != nil {
		return s, err
	}
	if s.Atime, err = decodeTimespec(d); err != nil {
		return s, err
	}
	if s.Mtime, err = decodeTimespec(d); err != nil {
		return s, err
	}
	return s, nil
}

// Statfs mirrors the fields of a POSIX statvfs(2) call.
type Statfs struct {
	Type    uint32
	BSize   uint32
	Blocks  uint64
	BFree   uint64
	BAvail  uint64
	Files   uint64
	FFree   uint64
	FSID    uint64
	NameLen uint32
}

func (s Statfs) Encode(w io.Writer, tag uint16) error {
	e := &encoder{}
	e.u8(Rstatfs)
	e.u16(tag)
	e.u32(s.Type)
	e.u32(s.BSize)
	e.u64(s.Blocks)
	e.u64(s.BFree)
	e.u64(s.BAvail)
	e.u64(s.Files)
	e.u64(s.FFree)
	e.u64(s.FSID)
	e.u32(s.NameLen)
	return writeFrame(w, e.buf)
}

func decodeStatfs(d *Decoder) (Statfs, error) {
	var s Statfs
	var err error
	if s.Type, err = d.u32(); err != nil {
		return s, err
	}
	if s.BSize, err = d.u32(); err != nil {
		return s, err
	}
	if s.Blocks, err = d.u64(); err != nil {
		return s, err
	}
	if s.BFree, err = d.u64(); err != nil {
		return s, err
	}
	if s.BAvail, err = d.u64(); err != nil {
		return s, err
	}
	if s.Files, err = d.u64(); err != nil {
		return s, err
	}
	if s.FFree, err = d.u64(); err != nil {
		return s, err
	}
	if s.FSID, err = d.u64(); err != nil {
		return s, err
	}
	if s.NameLen, err = d.u32(); err != nil {
		return s, err
	}
	return s, nil
}

// A DirEntry is one record in a Rreaddir response: offset is the
// opaque cookie a client echoes back in the next Treaddir to resume
// iteration after this entry.
type DirEntry struct {
	Qid    Qid
	Offset uint64
	Type   uint8
	Name   string
}

func (d DirEntry) encode(e *encoder) error {
	e.qid(d.Qid)
	e.u64(d.Offset)
	e.u8(d.Type)
	return e.str(d.Name)
}

func decodeDirEntry(d *Decoder) (DirEntry, error) {
	var out DirEntry
	var err error
	if out.Qid, err = d.qid(); err != nil {
		return out, err
	}
	if out.Offset, err = d.u64(); err != nil {
		return out, err
	}
	if out.Type, err = d.u8(); err != nil {
		return out, err
	}
	if out.Name, err = d.str(); err != nil {
		return out, err
	}
	return out, nil
}

// EncodedLen returns the number of bytes d occupies on the wire. The
// 9P server core's readdir loop uses this to decide when the next
// entry would overflow the client's requested count.
func (d DirEntry) EncodedLen() int {
	return QidLen + 8 + 1 + 2 + len(d.Name)
}
