package p9

import "io"

// A Msg is any decoded 9P2000.L message. Tag returns the message's
// tag (NOTAG for Tversion/Rversion); Encode writes the message's wire
// form, including its own 4-byte frame prefix, type byte and tag.
type Msg interface {
	Tag() uint16
	Encode(w io.Writer) error
}

// header is embedded in every message struct so Tag() comes for free.
type header struct {
	tag uint16
}

func (h header) Tag() uint16 { return h.tag }

func encodeMsg(w io.Writer, mtype uint8, tag uint16, fields func(*encoder)) error {
	e := &encoder{}
	e.u8(mtype)
	e.u16(tag)
	if fields != nil {
		fields(e)
	}
	return writeFrame(w, e.buf)
}

// DecodeMsg decodes one frame body (as returned by ReadFrame) into its
// concrete message type. Unrecognized message types produce an error
// rather than a Msg, since a 9P connection cannot safely continue past
// a type it does not understand.
func DecodeMsg(body []byte) (Msg, error) {
	mtype, tag, rest, err := ParseHeader(body)
	if err != nil {
		return nil, err
	}
	d := NewDecoder(rest)
	switch mtype {
	case Tversion:
		return decodeTversion(tag, d)
	case Rversion:
		return decodeRversion(tag, d)
	case Tauth:
		return decodeTauth(tag, d)
	case Rauth:
		return decodeRauth(tag, d)
	case Tattach:
		return decodeTattach(tag, d)
	case Rattach:
		return decodeRattach(tag, d)
	case Rlerror:
		return decodeRlerror(tag, d)
	case Tflush:
		return decodeTflush(tag, d)
	case Rflush:
		return decodeRflush(tag, d)
	case Twalk:
		return decodeTwalk(tag, d)
	case Rwalk:
		return decodeRwalk(tag, d)
	case Tread:
		return decodeTread(tag, d)
	case Rread:
		return decodeRread(tag, d)
	case Twrite:
		return decodeTwrite(tag, d)
	case Rwrite:
		return decodeRwrite(tag, d)
	case Tclunk:
		return decodeTclunk(tag, d)
	case Rclunk:
		return decodeRclunk(tag, d)
	case Tremove:
		return decodeTremove(tag, d)
	case Rremove:
		return decodeRremove(tag, d)
	case Tstatfs:
		return decodeTstatfs(tag, d)
	case Rstatfs:
		s, err := decodeStatfs(d)
		if err != nil {
			return nil, err
		}
		return &Rstatfsmsg{header{tag}, s}, nil
	case Tlopen:
		return decodeTlopen(tag, d)
	case Rlopen:
		return decodeRlopen(tag, d)
	case Tlcreate:
		return decodeTlcreate(tag, d)
	case Rlcreate:
		return decodeRlcreate(tag, d)
	case Tsymlink:
		return decodeTsymlink(tag, d)
	case Rsymlink:
		return decodeRsymlink(tag, d)
	case Tmknod:
		return decodeTmknod(tag, d)
	case Rmknod:
		return decodeRmknod(tag, d)
	case Trename:
		return decodeTrename(tag, d)
	case Rrename:
		return decodeRrename(tag, d)
	case Treadlink:
		return decodeTreadlink(tag, d)
	case Rreadlink:
		return decodeRreadlink(tag, d)
	case Tgetattr:
		return decodeTgetattr(tag, d)
	case Rgetattr:
		return decodeRgetattr(tag, d)
	case Tsetattr:
		return decodeTsetattr(tag, d)
	case Rsetattr:
		return decodeRsetattr(tag, d)
	case Txattrwalk:
		return decodeTxattrwalk(tag, d)
	case Rxattrwalk:
		return decodeRxattrwalk(tag, d)
	case Txattrcreate:
		return decodeTxattrcreate(tag, d)
	case Rxattrcreate:
		return decodeRxattrcreate(tag, d)
	case Treaddir:
		return decodeTreaddir(tag, d)
	case Rreaddir:
		return decodeRreaddir(tag, d)
	case Tfsync:
		return decodeTfsync(tag, d)
	case Rfsync:
		return decodeRfsync(tag, d)
	case Tlock:
		return decodeTlock(tag, d)
	case Rlock:
		return decodeRlock(tag, d)
	case Tgetlock:
		return decodeTgetlock(tag, d)
	case Rgetlock:
		return decodeRgetlock(tag, d)
	case Tlink:
		return decodeTlink(tag, d)
	case Rlink:
		return decodeRlink(tag, d)
	case Tmkdir:
		return decodeTmkdir(tag, d)
	case Rmkdir:
		return decodeRmkdir(tag, d)
	case Trenameat:
		return decodeTrenameat(tag, d)
	case Rrenameat:
		return decodeRrenameat(tag, d)
	case Tunlinkat:
		return decodeTunlinkat(tag, d)
	case Runlinkat:
		return decodeRunlinkat(tag, d)
	default:
		return nil, ErrUnknownType
	}
}

// ---- Tversion / Rversion ----

type Tversionmsg struct {
	header
	Msize   uint32
	Version string
}

func (m *Tversionmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Tversion, m.tag, func(e *encoder) {
		e.u32(m.Msize)
		e.str(m.Version)
	})
}

func decodeTversion(tag uint16, d *Decoder) (*Tversionmsg, error) {
	msize, err := d.u32()
	if err != nil {
		return nil, err
	}
	ver, err := d.str()
	if err != nil {
		return nil, err
	}
	return &Tversionmsg{header{tag}, msize, ver}, nil
}

type Rversionmsg struct {
	header
	Msize   uint32
	Version string
}

func (m *Rversionmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Rversion, m.tag, func(e *encoder) {
		e.u32(m.Msize)
		e.str(m.Version)
	})
}

func decodeRversion(tag uint16, d *Decoder) (*Rversionmsg, error) {
	msize, err := d.u32()
	if err != nil {
		return nil, err
	}
	ver, err := d.str()
	if err != nil {
		return nil, err
	}
	return &Rversionmsg{header{tag}, msize, ver}, nil
}

// ---- Tauth / Rauth ----
// Auth beyond the no-auth sentinel is out of scope; these exist so the
// server can reply Rlerror(EOPNOTSUPP) to a client that tries anyway.

type Tauthmsg struct {
	header
	Afid     uint32
	Uname    string
	Aname    string
	NUname   uint32
}

func (m *Tauthmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Tauth, m.tag, func(e *encoder) {
		e.u32(m.Afid)
		e.str(m.Uname)
		e.str(m.Aname)
		e.u32(m.NUname)
	})
}

func decodeTauth(tag uint16, d *Decoder) (*Tauthmsg, error) {
	afid, err := d.u32()
	if err != nil {
		return nil, err
	}
	uname, err := d.str()
	if err != nil {
		return nil, err
	}
	aname, err := d.str()
	if err != nil {
		return nil, err
	}
	nuname, err := d.u32()
	if err != nil {
		return nil, err
	}
	return &Tauthmsg{header{tag}, afid, uname, aname, nuname}, nil
}

type Rauthmsg struct {
	header
	Aqid Qid
}

func (m *Rauthmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Rauth, m.tag, func(e *encoder) { e.qid(m.Aqid) })
}

func decodeRauth(tag uint16, d *Decoder) (*Rauthmsg, error) {
	q, err := d.qid()
	if err != nil {
		return nil, err
	}
	return &Rauthmsg{header{tag}, q}, nil
}

// ---- Tattach / Rattach ----

type Tattachmsg struct {
	header
	Fid    uint32
	Afid   uint32
	Uname  string
	Aname  string
	NUname uint32
}

func (m *Tattachmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Tattach, m.tag, func(e *encoder) {
		e.u32(m.Fid)
		e.u32(m.Afid)
		e.str(m.Uname)
		e.str(m.Aname)
		e.u32(m.NUname)
	})
}

func decodeTattach(tag uint16, d *Decoder) (*Tattachmsg, error) {
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	afid, err := d.u32()
	if err != nil {
		return nil, err
	}
	uname, err := d.str()
	if err != nil {
		return nil, err
	}
	aname, err := d.str()
	if err != nil {
		return nil, err
	}
	nuname, err := d.u32()
	if err != nil {
		return nil, err
	}
	return &Tattachmsg{header{tag}, fid, afid, uname, aname, nuname}, nil
}

type Rattachmsg struct {
	header
	Qid Qid
}

func (m *Rattachmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Rattach, m.tag, func(e *encoder) { e.qid(m.Qid) })
}

func decodeRattach(tag uint16, d *Decoder) (*Rattachmsg, error) {
	q, err := d.qid()
	if err != nil {
		return nil, err
	}
	return &Rattachmsg{header{tag}, q}, nil
}

// ---- Rlerror ----

type Rlerrormsg struct {
	header
	Ecode uint32
}

func (m *Rlerrormsg) Encode(w io.Writer) error {
	return encodeMsg(w, Rlerror, m.tag, func(e *encoder) { e.u32(m.Ecode) })
}

func decodeRlerror(tag uint16, d *Decoder) (*Rlerrormsg, error) {
	ecode, err := d.u32()
	if err != nil {
		return nil, err
	}
	return &Rlerrormsg{header{tag}, ecode}, nil
}

// ---- Tflush / Rflush ----

type Tflushmsg struct {
	header
	Oldtag uint16
}

func (m *Tflushmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Tflush, m.tag, func(e *encoder) { e.u16(m.Oldtag) })
}

func decodeTflush(tag uint16, d *Decoder) (*Tflushmsg, error) {
	old, err := d.u16()
	if err != nil {
		return nil, err
	}
	return &Tflushmsg{header{tag}, old}, nil
}

type Rflushmsg struct{ header }

func (m *Rflushmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Rflush, m.tag, nil)
}

func decodeRflush(tag uint16, d *Decoder) (*Rflushmsg, error) {
	return &Rflushmsg{header{tag}}, nil
}

// ---- Twalk / Rwalk ----

type Twalkmsg struct {
	header
	Fid    uint32
	Newfid uint32
	Wname  []string
}

func (m *Twalkmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Twalk, m.tag, func(e *encoder) {
		e.u32(m.Fid)
		e.u32(m.Newfid)
		e.strList(m.Wname)
	})
}

func decodeTwalk(tag uint16, d *Decoder) (*Twalkmsg, error) {
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	newfid, err := d.u32()
	if err != nil {
		return nil, err
	}
	wname, err := d.strList()
	if err != nil {
		return nil, err
	}
	return &Twalkmsg{header{tag}, fid, newfid, wname}, nil
}

type Rwalkmsg struct {
	header
	Wqid []Qid
}

func (m *Rwalkmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Rwalk, m.tag, func(e *encoder) { e.qidList(m.Wqid) })
}

func decodeRwalk(tag uint16, d *Decoder) (*Rwalkmsg, error) {
	n, err := d.u16()
	if err != nil {
		return nil, err
	}
	qids, err := d.qidList(int(n))
	if err != nil {
		return nil, err
	}
	return &Rwalkmsg{header{tag}, qids}, nil
}

// ---- Tread / Rread ----

type Treadmsg struct {
	header
	Fid    uint32
	Offset uint64
	Count  uint32
}

func (m *Treadmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Tread, m.tag, func(e *encoder) {
		e.u32(m.Fid)
		e.u64(m.Offset)
		e.u32(m.Count)
	})
}

func decodeTread(tag uint16, d *Decoder) (*Treadmsg, error) {
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	off, err := d.u64()
	if err != nil {
		return nil, err
	}
	count, err := d.u32()
	if err != nil {
		return nil, err
	}
	return &Treadmsg{header{tag}, fid, off, count}, nil
}

type Rreadmsg struct {
	header
	Data []byte
}

func (m *Rreadmsg) Encode(w io.Writer) error {
	var ferr error
	err := encodeMsg(w, Rread, m.tag, func(e *encoder) {
		ferr = e.bytesField(m.Data)
	})
	if ferr != nil {
		return ferr
	}
	return err
}

func decodeRread(tag uint16, d *Decoder) (*Rreadmsg, error) {
	data, err := d.bytesField()
	if err != nil {
		return nil, err
	}
	return &Rreadmsg{header{tag}, data}, nil
}

// ---- Twrite / Rwrite ----

type Twritemsg struct {
	header
	Fid    uint32
	Offset uint64
	Data   []byte
}

func (m *Twritemsg) Encode(w io.Writer) error {
	var ferr error
	err := encodeMsg(w, Twrite, m.tag, func(e *encoder) {
		e.u32(m.Fid)
		e.u64(m.Offset)
		ferr = e.bytesField(m.Data)
	})
	if ferr != nil {
		return ferr
	}
	return err
}

func decodeTwrite(tag uint16, d *Decoder) (*Twritemsg, error) {
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	off, err := d.u64()
	if err != nil {
		return nil, err
	}
	data, err := d.bytesField()
	if err != nil {
		return nil, err
	}
	return &Twritemsg{header{tag}, fid, off, data}, nil
}

type Rwritemsg struct {
	header
	Count uint32
}

func (m *Rwritemsg) Encode(w io.Writer) error {
	return encodeMsg(w, Rwrite, m.tag, func(e *encoder) { e.u32(m.Count) })
}

func decodeRwrite(tag uint16, d *Decoder) (*Rwritemsg, error) {
	count, err := d.u32()
	if err != nil {
		return nil, err
	}
	return &Rwritemsg{header{tag}, count}, nil
}

// ---- Tclunk / Rclunk ----

type Tclunkmsg struct {
	header
	Fid uint32
}

func (m *Tclunkmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Tclunk, m.tag, func(e *encoder) { e.u32(m.Fid) })
}

func decodeTclunk(tag uint16, d *Decoder) (*Tclunkmsg, error) {
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	return &Tclunkmsg{header{tag}, fid}, nil
}

type Rclunkmsg struct{ header }

func (m *Rclunkmsg) Encode(w io.Writer) error { return encodeMsg(w, Rclunk, m.tag, nil) }

func decodeRclunk(tag uint16, d *Decoder) (*Rclunkmsg, error) {
	return &Rclunkmsg{header{tag}}, nil
}

// ---- Tremove / Rremove ----

type Tremovemsg struct {
	header
	Fid uint32
}

func (m *Tremovemsg) Encode(w io.Writer) error {
	return encodeMsg(w, Tremove, m.tag, func(e *encoder) { e.u32(m.Fid) })
}

func decodeTremove(tag uint16, d *Decoder) (*Tremovemsg, error) {
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	return &Tremovemsg{header{tag}, fid}, nil
}

type Rremovemsg struct{ header }

func (m *Rremovemsg) Encode(w io.Writer) error { return encodeMsg(w, Rremove, m.tag, nil) }

func decodeRremove(tag uint16, d *Decoder) (*Rremovemsg, error) {
	return &Rremovemsg{header{tag}}, nil
}

// ---- Tstatfs / Rstatfs ----

type Tstatfsmsg struct {
	header
	Fid uint32
}

func (m *Tstatfsmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Tstatfs, m.tag, func(e *encoder) { e.u32(m.Fid) })
}

func decodeTstatfs(tag uint16, d *Decoder) (*Tstatfsmsg, error) {
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	return &Tstatfsmsg{header{tag}, fid}, nil
}

// Rstatfsmsg wraps Statfs (which already has its own Encode method,
// kept for symmetry with how the rest of the codec is structured) as a
// Msg for DecodeMsg's dispatch table.
type Rstatfsmsg struct {
	header
	Statfs Statfs
}

func (m *Rstatfsmsg) Encode(w io.Writer) error { return m.Statfs.Encode(w, m.tag) }

// ---- Tlopen / Rlopen ----

type Tlopenmsg struct {
	header
	Fid   uint32
	Flags uint32
}

func (m *Tlopenmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Tlopen, m.tag, func(e *encoder) {
		e.u32(m.Fid)
		e.u32(m.Flags)
	})
}

func decodeTlopen(tag uint16, d *Decoder) (*Tlopenmsg, error) {
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	flags, err := d.u32()
	if err != nil {
		return nil, err
	}
	return &Tlopenmsg{header{tag}, fid, flags}, nil
}

type Rlopenmsg struct {
	header
	Qid    Qid
	Iounit uint32
}

func (m *Rlopenmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Rlopen, m.tag, func(e *encoder) {
		e.qid(m.Qid)
		e.u32(m.Iounit)
	})
}

func decodeRlopen(tag uint16, d *Decoder) (*Rlopenmsg, error) {
	q, err := d.qid()
	if err != nil {
		return nil, err
	}
	iounit, err := d.u32()
	if err != nil {
		return nil, err
	}
	return &Rlopenmsg{header{tag}, q, iounit}, nil
}

// ---- Tlcreate / Rlcreate ----

type Tlcreatemsg struct {
	header
	Fid   uint32
	Name  string
	Flags uint32
	Mode  uint32
	Gid   uint32
}

func (m *Tlcreatemsg) Encode(w io.Writer) error {
	var ferr error
	err := encodeMsg(w, Tlcreate, m.tag, func(e *encoder) {
		e.u32(m.Fid)
		ferr = e.str(m.Name)
		e.u32(m.Flags)
		e.u32(m.Mode)
		e.u32(m.Gid)
	})
	if ferr != nil {
		return ferr
	}
	return err
}

func decodeTlcreate(tag uint16, d *Decoder) (*Tlcreatemsg, error) {
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	name, err := d.str()
	if err != nil {
		return nil, err
	}
	flags, err := d.u32()
	if err != nil {
		return nil, err
	}
	mode, err := d.u32()
	if err != nil {
		return nil, err
	}
	gid, err := d.u32()
	if err != nil {
		return nil, err
	}
	return &Tlcreatemsg{header{tag}, fid, name, flags, mode, gid}, nil
}

type Rlcreatemsg struct {
	header
	Qid    Qid
	Iounit uint32
}

func (m *Rlcreatemsg) Encode(w io.Writer) error {
	return encodeMsg(w, Rlcreate, m.tag, func(e *encoder) {
		e.qid(m.Qid)
		e.u32(m.Iounit)
	})
}

func decodeRlcreate(tag uint16, d *Decoder) (*Rlcreatemsg, error) {
	q, err := d.qid()
	if err != nil {
		return nil, err
	}
	iounit, err := d.u32()
	if err != nil {
		return nil, err
	}
	return &Rlcreatemsg{header{tag}, q, iounit}, nil
}

// ---- Tsymlink / Rsymlink ----

type Tsymlinkmsg struct {
	header
	Fid     uint32
	Name    string
	Target  string
	Gid     uint32
}

func (m *Tsymlinkmsg) Encode(w io.Writer) error {
	var ferr error
	err := encodeMsg(w, Tsymlink, m.tag, func(e *encoder) {
		e.u32(m.Fid)
		if err := e.str(m.Name); err != nil {
			ferr = err
		}
		if err := e.str(m.Target); err != nil {
			ferr = err
		}
		e.u32(m.Gid)
	})
	if ferr != nil {
		return ferr
	}
	return err
}

func decodeTsymlink(tag uint16, d *Decoder) (*Tsymlinkmsg, error) {
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	name, err := d.str()
	if err != nil {
		return nil, err
	}
	target, err := d.str()
	if err != nil {
		return nil, err
	}
	gid, err := d.u32()
	if err != nil {
		return nil, err
	}
	return &Tsymlinkmsg{header{tag}, fid, name, target, gid}, nil
}

type Rsymlinkmsg struct {
	header
	Qid Qid
}

func (m *Rsymlinkmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Rsymlink, m.tag, func(e *encoder) { e.qid(m.Qid) })
}

func decodeRsymlink(tag uint16, d *Decoder) (*Rsymlinkmsg, error) {
	q, err := d.qid()
	if err != nil {
		return nil, err
	}
	return &Rsymlinkmsg{header{tag}, q}, nil
}

// ---- Tmknod / Rmknod ----

type Tmknodmsg struct {
	header
	Fid   uint32
	Name  string
	Mode  uint32
	Major uint32
	Minor uint32
	Gid   uint32
}

func (m *Tmknodmsg) Encode(w io.Writer) error {
	var ferr error
	err := encodeMsg(w, Tmknod, m.tag, func(e *encoder) {
		e.u32(m.Fid)
		ferr = e.str(m.Name)
		e.u32(m.Mode)
		e.u32(m.Major)
		e.u32(m.Minor)
		e.u32(m.Gid)
	})
	if ferr != nil {
		return ferr
	}
	return err
}

func decodeTmknod(tag uint16, d *Decoder) (*Tmknodmsg, error) {
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	name, err := d.str()
	if err != nil {
		return nil, err
	}
	mode, err := d.u32()
	if err != nil {
		return nil, err
	}
	major, err := d.u32()
	if err != nil {
		return nil, err
	}
	minor, err := d.u32()
	if err != nil {
		return nil, err
	}
	gid, err := d.u32()
	if err != nil {
		return nil, err
	}
	return &Tmknodmsg{header{tag}, fid, name, mode, major, minor, gid}, nil
}

type Rmknodmsg struct {
	header
	Qid Qid
}

func (m *Rmknodmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Rmknod, m.tag, func(e *encoder) { e.qid(m.Qid) })
}

func decodeRmknod(tag uint16, d *Decoder) (*Rmknodmsg, error) {
	q, err := d.qid()
	if err != nil {
		return nil, err
	}
	return &Rmknodmsg{header{tag}, q}, nil
}

// ---- Trename / Rrename ----

type Trenamemsg struct {
	header
	Fid    uint32
	Dfid   uint32
	Name   string
}

func (m *Trenamemsg) Encode(w io.Writer) error {
	var ferr error
	err := encodeMsg(w, Trename, m.tag, func(e *encoder) {
		e.u32(m.Fid)
		e.u32(m.Dfid)
		ferr = e.str(m.Name)
	})
	if ferr != nil {
		return ferr
	}
	return err
}

func decodeTrename(tag uint16, d *Decoder) (*Trenamemsg, error) {
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	dfid, err := d.u32()
	if err != nil {
		return nil, err
	}
	name, err := d.str()
	if err != nil {
		return nil, err
	}
	return &Trenamemsg{header{tag}, fid, dfid, name}, nil
}

type Rrenamemsg struct{ header }

func (m *Rrenamemsg) Encode(w io.Writer) error { return encodeMsg(w, Rrename, m.tag, nil) }

func decodeRrename(tag uint16, d *Decoder) (*Rrenamemsg, error) {
	return &Rrenamemsg{header{tag}}, nil
}

// ---- Treadlink / Rreadlink ----

type Treadlinkmsg struct {
	header
	Fid uint32
}

func (m *Treadlinkmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Treadlink, m.tag, func(e *encoder) { e.u32(m.Fid) })
}

func decodeTreadlink(tag uint16, d *Decoder) (*Treadlinkmsg, error) {
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	return &Treadlinkmsg{header{tag}, fid}, nil
}

type Rreadlinkmsg struct {
	header
	Target string
}

func (m *Rreadlinkmsg) Encode(w io.Writer) error {
	var ferr error
	err := encodeMsg(w, Rreadlink, m.tag, func(e *encoder) { ferr = e.str(m.Target) })
	if ferr != nil {
		return ferr
	}
	return err
}

func decodeRreadlink(tag uint16, d *Decoder) (*Rreadlinkmsg, error) {
	target, err := d.str()
	if err != nil {
		return nil, err
	}
	return &Rreadlinkmsg{header{tag}, target}, nil
}

// ---- Tgetattr / Rgetattr ----

type Tgetattrmsg struct {
	header
	Fid         uint32
	RequestMask uint64
}

func (m *Tgetattrmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Tgetattr, m.tag, func(e *encoder) {
		e.u32(m.Fid)
		e.u64(m.RequestMask)
	})
}

func decodeTgetattr(tag uint16, d *Decoder) (*Tgetattrmsg, error) {
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	mask, err := d.u64()
	if err != nil {
		return nil, err
	}
	return &Tgetattrmsg{header{tag}, fid, mask}, nil
}

// Rgetattrmsg carries the Stat record plus the protocol's eight
// reserved trailing 8-byte words (generation and data-version on real
// v9fs servers; this server always sends zero and Decode discards
// whatever it receives there).
type Rgetattrmsg struct {
	header
	Stat Stat
}

func (m *Rgetattrmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Rgetattr, m.tag, func(e *encoder) {
		m.Stat.encode(e)
		for i := 0; i < 8; i++ {
			e.u64(0)
		}
	})
}

func decodeRgetattr(tag uint16, d *Decoder) (*Rgetattrmsg, error) {
	s, err := decodeStat(d)
	if err != nil {
		return nil, err
	}
	_ = d.remaining() // reserved words, discarded
	return &Rgetattrmsg{header{tag}, s}, nil
}

// ---- Tsetattr / Rsetattr ----

type Tsetattrmsg struct {
	header
	Fid     uint32
	SetAttr SetAttr
}

func (m *Tsetattrmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Tsetattr, m.tag, func(e *encoder) {
		e.u32(m.Fid)
		m.SetAttr.encode(e)
	})
}

func decodeTsetattr(tag uint16, d *Decoder) (*Tsetattrmsg, error) {
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	sa, err := decodeSetAttr(d)
	if err != nil {
		return nil, err
	}
	return &Tsetattrmsg{header{tag}, fid, sa}, nil
}

type Rsetattrmsg struct{ header }

func (m *Rsetattrmsg) Encode(w io.Writer) error { return encodeMsg(w, Rsetattr, m.tag, nil) }

func decodeRsetattr(tag uint16, d *Decoder) (*Rsetattrmsg, error) {
	return &Rsetattrmsg{header{tag}}, nil
}

// ---- Txattrwalk / Rxattrwalk ----
// Extended attributes are not exposed by the passthrough filesystem;
// these are answered with Rlerror(EOPNOTSUPP).

type Txattrwalkmsg struct {
	header
	Fid     uint32
	Newfid  uint32
	Name    string
}

func (m *Txattrwalkmsg) Encode(w io.Writer) error {
	var ferr error
	err := encodeMsg(w, Txattrwalk, m.tag, func(e *encoder) {
		e.u32(m.Fid)
		e.u32(m.Newfid)
		ferr = e.str(m.Name)
	})
	if ferr != nil {
		return ferr
	}
	return err
}

func decodeTxattrwalk(tag uint16, d *Decoder) (*Txattrwalkmsg, error) {
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	newfid, err := d.u32()
	if err != nil {
		return nil, err
	}
	name, err := d.str()
	if err != nil {
		return nil, err
	}
	return &Txattrwalkmsg{header{tag}, fid, newfid, name}, nil
}

type Rxattrwalkmsg struct {
	header
	Size uint64
}

func (m *Rxattrwalkmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Rxattrwalk, m.tag, func(e *encoder) { e.u64(m.Size) })
}

func decodeRxattrwalk(tag uint16, d *Decoder) (*Rxattrwalkmsg, error) {
	size, err := d.u64()
	if err != nil {
		return nil, err
	}
	return &Rxattrwalkmsg{header{tag}, size}, nil
}

type Txattrcreatemsg struct {
	header
	Fid   uint32
	Name  string
	Size  uint64
	Flags uint32
}

func (m *Txattrcreatemsg) Encode(w io.Writer) error {
	var ferr error
	err := encodeMsg(w, Txattrcreate, m.tag, func(e *encoder) {
		e.u32(m.Fid)
		ferr = e.str(m.Name)
		e.u64(m.Size)
		e.u32(m.Flags)
	})
	if ferr != nil {
		return ferr
	}
	return err
}

func decodeTxattrcreate(tag uint16, d *Decoder) (*Txattrcreatemsg, error) {
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	name, err := d.str()
	if err != nil {
		return nil, err
	}
	size, err := d.u64()
	if err != nil {
		return nil, err
	}
	flags, err := d.u32()
	if err != nil {
		return nil, err
	}
	return &Txattrcreatemsg{header{tag}, fid, name, size, flags}, nil
}

type Rxattrcreatemsg struct{ header }

func (m *Rxattrcreatemsg) Encode(w io.Writer) error { return encodeMsg(w, Rxattrcreate, m.tag, nil) }

func decodeRxattrcreate(tag uint16, d *Decoder) (*Rxattrcreatemsg, error) {
	return &Rxattrcreatemsg{header{tag}}, nil
}

// ---- Treaddir / Rreaddir ----

type Treaddirmsg struct {
	header
	Fid    uint32
	Offset uint64
	Count  uint32
}

func (m *Treaddirmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Treaddir, m.tag, func(e *encoder) {
		e.u32(m.Fid)
		e.u64(m.Offset)
		e.u32(m.Count)
	})
}

func decodeTreaddir(tag uint16, d *Decoder) (*Treaddirmsg, error) {
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	off, err := d.u64()
	if err != nil {
		return nil, err
	}
	count, err := d.u32()
	if err != nil {
		return nil, err
	}
	return &Treaddirmsg{header{tag}, fid, off, count}, nil
}

// Rreaddirmsg's wire form is a 4-byte length-prefixed blob of
// concatenated DirEntry records, exactly like Rread's Data field; the
// entries are kept decoded here since callers always want them as
// DirEntry values, never as raw bytes.
type Rreaddirmsg struct {
	header
	Data []DirEntry
}

func (m *Rreaddirmsg) Encode(w io.Writer) error {
	body := &encoder{}
	for _, ent := range m.Data {
		if err := ent.encode(body); err != nil {
			return err
		}
	}
	var ferr error
	err := encodeMsg(w, Rreaddir, m.tag, func(e *encoder) {
		ferr = e.bytesField(body.buf)
	})
	if ferr != nil {
		return ferr
	}
	return err
}

func decodeRreaddir(tag uint16, d *Decoder) (*Rreaddirmsg, error) {
	raw, err := d.bytesField()
	if err != nil {
		return nil, err
	}
	inner := NewDecoder(raw)
	var entries []DirEntry
	for inner.pos < len(inner.b) {
		ent, err := decodeDirEntry(inner)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ent)
	}
	return &Rreaddirmsg{header{tag}, entries}, nil
}

// ---- Tfsync / Rfsync ----

type Tfsyncmsg struct {
	header
	Fid uint32
}

func (m *Tfsyncmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Tfsync, m.tag, func(e *encoder) { e.u32(m.Fid) })
}

func decodeTfsync(tag uint16, d *Decoder) (*Tfsyncmsg, error) {
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	return &Tfsyncmsg{header{tag}, fid}, nil
}

type Rfsyncmsg struct{ header }

func (m *Rfsyncmsg) Encode(w io.Writer) error { return encodeMsg(w, Rfsync, m.tag, nil) }

func decodeRfsync(tag uint16, d *Decoder) (*Rfsyncmsg, error) {
	return &Rfsyncmsg{header{tag}}, nil
}

// ---- Tlock / Rlock ----
// Advisory byte-range locking is not implemented: the ninep server
// core answers Tlock and Tgetlock with Rlerror(EOPNOTSUPP). These
// types exist for protocol completeness.

type Flock struct {
	Type   uint8
	Flags  uint32
	Start  uint64
	Length uint64
	Proc   uint32
	Client string
}

func (f Flock) encode(e *encoder) error {
	e.u8(f.Type)
	e.u32(f.Flags)
	e.u64(f.Start)
	e.u64(f.Length)
	e.u32(f.Proc)
	return e.str(f.Client)
}

func decodeFlock(d *Decoder) (Flock, error) {
	var f Flock
	var err error
	if f.Type, err = d.u8(); err != nil {
		return f, err
	}
	if f.Flags, err = d.u32(); err != nil {
		return f, err
	}
	if f.Start, err = d.u64(); err != nil {
		return f, err
	}
	if f.Length, err = d.u64(); err != nil {
		return f, err
	}
	if f.Proc, err = d.u32(); err != nil {
		return f, err
	}
	if f.Client, err = d.str(); err != nil {
		return f, err
	}
	return f, nil
}

// Lock status codes.
const (
	LockSuccess = 0
	LockBlocked = 1
	LockError   = 2
	LockGrace   = 3
)

type Tlockmsg struct {
	header
	Fid  uint32
	Lock Flock
}

func (m *Tlockmsg) Encode(w io.Writer) error {
	var ferr error
	err := encodeMsg(w, Tlock, m.tag, func(e *encoder) {
		e.u32(m.Fid)
		ferr = m.Lock.encode(e)
	})
	if ferr != nil {
		return ferr
	}
	return err
}

func decodeTlock(tag uint16, d *Decoder) (*Tlockmsg, error) {
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	lock, err := decodeFlock(d)
	if err != nil {
		return nil, err
	}
	return &Tlockmsg{header{tag}, fid, lock}, nil
}

type Rlockmsg struct {
	header
	Status uint8
}

func (m *Rlockmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Rlock, m.tag, func(e *encoder) { e.u8(m.Status) })
}

func decodeRlock(tag uint16, d *Decoder) (*Rlockmsg, error) {
	status, err := d.u8()
	if err != nil {
		return nil, err
	}
	return &Rlockmsg{header{tag}, status}, nil
}

type Tgetlockmsg struct {
	header
	Fid  uint32
	Lock Flock
}

func (m *Tgetlockmsg) Encode(w io.Writer) error {
	var ferr error
	err := encodeMsg(w, Tgetlock, m.tag, func(e *encoder) {
		e.u32(m.Fid)
		ferr = m.Lock.encode(e)
	})
	if ferr != nil {
		return ferr
	}
	return err
}

func decodeTgetlock(tag uint16, d *Decoder) (*Tgetlockmsg, error) {
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	lock, err := decodeFlock(d)
	if err != nil {
		return nil, err
	}
	return &Tgetlockmsg{header{tag}, fid, lock}, nil
}

type Rgetlockmsg struct {
	header
	Lock Flock
}

func (m *Rgetlockmsg) Encode(w io.Writer) error {
	var ferr error
	err := encodeMsg(w, Rgetlock, m.tag, func(e *encoder) { ferr = m.Lock.encode(e) })
	if ferr != nil {
		return ferr
	}
	return err
}

func decodeRgetlock(tag uint16, d *Decoder) (*Rgetlockmsg, error) {
	lock, err := decodeFlock(d)
	if err != nil {
		return nil, err
	}
	return &Rgetlockmsg{header{tag}, lock}, nil
}

// ---- Tlink / Rlink ----

type Tlinkmsg struct {
	header
	Dfid uint32
	Fid  uint32
	Name string
}

func (m *Tlinkmsg) Encode(w io.Writer) error {
	var ferr error
	err := encodeMsg(w, Tlink, m.tag, func(e *encoder) {
		e.u32(m.Dfid)
		e.u32(m.Fid)
		ferr = e.str(m.Name)
	})
	if ferr != nil {
		return ferr
	}
	return err
}

func decodeTlink(tag uint16, d *Decoder) (*Tlinkmsg, error) {
	dfid, err := d.u32()
	if err != nil {
		return nil, err
	}
	fid, err := d.u32()
	if err != nil {
		return nil, err
	}
	name, err := d.str()
	if err != nil {
		return nil, err
	}
	return &Tlinkmsg{header{tag}, dfid, fid, name}, nil
}

type Rlinkmsg struct{ header }

func (m *Rlinkmsg) Encode(w io.Writer) error { return encodeMsg(w, Rlink, m.tag, nil) }

func decodeRlink(tag uint16, d *Decoder) (*Rlinkmsg, error) {
	return &Rlinkmsg{header{tag}}, nil
}

// ---- Tmkdir / Rmkdir ----

type Tmkdirmsg struct {
	header
	Dfid uint32
	Name string
	Mode uint32
	Gid  uint32
}

func (m *Tmkdirmsg) Encode(w io.Writer) error {
	var ferr error
	err := encodeMsg(w, Tmkdir, m.tag, func(e *encoder) {
		e.u32(m.Dfid)
		ferr = e.str(m.Name)
		e.u32(m.Mode)
		e.u32(m.Gid)
	})
	if ferr != nil {
		return ferr
	}
	return err
}

func decodeTmkdir(tag uint16, d *Decoder) (*Tmkdirmsg, error) {
	dfid, err := d.u32()
	if err != nil {
		return nil, err
	}
	name, err := d.str()
	if err != nil {
		return nil, err
	}
	mode, err := d.u32()
	if err != nil {
		return nil, err
	}
	gid, err := d.u32()
	if err != nil {
		return nil, err
	}
	return &Tmkdirmsg{header{tag}, dfid, name, mode, gid}, nil
}

type Rmkdirmsg struct {
	header
	Qid Qid
}

func (m *Rmkdirmsg) Encode(w io.Writer) error {
	return encodeMsg(w, Rmkdir, m.tag, func(e *encoder) { e.qid(m.Qid) })
}

func decodeRmkdir(tag uint16, d *Decoder) (*Rmkdirmsg, error) {
	q, err := d.qid()
	if err != nil {
		return nil, err
	}
	return &Rmkdirmsg{header{tag}, q}, nil
}

// ---- Trenameat / Rrenameat ----

type Trenameatmsg struct {
	header
	Olddirfid uint32
	Oldname   string
	Newdirfid uint32
	Newname   string
}

func (m *Trenameatmsg) Encode(w io.Writer) error {
	var ferr error
	err := encodeMsg(w, Trenameat, m.tag, func(e *encoder) {
		e.u32(m.Olddirfid)
		if err := e.str(m.Oldname); err != nil {
			ferr = err
		}
		e.u32(m.Newdirfid)
		if err := e.str(m.Newname); err != nil {
			ferr = err
		}
	})
	if ferr != nil {
		return ferr
	}
	return err
}

func decodeTrenameat(tag uint16, d *Decoder) (*Trenameatmsg, error) {
	olddirfid, err := d.u32()
	if err != nil {
		return nil, err
	}
	oldname, err := d.str()
	if err != nil {
		return nil, err
	}
	newdirfid, err := d.u32()
	if err != nil {
		return nil, err
	}
	newname, err := d.str()
	if err != nil {
		return nil, err
	}
	return &Trenameatmsg{header{tag}, olddirfid, oldname, newdirfid, newname}, nil
}

type Rrenameatmsg struct{ header }

func (m *Rrenameatmsg) Encode(w io.Writer) error { return encodeMsg(w, Rrenameat, m.tag, nil) }

func decodeRrenameat(tag uint16, d *Decoder) (*Rrenameatmsg, error) {
	return &Rrenameatmsg{header{tag}}, nil
}

// ---- Tunlinkat / Runlinkat ----

type Tunlinkatmsg struct {
	header
	Dirfid uint32
	Name   string
	Flags  uint32
}

func (m *Tunlinkatmsg) Encode(w io.Writer) error {
	var ferr error
	err := encodeMsg(w, Tunlinkat, m.tag, func(e *encoder) {
		e.u32(m.Dirfid)
		ferr = e.str(m.Name)
		e.u32(m.Flags)
	})
	if ferr != nil {
		return ferr
	}
	return err
}

func decodeTunlinkat(tag uint16, d *Decoder) (*Tunlinkatmsg, error) {
	dirfid, err := d.u32()
	if err != nil {
		return nil, err
	}
	name, err := d.str()
	if err != nil {
		return nil, err
	}
	flags, err := d.u32()
	if err != nil {
		return nil, err
	}
	return &Tunlinkatmsg{header{tag}, dirfid, name, flags}, nil
}

type Runlinkatmsg struct{ header }

func (m *Runlinkatmsg) Encode(w io.Writer) error { return encodeMsg(w, Runlinkat, m.tag, nil) }

func decodeRunlinkat(tag uint16, d *Decoder) (*Runlinkatmsg, error) {
	return &Runlinkatmsg{header{tag}}, nil
}
