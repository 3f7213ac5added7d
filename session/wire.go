package session

import (
	"encoding/binary"
	"fmt"
	"io"
)

// CommandReq.Encode and DecodeCommandReq give CommandReq a single
// length-prefixed wire representation, the same encode/decode pair
// shape the 9P codec uses rather than a general-purpose serialization
// library.

const maxCommandReqSize = 1 << 20

func putU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func putStr(buf []byte, s string) []byte {
	buf = putU32(buf, uint32(len(s)))
	return append(buf, s...)
}

// Encode serializes c into a self-contained byte slice. The caller is
// responsible for framing it (the launcher control socket prefixes it
// with an 8-byte length, see Manager.Start).
func (c CommandReq) Encode() []byte {
	buf := make([]byte, 0, 256)
	buf = putStr(buf, c.Program)
	buf = putU32(buf, uint32(len(c.Args)))
	for _, a := range c.Args {
		buf = putStr(buf, a)
	}
	buf = putU32(buf, uint32(len(c.Envs)))
	for _, e := range c.Envs {
		buf = putStr(buf, e.Key)
		buf = putStr(buf, e.Val)
	}
	buf = putU32(buf, uint32(len(c.Fstab)))
	for _, f := range c.Fstab {
		buf = putStr(buf, f.Spec)
		buf = putStr(buf, f.File)
		buf = putStr(buf, f.Vfstype)
		buf = putStr(buf, f.Mntops)
		buf = putU32(buf, f.Freq)
		buf = putU32(buf, f.Passno)
	}
	var flags uint32
	if c.TTY {
		flags |= 1
	}
	if c.Ninep {
		flags |= 2
	}
	buf = putU32(buf, flags)
	buf = putStr(buf, c.TmpMnt)
	buf = putU32(buf, c.UID)
	buf = putU32(buf, c.GID)
	return buf
}

type reqReader struct {
	b   []byte
	pos int
}

func (r *reqReader) u32() (uint32, error) {
	if r.pos+4 > len(r.b) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint32(r.b[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reqReader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if r.pos+int(n) > len(r.b) {
		return "", io.ErrUnexpectedEOF
	}
	s := string(r.b[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

// DecodeCommandReq parses the byte slice produced by CommandReq.Encode.
func DecodeCommandReq(b []byte) (CommandReq, error) {
	var c CommandReq
	r := &reqReader{b: b}
	var err error
	if c.Program, err = r.str(); err != nil {
		return c, fmt.Errorf("session: decode program: %w", err)
	}
	nargs, err := r.u32()
	if err != nil {
		return c, fmt.Errorf("session: decode argc: %w", err)
	}
	c.Args = make([]string, nargs)
	for i := range c.Args {
		if c.Args[i], err = r.str(); err != nil {
			return c, fmt.Errorf("session: decode arg %d: %w", i, err)
		}
	}
	nenv, err := r.u32()
	if err != nil {
		return c, fmt.Errorf("session: decode envc: %w", err)
	}
	c.Envs = make([]EnvVar, nenv)
	for i := range c.Envs {
		if c.Envs[i].Key, err = r.str(); err != nil {
			return c, fmt.Errorf("session: decode env %d key: %w", i, err)
		}
		if c.Envs[i].Val, err = r.str(); err != nil {
			return c, fmt.Errorf("session: decode env %d val: %w", i, err)
		}
	}
	nfs, err := r.u32()
	if err != nil {
		return c, fmt.Errorf("session: decode fstab count: %w", err)
	}
	c.Fstab = make([]FsTab, nfs)
	for i := range c.Fstab {
		f := &c.Fstab[i]
		if f.Spec, err = r.str(); err != nil {
			return c, err
		}
		if f.File, err = r.str(); err != nil {
			return c, err
		}
		if f.Vfstype, err = r.str(); err != nil {
			return c, err
		}
		if f.Mntops, err = r.str(); err != nil {
			return c, err
		}
		if f.Freq, err = r.u32(); err != nil {
			return c, err
		}
		if f.Passno, err = r.u32(); err != nil {
			return c, err
		}
	}
	flags, err := r.u32()
	if err != nil {
		return c, fmt.Errorf("session: decode flags: %w", err)
	}
	c.TTY = flags&1 != 0
	c.Ninep = flags&2 != 0
	if c.TmpMnt, err = r.str(); err != nil {
		return c, fmt.Errorf("session: decode tmpmnt: %w", err)
	}
	if c.UID, err = r.u32(); err != nil {
		return c, fmt.Errorf("session: decode uid: %w", err)
	}
	if c.GID, err = r.u32(); err != nil {
		return c, fmt.Errorf("session: decode gid: %w", err)
	}
	return c, nil
}
