package p9

import "io"

// QidLen is the encoded size of a Qid in bytes.
const QidLen = 13

// A Qid is the server's unique identity for a file: distinct live
// files must have distinct Path values within one server's lifetime.
// Path is typically the host inode number.
type Qid struct {
	Type    uint8
	Version uint32
	Path    uint64
}

// Encode writes the wire form of q to w.
func (q Qid) Encode(w io.Writer) error {
	var buf [QidLen]byte
	buf[0] = q.Type
	putUint32(buf[1:5], q.Version)
	putUint64(buf[5:13], q.Path)
	_, err := w.Write(buf[:])
	return err
}

// decodeQid reads a Qid from d.
func decodeQid(d *Decoder) (Qid, error) {
	b, err := d.take(QidLen)
	if err != nil {
		return Qid{}, err
	}
	return Qid{
		Type:    b[0],
		Version: getUint32(b[1:5]),
		Path:    getUint64(b[5:13]),
	}, nil
}
