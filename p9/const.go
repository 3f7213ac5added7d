// Package p9 implements the wire codec for the 9P2000.L protocol: the
// Linux-extension dialect of 9P used by this repository's remote-exec
// control plane to let a sandboxed child see its caller's file
// namespace. Every message type keeps a struct with an
// Encode(io.Writer) method and a matching decode function that reads
// its fields from a *Decoder (DecodeMsg dispatches on the type byte) —
// there is no zero-copy byte-slice view of messages, unlike some 9P
// libraries.
//
// All integers are little-endian. Strings are length-prefixed (2-byte
// count) UTF-8, never NUL-terminated. See fcall.go for the full message
// catalogue.
package p9

// Message type codes. Tlerror never appears on the wire (clients don't
// send it); it is kept for symmetry with the Linux v9fs source this
// numbering is taken from.
const (
	Tlerror = 6
	Rlerror = 7

	Tstatfs = 8
	Rstatfs = 9

	Tlopen = 12
	Rlopen = 13

	Tlcreate = 14
	Rlcreate = 15

	Tsymlink = 16
	Rsymlink = 17

	Tmknod = 18
	Rmknod = 19

	Trename = 20
	Rrename = 21

	Treadlink = 22
	Rreadlink = 23

	Tgetattr = 24
	Rgetattr = 25

	Tsetattr = 26
	Rsetattr = 27

	Txattrwalk = 30
	Rxattrwalk = 31

	Txattrcreate = 32
	Rxattrcreate = 33

	Treaddir = 40
	Rreaddir = 41

	Tfsync = 50
	Rfsync = 51

	Tlock = 52
	Rlock = 53

	Tgetlock = 54
	Rgetlock = 55

	Tlink = 70
	Rlink = 71

	Tmkdir = 72
	Rmkdir = 73

	Trenameat = 74
	Rrenameat = 75

	Tunlinkat = 76
	Runlinkat = 77

	Tversion = 100
	Rversion = 101

	Tauth = 102
	Rauth = 103

	Tattach = 104
	Rattach = 105

	Tflush = 108
	Rflush = 109

	Twalk = 110
	Rwalk = 111

	Tread = 116
	Rread = 117

	Twrite = 118
	Rwrite = 119

	Tclunk = 120
	Rclunk = 121

	Tremove = 122
	Rremove = 123
)

// Qid.Type bits.
const (
	QTDIR     = 0x80
	QTAPPEND  = 0x40
	QTEXCL    = 0x20
	QTMOUNT   = 0x10
	QTAUTH    = 0x08
	QTTMP     = 0x04
	QTSYMLINK = 0x02
	QTLINK    = 0x01
	QTFILE    = 0x00
)

// NOTAG is reserved for Tversion/Rversion, the one exchange that
// happens before tags are meaningful. NOFID marks the absence of an
// afid in Tattach/Tauth.
const (
	NOTAG uint16 = 0xFFFF
	NOFID uint32 = 0xFFFFFFFF
)

// SetattrMask bits, controlling which fields of a Tsetattr are applied.
const (
	SetattrMode     = 0x001
	SetattrUID      = 0x002
	SetattrGID      = 0x004
	SetattrSize     = 0x008
	SetattrATime    = 0x010
	SetattrMTime    = 0x020
	SetattrCTime    = 0x040
	SetattrATimeSet = 0x080
	SetattrMTimeSet = 0x100
)

// Open(2) flag bits a server is permitted to honor in Tlopen/Tlcreate.
// Anything outside this union (O_DIRECT being the practical offender)
// must be masked off before it reaches the host open(2) call.
const (
	ORDONLY = 0x0000
	OWRONLY = 0x0001
	ORDWR   = 0x0002
	OCREAT  = 0x0040
	OTRUNC  = 0x0200

	UnixOpenFlags = ORDONLY | OWRONLY | ORDWR | OCREAT | OTRUNC
)

// Version is the only protocol version this package speaks.
const Version = "9P2000.L"

// UnknownVersion is returned in Rversion when the client's proposed
// version is not recognized.
const UnknownVersion = "unknown"
