package p9

import (
	"errors"
	"io/fs"
	"syscall"
)

// ErrUnknownType is returned by DecodeMsg when a frame's type byte
// does not match any message in the catalogue.
var ErrUnknownType = errors.New("p9: unknown message type")

// A RemoteError is the Go representation of an Rlerror: a Linux errno
// value returned by the peer in place of the expected reply. Callers
// that care about the specific errno can use errors.As and inspect
// Errno directly, or errors.Is against the relevant syscall.Errno
// (RemoteError.Is makes that comparison work).
type RemoteError struct {
	Errno syscall.Errno
}

func (e *RemoteError) Error() string { return "9p: " + e.Errno.Error() }

func (e *RemoteError) Is(target error) bool {
	if errno, ok := target.(syscall.Errno); ok {
		return e.Errno == errno
	}
	return false
}

// NewRemoteError builds a RemoteError from the ecode carried by an
// Rlerror message.
func NewRemoteError(ecode uint32) *RemoteError {
	return &RemoteError{Errno: syscall.Errno(ecode)}
}

// ErrnoFromError maps a Go error from the standard library (os, io,
// net) to the Linux errno that best describes it, for use in building
// an Rlerror reply. Errors that already carry a syscall.Errno (as
// *os.PathError and friends usually do on Linux) are passed through
// unchanged; everything else falls back to a reasonable approximation,
// with EIO as the catch-all for conditions with no close analogue.
func ErrnoFromError(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, fs.ErrPermission):
		return syscall.EPERM
	case errors.Is(err, fs.ErrExist):
		return syscall.EEXIST
	case errors.Is(err, fs.ErrClosed):
		return syscall.EBADF
	case errors.Is(err, syscall.ECONNREFUSED):
		return syscall.ECONNREFUSED
	case errors.Is(err, syscall.ECONNRESET):
		return syscall.ECONNRESET
	case errors.Is(err, syscall.ECONNABORTED):
		return syscall.ECONNABORTED
	case errors.Is(err, syscall.ENOTCONN):
		return syscall.ENOTCONN
	case errors.Is(err, syscall.EADDRINUSE):
		return syscall.EADDRINUSE
	case errors.Is(err, syscall.EADDRNOTAVAIL):
		return syscall.EADDRNOTAVAIL
	case errors.Is(err, syscall.EPIPE):
		return syscall.EPIPE
	case errors.Is(err, syscall.EALREADY):
		return syscall.EALREADY
	case errors.Is(err, syscall.EAGAIN):
		return syscall.EAGAIN
	case errors.Is(err, syscall.EINVAL):
		return syscall.EINVAL
	case errors.Is(err, syscall.ETIMEDOUT):
		return syscall.ETIMEDOUT
	case errors.Is(err, syscall.EINTR):
		return syscall.EINTR
	case errors.Is(err, syscall.ENOTEMPTY):
		return syscall.ENOTEMPTY
	case errors.Is(err, syscall.ENOTDIR):
		return syscall.ENOTDIR
	case errors.Is(err, syscall.EISDIR):
		return syscall.EISDIR
	case errors.Is(err, syscall.EXDEV):
		return syscall.EXDEV
	case errors.Is(err, syscall.ENOSYS):
		return syscall.ENOSYS
	case errors.Is(err, syscall.EOPNOTSUPP):
		return syscall.EOPNOTSUPP
	default:
		return syscall.EIO
	}
}

// NewRlerror builds the wire reply for err, tagged tag.
func NewRlerror(tag uint16, err error) *Rlerrormsg {
	return &Rlerrormsg{header{tag}, uint32(ErrnoFromError(err))}
}
