package v4l2

import (
	"errors"

	sys "golang.org/x/sys/unix"
)

// Sentinel errors classifying ioctl failures. parseErrorType maps raw errno
// values onto these. send returns only ErrorSystem, ErrorBadArgument and
// ErrorUnsupported in place of the errno; every other errno, EAGAIN
// included, is returned unchanged, so callers branch on it with errors.Is
// against the errno itself.
var (
	// ErrorSystem covers EBADF, ENOMEM, ENODEV, EIO, ENXIO and EFAULT:
	// structural failures that will not resolve on retry.
	ErrorSystem = errors.New("system error")

	// ErrorBadArgument corresponds to EINVAL. The enumeration calls also
	// use it as the driver's end-of-list marker.
	ErrorBadArgument = errors.New("bad argument error")

	// ErrorTemporary covers transient conditions worth retrying.
	ErrorTemporary = errors.New("temporary error")

	// ErrorTimeout is returned for errno values that report a timeout.
	ErrorTimeout = errors.New("timeout error")

	// ErrorUnsupported corresponds to ENOTTY: the device does not
	// implement the requested ioctl.
	ErrorUnsupported = errors.New("unsupported error")

	// ErrorInterrupted corresponds to EINTR.
	ErrorInterrupted = errors.New("interrupted")
)

func parseErrorType(errno sys.Errno) error {
	switch errno {
	case sys.EBADF, sys.ENOMEM, sys.ENODEV, sys.EIO, sys.ENXIO, sys.EFAULT:
		return ErrorSystem
	case sys.EINTR:
		return ErrorInterrupted
	case sys.EINVAL:
		return ErrorBadArgument
	case sys.ENOTTY:
		return ErrorUnsupported
	default:
		if errno.Timeout() {
			return ErrorTimeout
		}
		if errno.Temporary() {
			return ErrorTemporary
		}
		return errno
	}
}
