package v4l2

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	sys "golang.org/x/sys/unix"
)

// OpenDevice opens path with a plain openat rather than os.OpenFile; the
// file-layer's extra fcntl traffic makes some drivers report busy. The path
// must name a character device.
func OpenDevice(path string, flags int, mode uint32) (uintptr, error) {
	fstat, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("open device: %w", err)
	}

	if fstat.Mode()&fs.ModeCharDevice == 0 {
		return 0, fmt.Errorf("open device: %s: not a character device", path)
	}

	return openDev(path, flags, mode)
}

func openDev(path string, flags int, mode uint32) (uintptr, error) {
	var fd int
	var err error
	for {
		fd, err = sys.Openat(sys.AT_FDCWD, path, flags, mode)
		if err == nil {
			break
		}

		if errors.Is(err, sys.EINTR) {
			continue
		}

		return 0, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return uintptr(fd), nil
}

// CloseDevice closes the device file descriptor.
func CloseDevice(fd uintptr) error {
	return sys.Close(int(fd))
}

// ioctl issues SYS_IOCTL, retrying on EINTR.
func ioctl(fd, req, arg uintptr) (err sys.Errno) {
	for {
		_, _, errno := sys.Syscall(sys.SYS_IOCTL, fd, req, arg)
		switch errno {
		case 0:
			return 0
		case sys.EINTR:
			continue
		default:
			return errno
		}
	}
}

// send issues an ioctl and maps the errno onto ErrorSystem,
// ErrorBadArgument or ErrorUnsupported where one of those applies; any
// other errno is returned as is.
func send(fd, req, arg uintptr) error {
	errno := ioctl(fd, req, arg)
	if errno == 0 {
		return nil
	}
	parsedErr := parseErrorType(errno)
	switch parsedErr {
	case ErrorUnsupported, ErrorSystem, ErrorBadArgument:
		return parsedErr
	default:
		return errno
	}
}
