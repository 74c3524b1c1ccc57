package engine

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	sys "golang.org/x/sys/unix"

	"mjpegcam/v4l2"
)

var devPattern = regexp.MustCompile(`/dev/(video|vbi)[0-9]+`)

// DevicePaths returns every V4L2-looking character device under /dev.
func DevicePaths() ([]string, error) {
	entries, err := os.ReadDir("/dev")
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	var result []string
	for _, entry := range entries {
		path := "/dev/" + entry.Name()
		if !devPattern.MatchString(path) {
			continue
		}
		if stat, err := os.Stat(path); err == nil && stat.Mode()&os.ModeCharDevice != 0 {
			result = append(result, path)
		}
	}
	return result, nil
}

// DescribeDevices writes a capability, format, and frame-size summary for
// every device under /dev. One unopenable device does not fail the whole
// listing; its error is reported inline and enumeration continues.
func DescribeDevices(w io.Writer) error {
	paths, err := DevicePaths()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Fprintln(w, "no V4L2 devices found under /dev")
		return nil
	}

	for _, path := range paths {
		fd, err := v4l2.OpenDevice(path, sys.O_RDWR, 0)
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", path, err)
			continue
		}
		describeDevice(w, path, fd)
		_ = v4l2.CloseDevice(fd)
	}
	return nil
}

func describeDevice(w io.Writer, path string, fd uintptr) {
	cap, err := v4l2.GetCapability(fd)
	if err != nil {
		fmt.Fprintf(w, "%s: %v\n", path, err)
		return
	}

	fmt.Fprintf(w, "%s: %s\n", path, cap)
	fmt.Fprintf(w, "\tcapabilities: %s\n", strings.Join(cap.Descriptions(), ", "))
	if !cap.IsVideoCaptureSupported() {
		fmt.Fprintln(w, "\tvideo capture: not supported")
		return
	}

	descs, err := v4l2.GetAllFormatDescriptions(fd)
	if err != nil && len(descs) == 0 {
		fmt.Fprintf(w, "\tformats: %v\n", err)
		return
	}
	var names []string
	for _, d := range descs {
		names = append(names, v4l2.PixelFormatName(d.PixelFormat))
	}
	fmt.Fprintf(w, "\tformats: %s\n", strings.Join(names, ", "))

	mjpeg, err := v4l2.SupportsFormat(fd, v4l2.PixelFmtMJPEG)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "\tMJPEG capture supported: %t\n", mjpeg)
	if !mjpeg {
		return
	}

	sizes, err := v4l2.GetFormatFrameSizes(fd, v4l2.PixelFmtMJPEG)
	if err != nil && len(sizes) == 0 {
		return
	}
	var dims []string
	for _, s := range sizes {
		dims = append(dims, s.String())
	}
	fmt.Fprintf(w, "\tMJPEG frame sizes: %s\n", strings.Join(dims, ", "))
}
