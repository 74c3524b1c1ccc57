package v4l2

// #include <linux/videodev2.h>
import "C"

import (
	"errors"
	"fmt"
	"unsafe"
)

// FormatDescription is one VIDIOC_ENUM_FMT result (struct v4l2_fmtdesc):
// one pixel encoding the opened device can produce.
type FormatDescription struct {
	Index       uint32
	StreamType  BufType
	Flags       uint32
	Description string
	PixelFormat FourCCType
}

func (d FormatDescription) String() string {
	return fmt.Sprintf("%s (%s)", d.Description, FourCCString(d.PixelFormat))
}

// GetFormatDescription returns the capture format description at index.
func GetFormatDescription(fd uintptr, index uint32) (FormatDescription, error) {
	var fmtDesc C.struct_v4l2_fmtdesc
	fmtDesc.index = C.uint(index)
	fmtDesc._type = C.uint(BufTypeVideoCapture)

	if err := send(fd, C.VIDIOC_ENUM_FMT, uintptr(unsafe.Pointer(&fmtDesc))); err != nil {
		return FormatDescription{}, fmt.Errorf("format desc: index %d: %w", index, err)
	}
	return FormatDescription{
		Index:       uint32(fmtDesc.index),
		StreamType:  uint32(fmtDesc._type),
		Flags:       uint32(fmtDesc.flags),
		Description: C.GoString((*C.char)(unsafe.Pointer(&fmtDesc.description[0]))),
		PixelFormat: uint32(fmtDesc.pixelformat),
	}, nil
}

// GetAllFormatDescriptions enumerates from index 0 until the driver reports
// the end of the list with EINVAL.
func GetAllFormatDescriptions(fd uintptr) ([]FormatDescription, error) {
	var result []FormatDescription
	for index := uint32(0); ; index++ {
		desc, err := GetFormatDescription(fd, index)
		if err != nil {
			if errors.Is(err, ErrorBadArgument) && len(result) > 0 {
				return result, nil
			}
			return result, fmt.Errorf("format desc: all: %w", err)
		}
		result = append(result, desc)
	}
}

// SupportsFormat reports whether the device can produce encoding.
func SupportsFormat(fd uintptr, encoding FourCCType) (bool, error) {
	descs, err := GetAllFormatDescriptions(fd)
	if err != nil && len(descs) == 0 {
		return false, err
	}
	for _, d := range descs {
		if d.PixelFormat == encoding {
			return true, nil
		}
	}
	return false, nil
}
