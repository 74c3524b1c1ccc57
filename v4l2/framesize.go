package v4l2

// #include <linux/videodev2.h>
import "C"

import (
	"errors"
	"fmt"
	"unsafe"
)

// FrameSizeType distinguishes how a driver reports supported frame sizes
// (v4l2_frmsizetypes).
type FrameSizeType = uint32

const (
	FrameSizeTypeDiscrete   FrameSizeType = C.V4L2_FRMSIZE_TYPE_DISCRETE
	FrameSizeTypeContinuous FrameSizeType = C.V4L2_FRMSIZE_TYPE_CONTINUOUS
	FrameSizeTypeStepwise   FrameSizeType = C.V4L2_FRMSIZE_TYPE_STEPWISE
)

// FrameSize is one VIDIOC_ENUM_FRAMESIZES result for a pixel encoding. A
// discrete size has Min equal to Max and zero steps; stepwise and
// continuous drivers describe the whole supported range in a single entry.
type FrameSize struct {
	Index       uint32
	Type        FrameSizeType
	PixelFormat FourCCType

	MinWidth   uint32
	MaxWidth   uint32
	StepWidth  uint32
	MinHeight  uint32
	MaxHeight  uint32
	StepHeight uint32
}

func (s FrameSize) String() string {
	if s.Type == FrameSizeTypeDiscrete {
		return fmt.Sprintf("%dx%d", s.MaxWidth, s.MaxHeight)
	}
	return fmt.Sprintf("%dx%d to %dx%d", s.MinWidth, s.MinHeight, s.MaxWidth, s.MaxHeight)
}

// frmsizeDiscrete and frmsizeStepwise mirror the two members of the union
// inside struct v4l2_frmsizeenum.
type frmsizeDiscrete struct {
	Width  uint32
	Height uint32
}

type frmsizeStepwise struct {
	MinWidth   uint32
	MaxWidth   uint32
	StepWidth  uint32
	MinHeight  uint32
	MaxHeight  uint32
	StepHeight uint32
}

// GetFormatFrameSizes enumerates every frame size the device supports for
// encoding. Discrete drivers list one entry per size and end the list with
// EINVAL; other drivers report the full range in entry 0.
func GetFormatFrameSizes(fd uintptr, encoding FourCCType) ([]FrameSize, error) {
	var result []FrameSize
	for index := uint32(0); ; index++ {
		var enum C.struct_v4l2_frmsizeenum
		enum.index = C.uint(index)
		enum.pixel_format = C.uint(encoding)

		if err := send(fd, C.VIDIOC_ENUM_FRAMESIZES, uintptr(unsafe.Pointer(&enum))); err != nil {
			if errors.Is(err, ErrorBadArgument) && len(result) > 0 {
				return result, nil
			}
			return result, fmt.Errorf("frame sizes: %s: %w", FourCCString(encoding), err)
		}

		size := FrameSize{Index: index, Type: FrameSizeType(enum._type), PixelFormat: encoding}
		switch size.Type {
		case FrameSizeTypeDiscrete:
			d := *(*frmsizeDiscrete)(unsafe.Pointer(&enum.anon0[0]))
			size.MinWidth, size.MaxWidth = d.Width, d.Width
			size.MinHeight, size.MaxHeight = d.Height, d.Height
		default:
			s := *(*frmsizeStepwise)(unsafe.Pointer(&enum.anon0[0]))
			size.MinWidth, size.MaxWidth, size.StepWidth = s.MinWidth, s.MaxWidth, s.StepWidth
			size.MinHeight, size.MaxHeight, size.StepHeight = s.MinHeight, s.MaxHeight, s.StepHeight
		}
		result = append(result, size)

		if size.Type != FrameSizeTypeDiscrete {
			return result, nil
		}
	}
}
