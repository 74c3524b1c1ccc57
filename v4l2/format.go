package v4l2

// #include <linux/videodev2.h>
import "C"

import (
	"fmt"
	"unsafe"
)

// FourCCType identifies a pixel encoding as a packed four character code.
type FourCCType = uint32

// Pixel encodings this module recognizes. MJPEG is the only format the
// capture engine will stream; the rest exist so enumeration output can name
// what a device offers.
var (
	PixelFmtMJPEG FourCCType = C.V4L2_PIX_FMT_MJPEG
	PixelFmtJPEG  FourCCType = C.V4L2_PIX_FMT_JPEG
	PixelFmtYUYV  FourCCType = C.V4L2_PIX_FMT_YUYV
	PixelFmtRGB24 FourCCType = C.V4L2_PIX_FMT_RGB24
	PixelFmtGrey  FourCCType = C.V4L2_PIX_FMT_GREY
	PixelFmtH264  FourCCType = C.V4L2_PIX_FMT_H264
)

// PixelFormats maps the recognized encodings to display names.
var PixelFormats = map[FourCCType]string{
	PixelFmtMJPEG: "Motion-JPEG",
	PixelFmtJPEG:  "JFIF JPEG",
	PixelFmtYUYV:  "YUYV 4:2:2",
	PixelFmtRGB24: "24-bit RGB 8-8-8",
	PixelFmtGrey:  "8-bit Greyscale",
	PixelFmtH264:  "H.264",
}

// FourCCString decodes a four character code into its ASCII form.
func FourCCString(fcc FourCCType) string {
	return string([]byte{byte(fcc), byte(fcc >> 8), byte(fcc >> 16), byte(fcc >> 24)})
}

// PixelFormatName returns the display name for a recognized encoding and
// the raw four character code for anything else.
func PixelFormatName(fcc FourCCType) string {
	if name, ok := PixelFormats[fcc]; ok {
		return name
	}
	return FourCCString(fcc)
}

// FieldType selects the interlacing arrangement of captured frames
// (v4l2_field).
type FieldType = uint32

const (
	// FieldAny lets the driver pick the field order.
	FieldAny FieldType = C.V4L2_FIELD_ANY
	// FieldNone is a progressive, non-interlaced frame.
	FieldNone FieldType = C.V4L2_FIELD_NONE
)

// PixFormat mirrors struct v4l2_pix_format field for field, so a value can
// be copied directly into (and out of) the fmt union of struct v4l2_format.
// YcbcrEnc occupies the C struct's ycbcr_enc/hsv_enc union slot.
type PixFormat struct {
	Width        uint32
	Height       uint32
	PixelFormat  FourCCType
	Field        FieldType
	BytesPerLine uint32
	SizeImage    uint32
	Colorspace   uint32
	Priv         uint32
	Flags        uint32
	YcbcrEnc     uint32
	Quantization uint32
	XferFunc     uint32
}

func (f PixFormat) String() string {
	return fmt.Sprintf("%s [%dx%d]; bytes per line=%d; size image=%d",
		PixelFormatName(f.PixelFormat), f.Width, f.Height, f.BytesPerLine, f.SizeImage)
}

// GetPixFormat reads the current capture format with VIDIOC_G_FMT.
func GetPixFormat(fd uintptr) (PixFormat, error) {
	var v4l2Fmt C.struct_v4l2_format
	v4l2Fmt._type = C.uint(BufTypeVideoCapture)

	if err := send(fd, C.VIDIOC_G_FMT, uintptr(unsafe.Pointer(&v4l2Fmt))); err != nil {
		return PixFormat{}, fmt.Errorf("get format: %w", err)
	}
	return *(*PixFormat)(unsafe.Pointer(&v4l2Fmt.fmt[0])), nil
}

// SetPixFormat requests pixFmt with VIDIOC_S_FMT. Drivers adjust rather
// than reject, so the caller must re-read the format to learn what was
// actually configured.
func SetPixFormat(fd uintptr, pixFmt PixFormat) error {
	var v4l2Fmt C.struct_v4l2_format
	v4l2Fmt._type = C.uint(BufTypeVideoCapture)
	*(*PixFormat)(unsafe.Pointer(&v4l2Fmt.fmt[0])) = pixFmt

	if err := send(fd, C.VIDIOC_S_FMT, uintptr(unsafe.Pointer(&v4l2Fmt))); err != nil {
		return fmt.Errorf("set format: %w", err)
	}
	return nil
}
