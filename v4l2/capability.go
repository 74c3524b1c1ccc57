package v4l2

// #include <linux/videodev2.h>
import "C"

import (
	"fmt"
	"unsafe"
)

// Capability flags reported by VIDIOC_QUERYCAP. Only the flags this module
// inspects or prints during device enumeration are bound; the kernel defines
// many more.
const (
	CapVideoCapture       uint32 = C.V4L2_CAP_VIDEO_CAPTURE
	CapVideoCaptureMPlane uint32 = C.V4L2_CAP_VIDEO_CAPTURE_MPLANE
	CapVideoOutput        uint32 = C.V4L2_CAP_VIDEO_OUTPUT
	CapReadWrite          uint32 = C.V4L2_CAP_READWRITE
	CapStreaming          uint32 = C.V4L2_CAP_STREAMING
	CapDeviceCapabilities uint32 = C.V4L2_CAP_DEVICE_CAPS
)

var capDescriptions = []struct {
	cap  uint32
	desc string
}{
	{CapVideoCapture, "video capture"},
	{CapVideoCaptureMPlane, "video capture (multi-planar)"},
	{CapVideoOutput, "video output"},
	{CapReadWrite, "read/write IO"},
	{CapStreaming, "streaming IO"},
}

// Capability carries the identification and capability masks returned by
// VIDIOC_QUERYCAP (struct v4l2_capability). Capabilities covers the whole
// physical device; DeviceCapabilities covers just the opened node and is
// only valid when the driver sets CapDeviceCapabilities.
type Capability struct {
	Driver  string
	Card    string
	BusInfo string
	Version uint32

	Capabilities       uint32
	DeviceCapabilities uint32
}

// GetCapability queries fd with VIDIOC_QUERYCAP.
func GetCapability(fd uintptr) (Capability, error) {
	var v4l2Cap C.struct_v4l2_capability
	if err := send(fd, C.VIDIOC_QUERYCAP, uintptr(unsafe.Pointer(&v4l2Cap))); err != nil {
		return Capability{}, fmt.Errorf("capability: %w", err)
	}
	return Capability{
		Driver:             C.GoString((*C.char)(unsafe.Pointer(&v4l2Cap.driver[0]))),
		Card:               C.GoString((*C.char)(unsafe.Pointer(&v4l2Cap.card[0]))),
		BusInfo:            C.GoString((*C.char)(unsafe.Pointer(&v4l2Cap.bus_info[0]))),
		Version:            uint32(v4l2Cap.version),
		Capabilities:       uint32(v4l2Cap.capabilities),
		DeviceCapabilities: uint32(v4l2Cap.device_caps),
	}, nil
}

// GetCapabilities returns the mask that applies to the opened node:
// DeviceCapabilities when the driver provides one, the device-wide mask
// otherwise.
func (c Capability) GetCapabilities() uint32 {
	if c.IsDeviceCapabilitiesProvided() {
		return c.DeviceCapabilities
	}
	return c.Capabilities
}

func (c Capability) IsDeviceCapabilitiesProvided() bool {
	return c.Capabilities&CapDeviceCapabilities != 0
}

// IsVideoCaptureSupported reports whether the device can capture video
// through the single-planar API.
func (c Capability) IsVideoCaptureSupported() bool {
	return c.Capabilities&CapVideoCapture != 0
}

// IsStreamingSupported reports whether the device supports streaming I/O,
// the mode the memory-mapped buffer ring requires.
func (c Capability) IsStreamingSupported() bool {
	return c.Capabilities&CapStreaming != 0
}

// Descriptions returns display names for every bound flag set in the mask
// that applies to the opened node.
func (c Capability) Descriptions() []string {
	mask := c.GetCapabilities()
	var result []string
	for _, d := range capDescriptions {
		if mask&d.cap != 0 {
			result = append(result, d.desc)
		}
	}
	return result
}

func (c Capability) String() string {
	return fmt.Sprintf("driver: %s; card: %s; bus info: %s", c.Driver, c.Card, c.BusInfo)
}
