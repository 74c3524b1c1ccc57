// Package v4l2 provides low-level Go bindings for the Video4Linux2 (V4L2)
// ioctl interface used by a single-device MJPEG capture engine.
//
// It wraps the subset of the kernel's V4L2 userspace API needed to open a
// capture device, negotiate a pixel format, request and memory-map a ring of
// streaming buffers, and run the QBUF/DQBUF queue/dequeue cycle:
//
//   - Capability: VIDIOC_QUERYCAP device/driver identification
//   - PixFormat: VIDIOC_G_FMT / VIDIOC_S_FMT pixel format negotiation
//   - FormatDescription / FrameSize: VIDIOC_ENUM_FMT / VIDIOC_ENUM_FRAMESIZES
//   - RequestBuffers / Buffer: VIDIOC_REQBUFS, VIDIOC_QUERYBUF, VIDIOC_QBUF, VIDIOC_DQBUF
//   - StreamOn / StreamOff: VIDIOC_STREAMON / VIDIOC_STREAMOFF
//
// Callers outside this module should use internal/engine, which owns the
// open/ring/run-loop/stop lifecycle on top of these calls. This package only
// targets the video-capture buffer type and memory-mapped (MMAP) streaming
// I/O; read/write I/O, user-pointer buffers, and output devices are not
// implemented.
//
// CGO is required: struct layouts are taken directly from
// <linux/videodev2.h> via cgo rather than hand-transcribed, so the wire
// layout tracks whatever kernel headers the build machine has installed.
package v4l2
