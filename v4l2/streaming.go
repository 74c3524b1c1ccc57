package v4l2

// #include <linux/videodev2.h>
import "C"

import (
	"errors"
	"fmt"
	"time"
	"unsafe"

	sys "golang.org/x/sys/unix"
)

// BufType selects which data stream on the device an ioctl applies to.
// Everything here targets the single-planar video capture stream.
type BufType = uint32

const BufTypeVideoCapture BufType = C.V4L2_BUF_TYPE_VIDEO_CAPTURE

// memoryMMAP selects driver-allocated buffers mapped into the process, the
// only streaming I/O mode implemented by this package.
const memoryMMAP uint32 = C.V4L2_MEMORY_MMAP

// RequestBuffers mirrors struct v4l2_requestbuffers. Count carries the ring
// cardinality: requested on the way in, granted on the way out.
type RequestBuffers struct {
	Count        uint32
	StreamType   uint32
	Memory       uint32
	Capabilities uint32
	_            [1]uint32
}

// Timecode mirrors struct v4l2_timecode. It rides along inside Buffer;
// nothing in this module reads it.
type Timecode struct {
	Type     uint32
	Flags    uint32
	Frames   uint8
	Seconds  uint8
	Minutes  uint8
	Hours    uint8
	Userbits [4]uint8
}

// Buffer mirrors struct v4l2_buffer, the record exchanged with the driver
// by QUERYBUF, QBUF and DQBUF. For a dequeued buffer, Index names the ring
// slot and BytesUsed the payload length the driver wrote into it.
type Buffer struct {
	Index      uint32
	StreamType uint32
	BytesUsed  uint32
	Flags      uint32
	Field      uint32
	Timestamp  sys.Timeval
	Timecode   Timecode
	Sequence   uint32
	Memory     uint32
	Info       BufferInfo // m union
	Length     uint32
	Reserved2  uint32
	RequestFD  int32
}

// BufferInfo is the m union of struct v4l2_buffer. For MMAP streaming only
// Offset is meaningful: the value to pass to mmap for this slot.
type BufferInfo struct {
	Offset  uint32
	UserPtr uintptr
	Planes  *Plane
	FD      int32
}

// Plane mirrors struct v4l2_plane, present only to give BufferInfo the
// union's full width; multi-planar streaming is not implemented.
type Plane struct {
	BytesUsed  uint32
	Length     uint32
	Info       PlaneInfo // m union
	DataOffset uint32
}

type PlaneInfo struct {
	MemOffset uint32
	UserPtr   uintptr
	FD        int32
}

func makeBuffer(v4l2Buf C.struct_v4l2_buffer) Buffer {
	return Buffer{
		Index:      uint32(v4l2Buf.index),
		StreamType: uint32(v4l2Buf._type),
		BytesUsed:  uint32(v4l2Buf.bytesused),
		Flags:      uint32(v4l2Buf.flags),
		Field:      uint32(v4l2Buf.field),
		Timestamp:  *(*sys.Timeval)(unsafe.Pointer(&v4l2Buf.timestamp)),
		Timecode:   *(*Timecode)(unsafe.Pointer(&v4l2Buf.timecode)),
		Sequence:   uint32(v4l2Buf.sequence),
		Memory:     uint32(v4l2Buf.memory),
		Info:       *(*BufferInfo)(unsafe.Pointer(&v4l2Buf.m[0])),
		Length:     uint32(v4l2Buf.length),
		Reserved2:  uint32(v4l2Buf.reserved2),
		RequestFD:  *(*int32)(unsafe.Pointer(&v4l2Buf.anon0[0])),
	}
}

// StreamOn turns capture streaming on with VIDIOC_STREAMON. Buffers must
// already be requested and queued.
func StreamOn(fd uintptr) error {
	bufType := BufTypeVideoCapture
	if err := send(fd, C.VIDIOC_STREAMON, uintptr(unsafe.Pointer(&bufType))); err != nil {
		return fmt.Errorf("stream on: %w", err)
	}
	return nil
}

// StreamOff turns capture streaming off with VIDIOC_STREAMOFF. The driver
// abandons any buffers still queued; they stay mapped until unmapped.
func StreamOff(fd uintptr) error {
	bufType := BufTypeVideoCapture
	if err := send(fd, C.VIDIOC_STREAMOFF, uintptr(unsafe.Pointer(&bufType))); err != nil {
		return fmt.Errorf("stream off: %w", err)
	}
	return nil
}

// InitBuffers asks the driver for count MMAP buffers with VIDIOC_REQBUFS.
// The driver is free to grant fewer; the granted cardinality comes back in
// Count and is what the caller must map and queue.
func InitBuffers(fd uintptr, count uint32) (RequestBuffers, error) {
	var req C.struct_v4l2_requestbuffers
	req.count = C.uint(count)
	req._type = C.uint(BufTypeVideoCapture)
	req.memory = C.uint(memoryMMAP)

	if err := send(fd, C.VIDIOC_REQBUFS, uintptr(unsafe.Pointer(&req))); err != nil {
		return RequestBuffers{}, fmt.Errorf("request buffers: %w", err)
	}
	if req.count < 1 {
		return RequestBuffers{}, errors.New("request buffers: driver granted no buffers")
	}

	return *(*RequestBuffers)(unsafe.Pointer(&req)), nil
}

// GetBuffer queries the allocated buffer at index with VIDIOC_QUERYBUF to
// learn its length and mmap offset.
func GetBuffer(fd uintptr, index uint32) (Buffer, error) {
	var v4l2Buf C.struct_v4l2_buffer
	v4l2Buf._type = C.uint(BufTypeVideoCapture)
	v4l2Buf.memory = C.uint(memoryMMAP)
	v4l2Buf.index = C.uint(index)

	if err := send(fd, C.VIDIOC_QUERYBUF, uintptr(unsafe.Pointer(&v4l2Buf))); err != nil {
		return Buffer{}, fmt.Errorf("query buffer: %w", err)
	}
	return makeBuffer(v4l2Buf), nil
}

// MapMemoryBuffer maps one driver buffer into the process at the offset
// QUERYBUF reported for it.
func MapMemoryBuffer(fd uintptr, offset int64, len int) ([]byte, error) {
	data, err := sys.Mmap(int(fd), offset, len, sys.PROT_READ|sys.PROT_WRITE, sys.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("map memory buffer: %w", err)
	}
	return data, nil
}

// UnmapMemoryBuffer releases a mapping created by MapMemoryBuffer.
func UnmapMemoryBuffer(buf []byte) error {
	if err := sys.Munmap(buf); err != nil {
		return fmt.Errorf("unmap memory buffer: %w", err)
	}
	return nil
}

// QueueBuffer hands the ring slot at index back to the driver with
// VIDIOC_QBUF so it can be filled with the next frame.
func QueueBuffer(fd uintptr, index uint32) (Buffer, error) {
	var v4l2Buf C.struct_v4l2_buffer
	v4l2Buf._type = C.uint(BufTypeVideoCapture)
	v4l2Buf.memory = C.uint(memoryMMAP)
	v4l2Buf.index = C.uint(index)

	if err := send(fd, C.VIDIOC_QBUF, uintptr(unsafe.Pointer(&v4l2Buf))); err != nil {
		return Buffer{}, fmt.Errorf("buffer queue: %w", err)
	}
	return makeBuffer(v4l2Buf), nil
}

// DequeueBuffer takes the next filled buffer from the driver with
// VIDIOC_DQBUF. With a non-blocking fd the call fails with EAGAIN when no
// frame is ready.
func DequeueBuffer(fd uintptr) (Buffer, error) {
	var v4l2Buf C.struct_v4l2_buffer
	v4l2Buf._type = C.uint(BufTypeVideoCapture)
	v4l2Buf.memory = C.uint(memoryMMAP)

	if err := send(fd, C.VIDIOC_DQBUF, uintptr(unsafe.Pointer(&v4l2Buf))); err != nil {
		return Buffer{}, fmt.Errorf("buffer dequeue: %w", err)
	}
	return makeBuffer(v4l2Buf), nil
}

// WaitForDeviceRead blocks until fd is readable, meaning a filled buffer
// can be dequeued, or the timeout elapses.
func WaitForDeviceRead(fd uintptr, timeout time.Duration) error {
	timeval := sys.NsecToTimeval(timeout.Nanoseconds())
	var fdsRead sys.FdSet
	fdsRead.Set(int(fd))
	for {
		n, err := sys.Select(int(fd+1), &fdsRead, nil, nil, &timeval)
		switch n {
		case -1:
			if err == sys.EINTR {
				continue
			}
			return err
		case 0:
			return errors.New("wait for device ready: timeout")
		default:
			return nil
		}
	}
}
