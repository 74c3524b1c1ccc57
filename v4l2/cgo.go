package v4l2

/*
#cgo linux CFLAGS: -I/usr/include

#include <linux/videodev2.h>
*/
import "C"

// CGO directives for the package live here. Struct layouts and constants
// come straight from the kernel's V4L2 UAPI headers (linux-libc-dev or the
// distribution's equivalent package). To build against other headers,
// override the include path:
//
//	CGO_CFLAGS="-I/path/to/sysroot/usr/include" CC=aarch64-linux-gnu-gcc go build
