package httpserver

import "bytes"

// Upper bounds on each request-line token; a line with a longer token does
// not parse. They do not limit how many bytes are buffered while waiting for
// the header terminator.
const (
	maxMethodLen  = 10
	maxPathLen    = 250
	maxVersionLen = 4
)

// crlf is the line terminator the parser searches for.
var crlf = []byte("\r\n")

// headerTerminator marks the end of the header block.
var headerTerminator = []byte("\r\n\r\n")

// findRequestLine reports the index just past the first CRLF in buf, or -1
// if no complete line is present yet (the caller should wait for more
// bytes).
func findRequestLine(buf []byte) int {
	i := bytes.Index(buf, crlf)
	if i < 0 {
		return -1
	}
	return i + len(crlf)
}

// headersComplete reports the index just past the header-terminating blank
// line, or -1 if the header block is not yet fully buffered.
func headersComplete(buf []byte) int {
	i := bytes.Index(buf, headerTerminator)
	if i < 0 {
		return -1
	}
	return i + len(headerTerminator)
}

// requestLine holds the three tokens parsed from the first line of an HTTP
// request.
type requestLine struct {
	Method  string
	Path    string
	Version string
}

// parseRequestLine parses "METHOD SP PATH SP HTTP/VERSION\r\n": bounded
// token lengths, a literal "HTTP/" prefix on the third token. Any deviation
// is reported as !ok so the caller can keep the connection open and await
// more data rather than reject it outright.
func parseRequestLine(line []byte) (rl requestLine, ok bool) {
	line = bytes.TrimSuffix(line, crlf)

	methodEnd := bytes.IndexByte(line, ' ')
	if methodEnd <= 0 || methodEnd > maxMethodLen {
		return rl, false
	}
	rest := line[methodEnd+1:]

	pathEnd := bytes.IndexByte(rest, ' ')
	if pathEnd <= 0 || pathEnd > maxPathLen {
		return rl, false
	}
	path := rest[:pathEnd]
	versionField := rest[pathEnd+1:]

	const prefix = "HTTP/"
	if !bytes.HasPrefix(versionField, []byte(prefix)) {
		return rl, false
	}
	version := versionField[len(prefix):]
	if len(version) == 0 || len(version) > maxVersionLen {
		return rl, false
	}

	rl.Method = string(line[:methodEnd])
	rl.Path = string(path)
	rl.Version = string(version)
	return rl, true
}

// knownPaths are the only paths that resolve to a 200; anything else is
// 404.
var knownPaths = map[string]bool{
	"/":            true,
	"/video.mjpeg": true,
	"/favicon.ico": true,
}

func routeFor(path string) (statusCode int) {
	if knownPaths[path] {
		return 200
	}
	return 404
}

// httpVersionFor normalizes a request's version token to the two values the
// system ever echoes back: "1.1" iff the token starts with "1.1", else
// "1.0".
func httpVersionFor(version string) string {
	if len(version) >= 3 && version[:3] == "1.1" {
		return "1.1"
	}
	return "1.0"
}
