package httpserver

import "testing"

func TestParseRequestLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantOK  bool
		wantRL  requestLine
	}{
		{
			name:   "root 1.1",
			line:   "GET / HTTP/1.1\r\n",
			wantOK: true,
			wantRL: requestLine{Method: "GET", Path: "/", Version: "1.1"},
		},
		{
			name:   "video 1.0",
			line:   "GET /video.mjpeg HTTP/1.0\r\n",
			wantOK: true,
			wantRL: requestLine{Method: "GET", Path: "/video.mjpeg", Version: "1.0"},
		},
		{
			name:   "missing http prefix",
			line:   "GET / 1.1\r\n",
			wantOK: false,
		},
		{
			name:   "missing path",
			line:   "GET HTTP/1.1\r\n",
			wantOK: false,
		},
		{
			name:   "method too long",
			line:   "REALLYLONGMETHOD / HTTP/1.1\r\n",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl, ok := parseRequestLine([]byte(tt.line))
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if rl != tt.wantRL {
				t.Fatalf("parseRequestLine() = %+v, want %+v", rl, tt.wantRL)
			}
		})
	}
}

func TestRouteFor(t *testing.T) {
	tests := []struct {
		path string
		want int
	}{
		{"/", 200},
		{"/video.mjpeg", 200},
		{"/favicon.ico", 200},
		{"/nope", 404},
		{"", 404},
	}
	for _, tt := range tests {
		if got := routeFor(tt.path); got != tt.want {
			t.Fatalf("routeFor(%q) = %d, want %d", tt.path, got, tt.want)
		}
	}
}

func TestHTTPVersionFor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.1", "1.1"},
		{"1.1x", "1.1"},
		{"1.0", "1.0"},
		{"2", "1.0"},
		{"", "1.0"},
	}
	for _, tt := range tests {
		if got := httpVersionFor(tt.in); got != tt.want {
			t.Fatalf("httpVersionFor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFindRequestLine(t *testing.T) {
	if i := findRequestLine([]byte("GET / HTTP/1.1")); i != -1 {
		t.Fatalf("findRequestLine() without CRLF = %d, want -1", i)
	}
	if i := findRequestLine([]byte("GET / HTTP/1.1\r\nHost: x\r\n")); i != len("GET / HTTP/1.1\r\n") {
		t.Fatalf("findRequestLine() = %d, want %d", i, len("GET / HTTP/1.1\r\n"))
	}
}

func TestHeadersComplete(t *testing.T) {
	if i := headersComplete([]byte("GET / HTTP/1.1\r\nHost: x\r\n")); i != -1 {
		t.Fatalf("headersComplete() without terminator = %d, want -1", i)
	}
	buf := []byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n")
	if i := headersComplete(buf); i != len(buf) {
		t.Fatalf("headersComplete() = %d, want %d", i, len(buf))
	}
}
