package fetch

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
)

func compress(t *testing.T, encoding, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	switch encoding {
	case "gzip":
		w = gzip.NewWriter(&buf)
	case "deflate":
		w = zlib.NewWriter(&buf)
	case "br":
		w = brotli.NewWriter(&buf)
	default:
		buf.WriteString(body)
		return buf.Bytes()
	}
	if _, err := io.WriteString(w, body); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestClientGet_ContentEncoding(t *testing.T) {
	t.Parallel()

	const page = "<html><body>wiki page</body></html>"
	tests := []struct {
		encoding string
		wantErr  error
	}{
		{encoding: ""},
		{encoding: "gzip"},
		{encoding: "deflate"},
		{encoding: "br"},
		{encoding: "zstd", wantErr: ErrUnsupportedEncoding},
	}
	for _, tt := range tests {
		t.Run("encoding "+tt.encoding, func(t *testing.T) {
			t.Parallel()

			var accept string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				accept = r.Header.Get("Accept-Encoding")
				if tt.encoding != "" {
					w.Header().Set("Content-Encoding", tt.encoding)
				}
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write(compress(t, tt.encoding, page)) //nolint:errcheck // test server
			}))
			defer srv.Close()

			c, err := NewClient()
			if err != nil {
				t.Fatalf("NewClient: %v", err)
			}
			resp, err := c.Get(context.Background(), srv.URL, nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(resp.Body) != page {
				t.Errorf("got body %q", resp.Body)
			}
			if resp.Header.Get("Content-Encoding") != "" {
				t.Error("Content-Encoding should be dropped after decoding")
			}
			if accept != DefaultAcceptEncoding {
				t.Errorf("got Accept-Encoding %q", accept)
			}
		})
	}
}
