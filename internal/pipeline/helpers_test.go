package pipeline

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// writeTruncated hijacks the connection, announces a body longer than partial,
// sends partial and hangs up, as a server dying mid-payload would
func writeTruncated(t *testing.T, w http.ResponseWriter, status int, partial string) {
	t.Helper()
	hj, ok := w.(http.Hijacker)
	if !ok {
		t.Error("response writer does not support hijacking")
		return
	}
	conn, buf, err := hj.Hijack()
	if err != nil {
		t.Errorf("hijack: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	_, _ = fmt.Fprintf(buf, "HTTP/1.1 %d %s\r\nContent-Type: application/json\r\nContent-Length: %d\r\n\r\n%s",
		status, http.StatusText(status), len(partial)+4096, partial)
	_ = buf.Flush()
}

// closedServerURL returns a URL nothing is listening on
func closedServerURL() string {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	return url
}

func newTestStreamer(t *testing.T, chunkSize int) *StreamFetcher {
	t.Helper()
	s, err := NewStreamFetcher(http.DefaultClient, chunkSize, 5*time.Second, "reup-test", 1<<20)
	if err != nil {
		t.Fatalf("NewStreamFetcher: %v", err)
	}
	return s
}

const universitiesBody = `[{"name": "Peking University", "alpha_two_code": "CN", "country": "China", "state-province": "Beijing", "web_pages": ["https://www.pku.edu.cn/"], "domains": ["pku.edu.cn"]}, ` +
	`{"name": "Tsinghua University", "alpha_two_code": "CN", "country": "China", "state-province": null, "web_pages": ["https://www.tsinghua.edu.cn/"], "domains": ["tsinghua.edu.cn"]}, ` +
	`{"name": "Fudan University", "alpha_two_code": "CN", "country": "China", "state-province": "Shanghai", "web_pages": ["https://www.fudan.edu.cn/"], "domains": ["fudan.edu.cn"]}]`
