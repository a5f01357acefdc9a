package briefing

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bryan-buckman/iantel/internal/model"
)

// rssFeed renders a minimal RSS document with one item per title.
func rssFeed(prefix string, titles ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>t</title><link>https://example.com</link><description>d</description>`)
	for i, title := range titles {
		fmt.Fprintf(&b, `<item><title>%s</title><link>https://%s.example/%d</link><description>about %s</description></item>`, title, prefix, i, title)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func serve(t *testing.T, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

type memStatus struct {
	mu       sync.Mutex
	statuses []model.SourceStatus
}

func (m *memStatus) RecordSourceStatus(st model.SourceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, st)
	return nil
}
