package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// FakeUpstream is an httptest server standing in for the content API.
// It counts hits per path and can be told to fail specific paths.
type FakeUpstream struct {
	Server *httptest.Server

	mu       sync.Mutex
	hits     map[string]int
	failing  map[string]bool
	payloads map[string]string
}

// NewFakeUpstream serves CategoryPayloads and closes itself at test cleanup.
func NewFakeUpstream(t *testing.T) *FakeUpstream {
	f := &FakeUpstream{
		hits:     make(map[string]int),
		failing:  make(map[string]bool),
		payloads: make(map[string]string, len(CategoryPayloads)),
	}
	for path, body := range CategoryPayloads {
		f.payloads[path] = body
	}

	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

func (f *FakeUpstream) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.URL.Path]++
	failing := f.failing[r.URL.Path]
	body, ok := f.payloads[r.URL.Path]
	f.mu.Unlock()

	if failing {
		http.Error(w, `{"error":"upstream down"}`, http.StatusServiceUnavailable)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (f *FakeUpstream) URL() string {
	return f.Server.URL
}

// Hits returns how many requests path has received.
func (f *FakeUpstream) Hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

// TotalHits returns the request count across all paths.
func (f *FakeUpstream) TotalHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.hits {
		total += n
	}
	return total
}

// Fail makes path answer 503 until Recover is called.
func (f *FakeUpstream) Fail(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[path] = true
}

func (f *FakeUpstream) Recover(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failing, path)
}

// SetPayload replaces the body served for path.
func (f *FakeUpstream) SetPayload(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[path] = body
}
