package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"github.com/nhle/tempmail/internal/model"
)

// Backend is an in-process stand-in for the disposable-mail server. It
// serves the same two routes with the same JSON shapes and status codes.
type Backend struct {
	mu       sync.Mutex
	domains  []string
	queues   map[string][]model.Message
	polls    map[string]int
	failures int
	rawPaths []string

	server *httptest.Server
}

// NewBackend starts a Backend that accepts mail for domains. The server is
// closed when the test completes.
func NewBackend(t *testing.T, domains ...string) *Backend {
	t.Helper()

	b := &Backend{
		domains: domains,
		queues:  make(map[string][]model.Message),
		polls:   make(map[string]int),
	}

	r := mux.NewRouter()
	r.HandleFunc("/getAllowedDomains", b.handleDomains).Methods(http.MethodGet)
	r.HandleFunc("/getMail/{address}", b.handleGetMail).Methods(http.MethodGet)

	b.server = httptest.NewServer(r)
	t.Cleanup(b.server.Close)
	return b
}

// URL returns the base URL of the server.
func (b *Backend) URL() string { return b.server.URL }

// Deliver queues messages for address. Like the reference server, the most
// recently delivered message is handed out first.
func (b *Backend) Deliver(address string, msgs ...model.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queues[address] = append(b.queues[address], msgs...)
}

// FailNext makes the next n mail polls answer 500.
func (b *Backend) FailNext(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = n
}

// PollCount returns how many times address was polled.
func (b *Backend) PollCount(address string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.polls[address]
}

// RawPaths returns the escaped request paths seen on /getMail.
func (b *Backend) RawPaths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.rawPaths...)
}

func (b *Backend) handleDomains(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	domains := append([]string{}, b.domains...)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"allowedDomains": domains})
}

func (b *Backend) handleGetMail(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	b.mu.Lock()
	b.polls[address]++
	b.rawPaths = append(b.rawPaths, r.URL.EscapedPath())
	if b.failures > 0 {
		b.failures--
		b.mu.Unlock()
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "获取邮件失败"})
		return
	}

	queue := b.queues[address]
	if len(queue) == 0 {
		b.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]interface{}{"mail": "没有邮件"})
		return
	}
	msg := queue[len(queue)-1]
	b.queues[address] = queue[:len(queue)-1]
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"mail": map[string]interface{}{
			"from":        msg.From,
			"title":       msg.Title,
			"TextContent": nullable(msg.TextBody),
			"HtmlContent": nullable(msg.HTMLBody),
		},
	})
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
