// Command matching-stub serves the matching-service endpoints the companies
// server pushes to, keeping postings in memory. Use it for local runs.
package main

import (
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/mux"

	"github.com/garnizeh/companies/pkg/logging"
)

type store struct {
	mu   sync.Mutex
	jobs map[string]json.RawMessage
	// fail makes every call answer 503 so the local_only path can be exercised.
	fail bool
}

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	fail := flag.Bool("fail", false, "answer every call with 503")
	flag.Parse()

	logger := logging.New("debug")
	defer logger.Sync()

	s := &store{jobs: map[string]json.RawMessage{}, fail: *fail}

	r := mux.NewRouter()
	r.HandleFunc("/matching/job/{id}/", func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if s.fail {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil || !json.Valid(body) {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		s.jobs[id] = body
		n := len(s.jobs)
		s.mu.Unlock()

		logger.Info("job stored", "id", id, "total", n)
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPost)

	r.HandleFunc("/matching/job/{id}/", func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if s.fail {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}

		s.mu.Lock()
		delete(s.jobs, id)
		s.mu.Unlock()

		logger.Info("job removed", "id", id)
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodDelete)

	r.HandleFunc("/matching/jobs", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.jobs); err != nil {
			logger.Error("encode jobs", "err", err)
		}
	}).Methods(http.MethodGet)

	logger.Info("matching stub listening", "addr", *addr, "fail", *fail)
	if err := http.ListenAndServe(*addr, r); err != nil {
		logger.Error("listen", "err", err)
		os.Exit(1)
	}
}
