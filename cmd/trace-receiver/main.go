package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

func main() {
	addr := flag.String("addr", ":8099", "listen address for trace receiver")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("/trace", handleTrace)
	mux.HandleFunc("/", handleTrace)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("trace receiver listening on %s (POST JSON to /trace)...", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("receiver error: %v", err)
	}
}

type traceRecord struct {
	ID        string          `json:"id"`
	Stage     string          `json:"stage"`
	Timestamp string          `json:"timestamp"`
	Fields    json.RawMessage `json:"fields"`
}

func handleTrace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	_ = r.Body.Close()
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	var rec traceRecord
	if err := json.Unmarshal(body, &rec); err != nil || rec.Stage == "" {
		log.Printf("rejected payload: path=%s len=%d", r.URL.Path, len(body))
		http.Error(w, "invalid trace record", http.StatusBadRequest)
		return
	}

	log.Printf("trace record: id=%s stage=%s ts=%s fields=%s", rec.ID, rec.Stage, rec.Timestamp, string(rec.Fields))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintln(w, `{"status":"ok"}`)
}
