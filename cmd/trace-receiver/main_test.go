package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandleTrace(t *testing.T) {
	cases := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"valid record", http.MethodPost, `{"stage":"stage_policy_router","fields":{"policy_keyword_hit":true}}`, http.StatusOK},
		{"missing stage", http.MethodPost, `{"fields":{}}`, http.StatusBadRequest},
		{"not json", http.MethodPost, `nope`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, ``, http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/trace", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			handleTrace(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
		})
	}
}
