package httpadapter

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDMiddlewareReusesInboundID(t *testing.T) {
	var seenInContext string
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenInContext = requestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/claims/CLM_AB12CD34", nil)
	req.Header.Set(requestIDHeader, "member-trace-42")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if seenInContext != "member-trace-42" {
		t.Fatalf("context request id = %q, want inbound id reused", seenInContext)
	}
	if res.Header().Get(requestIDHeader) != "member-trace-42" {
		t.Fatalf("response request id = %q, want inbound id echoed", res.Header().Get(requestIDHeader))
	}
}

func TestRequestIDMiddlewareGeneratesID(t *testing.T) {
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected a generated request id on the response")
	}
}

func TestClaimIDFromPath(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/v1/claims/CLM_AB12CD34", "CLM_AB12CD34"},
		{"/v1/claims/CLM_AB12CD34/process", "CLM_AB12CD34"},
		{"/v1/claims", ""},
		{"/v1/claims/", ""},
		{"/v1/claims/CLM_AB12CD34/documents/1", ""},
		{"/v1/stats", ""},
	}
	for _, tc := range cases {
		if got := claimIDFromPath(tc.path); got != tc.want {
			t.Fatalf("claimIDFromPath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
