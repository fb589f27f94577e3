package httpx

import "net/http"

var healthBody = []byte(`{"status":"ok"}` + "\n")

// healthHandler answers liveness probes without touching ServiceNow or Redis.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	_, _ = w.Write(healthBody)
}
