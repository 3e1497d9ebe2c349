package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"forward-visa/internal/forward"
	"forward-visa/internal/logging"
)

// forwardmock stands in for the Forward API fronting an httpbun-style echo
// destination: the destination body comes back as the "data" string.
func main() {
	addr := flag.String("addr", ":8081", "Listen address")
	key := flag.String("key", "", "Required Authorization value (any non-empty value when unset)")
	flag.Parse()

	log := logging.New(logging.Options{})
	defer func() { _ = log.Sync() }()

	mux := http.NewServeMux()
	mux.Handle("/forward", newHandler(*key, log))

	srv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Info("forwardmock listening", zap.String("addr", *addr))
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal("listen", zap.Error(err))
	}
}

func newHandler(key string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if auth == "" || (key != "" && auth != key) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error_type": "unauthorized"})
			return
		}

		var env forward.Request
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error_type":  "request_invalid",
				"error_codes": []string{"body_invalid"},
			})
			return
		}
		dr := env.DestinationRequest
		if dr.URL == "" || env.Source.ID == "" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error_type":  "request_invalid",
				"error_codes": []string{"destination_request_invalid"},
			})
			return
		}

		echo, err := forward.Marshal(echoBody(dr))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		id := "fwd_" + uuid.NewString()
		log.Info("forwarded",
			zap.String("request_id", id),
			zap.String("method", dr.Method),
			zap.String("destination", dr.URL),
			zap.Int("variables", len(dr.Variables)),
		)
		writeJSON(w, http.StatusOK, forward.Response{
			RequestID: id,
			DestinationResponse: &forward.DestinationResponse{
				Status:  http.StatusOK,
				Headers: map[string][]string{"Content-Type": {"application/json"}},
				Body:    string(echo),
			},
		})
	}
}

// echoBody mirrors what httpbun.com/anything returns for the destination call.
func echoBody(dr forward.DestinationRequest) map[string]any {
	args := map[string]string{}
	q := url.Values{}
	for _, p := range dr.Query {
		args[p.Name] = p.Value
		q.Set(p.Name, p.Value)
	}
	full := dr.URL
	if len(q) > 0 {
		full += "?" + q.Encode()
	}
	return map[string]any{
		"method":  dr.Method,
		"url":     full,
		"args":    args,
		"headers": dr.Headers.Raw,
		"data":    dr.Body,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
