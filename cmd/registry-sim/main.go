// Command registry-sim is a local stand-in for an external registry. It
// answers the verify_document operation so the service can run end to end
// without real registry access.
//
// Behavior flags simulate upstream conditions:
//
//	-verified=false   answer every check with a denial
//	-fail-rate=0.3    fail ~30% of calls with a 503
//	-latency=500ms    delay every response
package main

import (
	"encoding/json"
	"flag"
	"math/rand"
	"net/http"
	"time"

	"veridoc/internal/platform/logger"
	"veridoc/internal/registry"
)

func main() {
	addr := flag.String("addr", ":9091", "listen address")
	name := flag.String("name", "population", "registry name reported as source")
	verified := flag.Bool("verified", true, "answer checks as verified")
	failRate := flag.Float64("fail-rate", 0, "fraction of calls answered with 503")
	latency := flag.Duration("latency", 0, "artificial delay per response")
	flag.Parse()

	log := logger.New()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /"+string(registry.OpVerifyDocument), func(w http.ResponseWriter, r *http.Request) {
		if *latency > 0 {
			time.Sleep(*latency)
		}
		if *failRate > 0 && rand.Float64() < *failRate {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		var req registry.CheckRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		log.Info("check received",
			"reference", req.ReferenceNumber,
			"document_type", req.DocumentType,
			"verified", *verified,
		)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(registry.Result{
			Verified:  *verified,
			Source:    *name + "-sim",
			CheckedAt: time.Now().UTC(),
		})
	})

	log.Info("registry simulator listening", "addr", *addr, "registry", *name)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Error("server stopped", "error", err)
	}
}
