// Dummy AI service for local gateway testing. Mimics the chat
// microservice's /health and /api/ask endpoints.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"time"
)

func main() {
	port := flag.String("port", "9000", "port to listen on")
	flag.Parse()

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/api/ask", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Question string `json:"question"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"answer":    "dummy answer to: " + req.Question,
			"timestamp": time.Now().Unix(),
		})
	})

	log.Printf("Dummy AI service listening on :%s", *port)
	log.Fatal(http.ListenAndServe(":"+*port, mux))
}
