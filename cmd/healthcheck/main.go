// Package main implements the container health probe for the chat
// assistant server. The default mode checks liveness; -ready checks
// the readiness endpoint, which also verifies the records store.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

func main() {
	ready := flag.Bool("ready", false, "probe /ready instead of /healthz")
	flag.Parse()

	port := os.Getenv("PORT")
	if port == "" {
		port = "10000"
	}

	path := "/healthz"
	if *ready {
		path = "/ready"
	}

	client := &http.Client{Timeout: 8 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%s%s", port, path))
	if err != nil {
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
