// Package main is the session-service entry point (HTTP + WebSocket).
package main

import (
	"log"

	"github.com/ImArvindRaj/virtual-event-platform/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
