package main

import (
	"log"
	"os"

	"go.uber.org/zap"
)

func main() {
	if len(os.Args) > 5 {
		os.Exit(5)
	}
	logger := zap.NewNop()
	defer logger.Sync()

	go func() {
		os.Exit(4)
	}()
	if len(os.Args) > 3 {
		os.Exit(2) // want "os.Exit after defer skips deferred calls"
	}
	if len(os.Args) > 2 {
		log.Fatalf("bad args %d", len(os.Args)) // want "log.Fatalf after defer skips deferred calls"
	}
	logger.Info("started")
	logger.Fatal("stopped") // want "zap.Fatal after defer skips deferred calls"
}
