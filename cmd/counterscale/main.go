// main.go - HTTP server application
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvinegar/counterscale-sub000/internal"
)

const defaultShutdownTimeout = 30 * time.Second

func main() {
	app := internal.NewApp()

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server exited with error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)

		ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()

		if err := app.Shutdown(ctx); err != nil {
			log.Printf("Error during shutdown: %v", err)
			os.Exit(1)
		}
		log.Println("Shutdown complete")
	}
}
