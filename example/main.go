// filepath: example/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	fmailer "github.com/fmailer/fmailer-go" // Import the library
)

func main() {
	// --- Configuration ---
	// Load credentials from a local .env file if present; real deployments
	// set the variables in the environment directly.
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using process environment")
	}

	client, err := fmailer.NewClient(fmailer.Config{
		Username:   os.Getenv("FMAILER_USERNAME"),
		Password:   os.Getenv("FMAILER_PASSWORD"),
		MaxWorkers: 5,
		Debug:      true,
	})
	if err != nil {
		slog.Error("Failed to configure Fmailer client", "error", err)
		os.Exit(1)
	}
	// Safety net against leaked workers; the explicit Shutdown below is the
	// real lifecycle call.
	defer client.Close()

	// Create a context that handles OS interrupt signals for graceful shutdown
	appCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Synchronous send ---
	simple, err := fmailer.NewSimpleMailBuilder().
		WithRecipient("recipient@example.com").
		WithSender("sender@example.com").
		WithSubject("Hello from the Fmailer Go SDK").
		WithBody("<p>This one blocks until the API answers.</p>").
		WithIdempotencyKey(fmailer.NewIdempotencyKey()).
		Build()
	if err != nil {
		slog.Error("Failed to build mail", "error", err)
		os.Exit(1)
	}

	if _, err := client.SendSimple(appCtx, simple); err != nil {
		slog.Error("Synchronous send failed", "error", err)
	} else {
		slog.Info("Synchronous send succeeded")
	}

	// --- Asynchronous send with a callback ---
	templated, err := fmailer.NewTemplatedMailBuilder().
		WithTemplate("welcome").
		WithRecipient("recipient@example.com").
		WithSender("sender@example.com").
		WithLang("en").
		WithParam("name", "Valued Recipient").
		WithIdempotencyKey(fmailer.NewIdempotencyKey()).
		Build()
	if err != nil {
		slog.Error("Failed to build templated mail", "error", err)
		os.Exit(1)
	}

	handle := client.SendTemplatedAsync(appCtx, templated, func(success bool, err error) {
		if err != nil {
			slog.Error("Async send failed", "error", err)
			return
		}
		slog.Info("Async send succeeded", "success", success)
	})

	// --- Fire-and-forget send ---
	// No callback, handle ignored: the pool still delivers it.
	client.SendSimpleAsync(appCtx, simple, nil)

	// Independently of the callback, wait on the handle with a bounded wait.
	if ok, err := handle.ResultWithin(30 * time.Second); err != nil {
		slog.Error("Waiting for async send failed", "error", err)
	} else {
		slog.Info("Async handle resolved", "success", ok)
	}

	slog.Info("Press Ctrl+C to stop, or wait for pending sends to drain.")
	select {
	case <-appCtx.Done():
		slog.Warn("Shutdown signal received")
	case <-time.After(2 * time.Second):
	}

	// --- Stop the Service Gracefully ---
	// Block until every queued and in-flight send has finished.
	client.Shutdown(true)
	slog.Info("All sends drained, worker pool released.")
}
