/*
Package fmailer is a Go client for the Fmailer transactional-email API.

It sends plain or backend-templated emails with a single HTTP call per send,
and offers asynchronous delivery through a lazily created pool of worker
goroutines so callers never block on network I/O.

Key Features:

  - Synchronous sends (`SendSimple`, `SendTemplated`) with typed errors for
    API rejections and transport failures.
  - Asynchronous sends (`SendSimpleAsync`, `SendTemplatedAsync`) returning a
    `TaskHandle` that can be polled (`IsDone`) or awaited (`Result`), plus an
    optional completion callback.
  - Lazy fixed-size worker pool, created on first async send and sized at
    construction time.
  - Deterministic shutdown: `Shutdown(true)` drains, `Shutdown(false)` and
    `Close` release the pool without waiting.
  - Validated request construction via `SimpleMailBuilder` and
    `TemplatedMailBuilder`, and opaque idempotency keys for backend-side
    deduplication.
  - `FailSilently` mode that converts send failures into truthy results.

Usage typically involves:

 1. Configuring a `Client` with credentials via `NewClient`.
 2. Building mail values with `NewSimpleMailBuilder` or
    `NewTemplatedMailBuilder`.
 3. Sending synchronously, or submitting async sends and observing their
    handles or callbacks.
 4. Calling `Shutdown(true)` (or `Close`) before the program exits.

See `example/main.go` for a complete walkthrough.
*/
package fmailer
