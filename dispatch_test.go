package fmailer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// currentPool reads the client's pool reference under its lock.
func currentPool(c *Client) *workerPool {
	c.poolMu.Lock()
	defer c.poolMu.Unlock()
	return c.pool
}

func TestLazyPoolCreation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, false)

	// No pool exists until the first async submission.
	assert.Nil(t, currentPool(client))

	handle := client.SendSimpleAsync(context.Background(), createTestSimpleMail(t), nil)
	assert.NotNil(t, currentPool(client))

	ok, err := handle.Result(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	client.Shutdown(true)
	assert.Nil(t, currentPool(client))
}

func TestConcurrentFirstUse(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, false)

	const submitters = 20
	handles := make([]*TaskHandle, submitters)

	var wg sync.WaitGroup
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i] = client.SendSimpleAsync(context.Background(), createTestSimpleMail(t), nil)
		}(i)
	}
	wg.Wait()

	for _, handle := range handles {
		ok, err := handle.Result(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, int32(submitters), calls.Load())

	client.Shutdown(true)
}

func TestAsyncSend_CallbackAndHandle(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, false)
	defer client.Shutdown(true)

	var callbackRan atomic.Bool
	var gotSuccess bool
	var gotErr error
	handle := client.SendSimpleAsync(context.Background(), createTestSimpleMail(t), func(success bool, err error) {
		gotSuccess = success
		gotErr = err
		// Give a blocking waiter a chance to misbehave if completion were
		// visible before the callback returned.
		time.Sleep(20 * time.Millisecond)
		callbackRan.Store(true)
	})

	ok, err := handle.Result(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	// The callback finished before the waiter observed completion.
	assert.True(t, callbackRan.Load())
	assert.True(t, gotSuccess)
	assert.NoError(t, gotErr)
}

func TestAsyncSend_Failure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "boom")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, false)
	defer client.Shutdown(true)

	type callbackResult struct {
		success bool
		err     error
	}
	callbackCh := make(chan callbackResult, 1)

	handle := client.SendTemplatedAsync(context.Background(), createTestTemplatedMail(t), func(success bool, err error) {
		callbackCh <- callbackResult{success: success, err: err}
	})

	ok, err := handle.Result(context.Background())
	assert.False(t, ok)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "boom", apiErr.Body)

	// The callback observed the same failure the waiter did.
	got := <-callbackCh
	assert.False(t, got.success)
	require.ErrorAs(t, got.err, &apiErr)
	assert.Equal(t, "boom", apiErr.Body)
}

func TestAsyncSend_FailSilently(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // transport failure for every send

	client := newTestClient(t, server.URL, true)
	defer client.Shutdown(true)

	type callbackResult struct {
		success bool
		err     error
	}
	callbackCh := make(chan callbackResult, 1)

	handle := client.SendSimpleAsync(context.Background(), createTestSimpleMail(t), func(success bool, err error) {
		callbackCh <- callbackResult{success: success, err: err}
	})

	ok, err := handle.Result(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	got := <-callbackCh
	assert.True(t, got.success)
	assert.NoError(t, got.err)
}

func TestAsyncSend_QueueBeyondWorkers(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Username:   "u",
		Password:   "ppp",
		ServerURL:  server.URL,
		MaxWorkers: 3,
	})
	require.NoError(t, err)
	defer client.Shutdown(true)

	const tasks = 5
	handles := make([]*TaskHandle, 0, tasks)
	for i := 0; i < tasks; i++ {
		handles = append(handles, client.SendSimpleAsync(context.Background(), createTestSimpleMail(t), nil))
	}

	for _, handle := range handles {
		ok, err := handle.Result(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, int32(tasks), calls.Load())
}

func TestAsyncSend_SubmissionNeverBlocks(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Username:   "u",
		Password:   "ppp",
		ServerURL:  server.URL,
		MaxWorkers: 1,
	})
	require.NoError(t, err)

	start := time.Now()
	handles := make([]*TaskHandle, 0, 10)
	for i := 0; i < 10; i++ {
		handles = append(handles, client.SendSimpleAsync(context.Background(), createTestSimpleMail(t), nil))
	}
	// With one worker stuck on the first send, nine tasks are queued; the
	// submissions themselves must all have returned without waiting.
	assert.Less(t, time.Since(start), time.Second)

	close(release)
	for _, handle := range handles {
		ok, err := handle.Result(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
	}

	client.Shutdown(true)
}

func TestIsDone_TracksWorkerCompletion(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, false)
	defer client.Shutdown(true)

	handle := client.SendSimpleAsync(context.Background(), createTestSimpleMail(t), nil)
	assert.False(t, handle.IsDone())

	close(release)
	ok, err := handle.Result(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, handle.IsDone())
}

func TestShutdown_WaitDrainsSlowTask(t *testing.T) {
	t.Parallel()

	const delay = 200 * time.Millisecond
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, false)

	handle := client.SendSimpleAsync(context.Background(), createTestSimpleMail(t), nil)

	start := time.Now()
	client.Shutdown(true)
	assert.GreaterOrEqual(t, time.Since(start), delay)
	assert.True(t, handle.IsDone())
}

func TestShutdown_NoWaitReturnsImmediately(t *testing.T) {
	t.Parallel()

	const delay = 300 * time.Millisecond
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, false)

	handle := client.SendSimpleAsync(context.Background(), createTestSimpleMail(t), nil)

	start := time.Now()
	client.Shutdown(false)
	assert.Less(t, time.Since(start), delay)
	assert.Nil(t, currentPool(client))

	// The in-flight send keeps running in the background and its handle
	// still completes.
	ok, err := handle.Result(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, handle.IsDone())
}

func TestShutdown_SubmitRevivesPool(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, false)

	first := client.SendSimpleAsync(context.Background(), createTestSimpleMail(t), nil)
	_, err := first.Result(context.Background())
	require.NoError(t, err)

	client.Shutdown(true)
	assert.Nil(t, currentPool(client))

	// Submission after shutdown lazily creates a fresh pool.
	second := client.SendSimpleAsync(context.Background(), createTestSimpleMail(t), nil)
	assert.NotNil(t, currentPool(client))

	ok, err := second.Result(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(2), calls.Load())

	client.Shutdown(true)
}

func TestShutdown_WithoutPoolIsNoop(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "http://localhost:0", false)
	client.Shutdown(true)
	client.Shutdown(false)
	require.NoError(t, client.Close())
}

func TestClose_IsNonBlocking(t *testing.T) {
	t.Parallel()

	const delay = 300 * time.Millisecond
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, false)

	handle := client.SendSimpleAsync(context.Background(), createTestSimpleMail(t), nil)

	start := time.Now()
	require.NoError(t, client.Close())
	assert.Less(t, time.Since(start), delay)

	ok, err := handle.Result(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}
