package fmailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
)

const (
	// DefaultServerURL is the production Fmailer API endpoint.
	DefaultServerURL = "https://api.fmailer.ru"

	// DefaultMaxWorkers is the worker count used when Config.MaxWorkers is zero.
	DefaultMaxWorkers = 5

	ValidMaxWorkerCount = 100
	ValidMinWorkerCount = 1

	ValidMinUsernameLength = 1
	ValidMaxUsernameLength = 100
	ValidMinPasswordLength = 3
	ValidMaxPasswordLength = 100
)

type Config struct {
	// Username is the Fmailer account username (1-100 chars). *Required*.
	Username string

	// Password is the Fmailer account password (3-100 chars). *Required*.
	// It should be kept secret and not logged or exposed.
	Password string

	// ServerURL overrides the API endpoint. Defaults to DefaultServerURL.
	ServerURL string

	// FailSilently converts send failures (transport and API errors alike)
	// into a successful-looking result instead of returning an error.
	FailSilently bool

	// Debug enables per-request and per-response log lines. Observational
	// only; it does not change send behavior.
	Debug bool

	// MaxWorkers caps the async worker pool (1-100). Zero selects
	// DefaultMaxWorkers. Fixed for the lifetime of the client.
	MaxWorkers int

	// HTTPClient overrides the HTTP client used for sends. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client
}

// Client talks to the Fmailer transactional-email API. It exposes synchronous
// sends and, through a lazily created worker pool, asynchronous ones.
// A Client is safe for concurrent use.
type Client struct {
	serverURL    string
	auth         authPayload
	failSilently bool
	debug        bool
	maxWorkers   int
	httpClient   *http.Client

	// poolMu guards lazy creation and teardown of pool
	poolMu sync.Mutex
	pool   *workerPool
}

func NewClient(conf Config) (*Client, error) {
	if len(conf.Username) < ValidMinUsernameLength || len(conf.Username) > ValidMaxUsernameLength {
		return nil, &ClientError{
			Message: fmt.Sprintf("Username must be between %d and %d characters", ValidMinUsernameLength, ValidMaxUsernameLength),
		}
	}

	if len(conf.Password) < ValidMinPasswordLength || len(conf.Password) > ValidMaxPasswordLength {
		return nil, &ClientError{
			Message: fmt.Sprintf("Password must be between %d and %d characters", ValidMinPasswordLength, ValidMaxPasswordLength),
		}
	}

	maxWorkers := conf.MaxWorkers
	if maxWorkers == 0 {
		maxWorkers = DefaultMaxWorkers
	}
	if maxWorkers < ValidMinWorkerCount || maxWorkers > ValidMaxWorkerCount {
		return nil, &ClientError{
			Message: fmt.Sprintf("MaxWorkers must be between %d and %d", ValidMinWorkerCount, ValidMaxWorkerCount),
		}
	}

	serverURL := conf.ServerURL
	if serverURL == "" {
		serverURL = DefaultServerURL
	}

	httpClient := conf.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		serverURL:    serverURL,
		auth:         authPayload{Username: conf.Username, Password: conf.Password},
		failSilently: conf.FailSilently,
		debug:        conf.Debug,
		maxWorkers:   maxWorkers,
		httpClient:   httpClient,
	}, nil
}

func (c *Client) apiURL() string {
	return c.serverURL + "/external/"
}

type authPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type simplePayload struct {
	Auth           authPayload `json:"auth"`
	Recipient      string      `json:"recipient"`
	Sender         string      `json:"sender"`
	Subject        string      `json:"subject"`
	Body           string      `json:"body"`
	IdempotencyKey string      `json:"idempotency_key,omitempty"`
}

type templatedPayload struct {
	Auth           authPayload    `json:"auth"`
	Template       string         `json:"tpl"`
	Recipient      string         `json:"recipient"`
	Sender         string         `json:"sender"`
	Lang           string         `json:"lang,omitempty"`
	Params         map[string]any `json:"params,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// SendSimple delivers one plain email synchronously. It performs exactly one
// HTTP call and returns true on success. A non-success HTTP status yields an
// *APIError carrying the response body; a failed request yields a
// *TransportError. With FailSilently set, both failure kinds are swallowed and
// the call reports (true, nil).
func (c *Client) SendSimple(ctx context.Context, mail SimpleMail) (bool, error) {
	payload := simplePayload{
		Auth:           c.auth,
		Recipient:      mail.recipient,
		Sender:         mail.sender,
		Subject:        mail.subject,
		Body:           mail.body,
		IdempotencyKey: mail.idempotencyKey,
	}
	return c.postSend(ctx, c.apiURL()+"send_email_simple/", payload)
}

// SendTemplated delivers one templated email synchronously. Same contract as
// SendSimple; the backend renders the template with the given language and
// parameters.
func (c *Client) SendTemplated(ctx context.Context, mail TemplatedMail) (bool, error) {
	payload := templatedPayload{
		Auth:           c.auth,
		Template:       mail.template,
		Recipient:      mail.recipient,
		Sender:         mail.sender,
		Lang:           mail.lang,
		Params:         mail.params,
		IdempotencyKey: mail.idempotencyKey,
	}
	return c.postSend(ctx, c.apiURL()+"send_email_tpl/", payload)
}

// postSend performs the single send attempt and classifies the outcome.
func (c *Client) postSend(ctx context.Context, path string, payload any) (bool, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		// Payloads are plain structs and maps; marshalling only fails on
		// caller-supplied params that are not JSON-encodable.
		return false, &ClientError{Message: fmt.Sprintf("failed to encode payload: %v", err)}
	}

	if c.debug {
		slog.Debug("Sending email", "path", path, "bytes", len(body))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return false, &ClientError{Message: fmt.Sprintf("failed to build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		if c.failSilently {
			slog.Warn("Email send failed, suppressed by FailSilently", "path", path, "error", err)
			return true, nil
		}
		return false, &TransportError{Err: err}
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		if c.failSilently {
			slog.Warn("Email send failed, suppressed by FailSilently", "path", path, "error", err)
			return true, nil
		}
		return false, &TransportError{Err: err}
	}

	if c.debug {
		slog.Debug("Email send result", "path", path, "status", res.StatusCode, "bodyLen", len(resBody))
	}

	// Any status below 400 counts as success, mirroring requests' res.ok.
	if res.StatusCode >= http.StatusBadRequest {
		if c.failSilently {
			slog.Warn("Email rejected by API, suppressed by FailSilently", "path", path, "status", res.StatusCode)
			return true, nil
		}
		return false, &APIError{StatusCode: res.StatusCode, Body: string(resBody)}
	}

	return true, nil
}
