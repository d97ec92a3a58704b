// Package remote talks to the hosted ledger service over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dompet/internal/core"
	"dompet/internal/gateway"
	"dompet/internal/log"
)

var _ gateway.Gateway = (*Client)(nil)

const maxBodyBytes = 10 << 20

// Config holds the connection settings of a Client.
type Config struct {
	BaseURL  string
	InitData string
	Timeout  time.Duration
	// HTTPClient overrides the pooled default client. Its Jar is replaced
	// when nil.
	HTTPClient *http.Client
	Logger     *log.Logger
}

type Client struct {
	base     *url.URL
	http     *http.Client
	initData string
	logger   *log.Logger
}

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid ledger base url %q", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = newHTTPClientWithPooling(cfg.Timeout)
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		hc.Jar = jar
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{base: base, http: hc, initData: cfg.InitData, logger: logger.WithComponent(log.ComponentGateway)}, nil
}

// Connect logs in with the configured launch data, if any.
func (c *Client) Connect(ctx context.Context) error {
	if c.initData == "" {
		return nil
	}
	return c.Login(ctx, c.initData)
}

func (c *Client) Login(ctx context.Context, initData string) error {
	var env envelope
	if err := c.doJSON(ctx, "login", http.MethodPost, "/api/login", map[string]string{"initData": initData}, &env); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "Ledger session established", "host", c.base.Host)
	return nil
}

func (c *Client) FetchSnapshot(ctx context.Context) (core.Snapshot, []core.Transaction, error) {
	var w snapshotWire
	if err := c.doJSON(ctx, "get snapshot", http.MethodGet, "/api/get_data", nil, &w); err != nil {
		return core.Snapshot{}, nil, err
	}
	snap, recents := w.toCore()
	return snap, recents, nil
}

func (c *Client) ListGoals(ctx context.Context) ([]core.Goal, error) {
	var w goalsWire
	if err := c.doJSON(ctx, "list goals", http.MethodGet, "/api/goals", nil, &w); err != nil {
		return nil, err
	}
	goals := make([]core.Goal, 0, len(w.Data))
	for _, g := range w.Data {
		goals = append(goals, g.toCore())
	}
	return goals, nil
}

func (c *Client) CreateGoal(ctx context.Context, g core.GoalDraft) error {
	body := goalBody{Title: g.Title, Target: g.Target, Deadline: g.Deadline, Priority: string(g.Priority)}
	return c.doJSON(ctx, "create goal", http.MethodPost, "/api/goals", body, &envelope{})
}

func (c *Client) EditGoal(ctx context.Context, g core.Goal) error {
	body := goalBody{ID: g.ID, Title: g.Title, Target: g.Target, Deadline: g.Deadline, Priority: string(g.Priority)}
	return c.doJSON(ctx, "edit goal", http.MethodPost, "/api/edit_goal", body, &envelope{})
}

func (c *Client) DeleteGoal(ctx context.Context, id int64) error {
	path := "/api/goals?id=" + strconv.FormatInt(id, 10)
	return c.doJSON(ctx, "delete goal", http.MethodDelete, path, nil, &envelope{})
}

func (c *Client) DepositToGoal(ctx context.Context, d core.Deposit) error {
	form := url.Values{
		"goal_id":       {strconv.FormatInt(d.GoalID, 10)},
		"wallet_source": {string(d.Wallet)},
		"amount":        {strconv.FormatInt(d.Amount, 10)},
	}
	return c.doForm(ctx, "goal deposit", "/api/goal_deposit", form, &envelope{})
}

func (c *Client) OptimizeGoals(ctx context.Context) (core.Advice, error) {
	var w adviceWire
	if err := c.doJSON(ctx, "optimize goals", http.MethodGet, "/api/optimize_goals", nil, &w); err != nil {
		return core.Advice{}, err
	}
	return w.toCore(), nil
}

// AddTransaction posts a multipart form, the only encoding the service
// accepts for media uploads.
func (c *Client) AddTransaction(ctx context.Context, e core.Entry) (int, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{"mode": string(e.Mode)}
	switch e.Mode {
	case core.ModeManual:
		fields["amount"] = strconv.FormatInt(e.Amount, 10)
		fields["category"] = e.Category
		fields["wallet"] = string(e.Wallet)
		fields["description"] = e.Description
		fields["type"] = string(e.Type)
	case core.ModeText:
		fields["text_input"] = e.Text
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return 0, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if e.Media != nil && (e.Mode == core.ModeVoice || e.Mode == core.ModeImage) {
		name := e.Media.Name
		if name == "" {
			name = string(e.Mode)
		}
		fw, err := mw.CreateFormFile("media_file", name)
		if err != nil {
			return 0, fmt.Errorf("media part: %w", err)
		}
		if _, err := fw.Write(e.Media.Data); err != nil {
			return 0, fmt.Errorf("media part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return 0, fmt.Errorf("multipart close: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/add_transaction", &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var out addWire
	if err := c.send(req, "add transaction", &out); err != nil {
		return 0, err
	}
	if out.Count == 0 {
		out.Count = 1
	}
	return out.Count, nil
}

func (c *Client) EditTransaction(ctx context.Context, e core.TransactionEdit) error {
	form := url.Values{
		"id":          {strconv.FormatInt(e.ID, 10)},
		"amount":      {strconv.FormatInt(e.Amount, 10)},
		"category":    {e.Category},
		"wallet":      {string(e.Wallet)},
		"description": {e.Description},
	}
	return c.doForm(ctx, "edit transaction", "/api/edit_transaction", form, &envelope{})
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	form := url.Values{"id": {strconv.FormatInt(id, 10)}}
	return c.doForm(ctx, "delete transaction", "/api/delete_transaction", form, &envelope{})
}

func (c *Client) TransferBalance(ctx context.Context, t core.Transfer) error {
	form := url.Values{
		"source": {string(t.Source)},
		"target": {string(t.Target)},
		"amount": {strconv.FormatInt(t.Amount, 10)},
	}
	return c.doForm(ctx, "transfer", "/api/transfer_balance", form, &envelope{})
}

func (c *Client) SetBudget(ctx context.Context, amount int64) error {
	form := url.Values{"amount": {strconv.FormatInt(amount, 10)}}
	return c.doForm(ctx, "set budget", "/api/set_budget", form, &envelope{})
}

func (c *Client) ResetData(ctx context.Context) error {
	return c.doForm(ctx, "reset data", "/api/reset_data", url.Values{}, &envelope{})
}

func (c *Client) SendFeedback(ctx context.Context, message string) error {
	return c.doForm(ctx, "feedback", "/api/send_feedback", url.Values{"message": {message}}, &envelope{})
}

func (c *Client) ExportLedger(ctx context.Context) ([]byte, error) {
	return c.download(ctx, "export ledger", "/api/download_excel")
}

func (c *Client) ExportFeedback(ctx context.Context) ([]byte, error) {
	return c.download(ctx, "export feedback", "/api/download_feedback")
}

func (c *Client) download(ctx context.Context, op, path string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	status, ctype, body, err := c.roundTrip(req, op)
	if err != nil {
		return nil, err
	}
	if err := classify(op, status, body); err != nil {
		return nil, err
	}
	// A JSON body on success means the service reported an error inline.
	if strings.HasPrefix(ctype, "application/json") {
		var env envelope
		if json.Unmarshal(body, &env) == nil && !env.ok() {
			return nil, core.BusinessError(op, env.Message)
		}
	}
	return body, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, op, out)
}

func (c *Client) doForm(ctx context.Context, op, path string, form url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodPost, path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.send(req, op, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("bad path %q: %w", path, err)
	}
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + ref.Path
	u.RawQuery = ref.RawQuery
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// send performs req and decodes a JSON envelope into out. out must embed
// envelope.
func (c *Client) send(req *http.Request, op string, out any) error {
	status, _, body, err := c.roundTrip(req, op)
	if err != nil {
		return err
	}
	if err := classify(op, status, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return core.ConnectivityError(op, fmt.Errorf("decode response: %w", err))
	}
	if env, ok := envelopeOf(out); ok && !env.ok() {
		return core.BusinessError(op, env.Message)
	}
	return nil
}

func (c *Client) roundTrip(req *http.Request, op string) (int, string, []byte, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(req.Context(), "Ledger request failed", log.FieldOperation, op, log.FieldError, err)
		return 0, "", nil, core.ConnectivityError(op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, "", nil, core.ConnectivityError(op, fmt.Errorf("read body: %w", err))
	}
	c.logger.DebugContext(req.Context(), "Ledger request completed",
		log.FieldOperation, op,
		log.FieldMethod, req.Method,
		log.FieldPath, req.URL.Path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())
	return resp.StatusCode, resp.Header.Get("Content-Type"), body, nil
}

// classify maps non-2xx responses to the error taxonomy. 4xx responses that
// carry a JSON message are business rejections; everything else is a
// connectivity failure.
func classify(op string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	var env envelope
	_ = json.Unmarshal(body, &env)
	switch {
	case status == http.StatusForbidden && env.Message == "LIMIT_REACHED":
		return core.UpgradeRequired(core.FeatureExport)
	case status == http.StatusUnauthorized:
		return core.ConnectivityError(op, fmt.Errorf("session expired (status %d)", status))
	case status >= 400 && status < 500 && env.Message != "":
		return core.BusinessError(op, env.Message)
	}
	return core.ConnectivityError(op, fmt.Errorf("unexpected status %d", status))
}

func envelopeOf(v any) (envelope, bool) {
	switch w := v.(type) {
	case *envelope:
		return *w, true
	case *snapshotWire:
		return w.envelope, true
	case *goalsWire:
		return w.envelope, true
	case *adviceWire:
		return w.envelope, true
	case *addWire:
		return w.envelope, true
	}
	return envelope{}, false
}

// newHTTPClientWithPooling creates a client with explicit connection limits
// and timeouts.
func newHTTPClientWithPooling(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,

		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
