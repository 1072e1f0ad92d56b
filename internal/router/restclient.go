package router

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tarumnet/mikrobill/internal/config"
	obsmetrics "github.com/tarumnet/mikrobill/internal/observability/metrics"
	"go.uber.org/zap"
)

const leasePath = "/rest/ip/dhcp-server/lease"

// RESTClient implements Controller against the RouterOS v7 REST API.
type RESTClient struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	log      *zap.Logger
	metrics  *obsmetrics.Metrics
}

func NewRESTClient(cfg config.RouterConfig, log *zap.Logger, metrics *obsmetrics.Metrics) *RESTClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	transport := http.DefaultTransport
	if cfg.Insecure {
		// Routers ship with self-signed certs; operators opt in explicitly.
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &RESTClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		http:     &http.Client{Timeout: timeout, Transport: transport},
		log:      log.Named("router.rest"),
		metrics:  metrics,
	}
}

type leasePayload struct {
	Ref        string `json:".id"`
	Address    string `json:"address"`
	MACAddress string `json:"mac-address"`
	HostName   string `json:"host-name"`
	Comment    string `json:"comment"`
	Disabled   string `json:"disabled"`
}

func (c *RESTClient) ListLeases(ctx context.Context) ([]Lease, error) {
	var payload []leasePayload
	if err := c.do(ctx, http.MethodGet, leasePath, nil, &payload); err != nil {
		c.metrics.RecordRouterCall(ctx, "list_leases", "error")
		return nil, err
	}
	c.metrics.RecordRouterCall(ctx, "list_leases", "ok")

	leases := make([]Lease, 0, len(payload))
	for _, p := range payload {
		leases = append(leases, Lease{
			Ref:        p.Ref,
			Address:    p.Address,
			MACAddress: p.MACAddress,
			HostName:   p.HostName,
			Comment:    p.Comment,
			Disabled:   strings.EqualFold(p.Disabled, "true"),
		})
	}
	return leases, nil
}

func (c *RESTClient) UpdateLease(ctx context.Context, ref string, params UpdateLeaseParams) error {
	body := map[string]string{}
	if params.Comment != nil {
		body["comment"] = *params.Comment
	}
	if params.RateLimit != nil {
		body["rate-limit"] = *params.RateLimit
	}
	if params.ExpiresAt != nil {
		body["expires-at"] = params.ExpiresAt.UTC().Format(time.RFC3339)
	}

	if err := c.do(ctx, http.MethodPatch, leasePath+"/"+url.PathEscape(ref), body, nil); err != nil {
		c.metrics.RecordRouterCall(ctx, "update_lease", "error")
		return err
	}
	c.metrics.RecordRouterCall(ctx, "update_lease", "ok")
	return nil
}

func (c *RESTClient) DeleteLease(ctx context.Context, ref string) error {
	if err := c.do(ctx, http.MethodDelete, leasePath+"/"+url.PathEscape(ref), nil, nil); err != nil {
		c.metrics.RecordRouterCall(ctx, "delete_lease", "error")
		return err
	}
	c.metrics.RecordRouterCall(ctx, "delete_lease", "ok")
	return nil
}

func (c *RESTClient) do(ctx context.Context, method, path string, body any, out any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.username, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return &Error{
			Op:      method + " " + path,
			Status:  resp.StatusCode,
			Message: readErrorMessage(resp.Body, resp.StatusCode),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode router response: %w", err)
		}
	}
	return nil
}

// readErrorMessage extracts RouterOS's own error text so it reaches the
// operator unchanged.
func readErrorMessage(body io.Reader, status int) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return fmt.Sprintf("router returned status %d", status)
	}

	var payload struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
