// Package push binds the dispatch gateway to concrete push services.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sandeepkv93/taskngo/internal/dispatch"
)

const (
	DefaultOneSignalURL = "https://onesignal.com"
	oneSignalPriority   = 10
	// Undelivered reminders expire after this.
	oneSignalTTL = 15 * time.Minute
)

var ErrNotConfigured = errors.New("push: onesignal app id and api key are required")

// OneSignal sends reminders through the OneSignal REST API.
type OneSignal struct {
	appID   string
	apiKey  string
	baseURL string
	client  *http.Client
}

type OneSignalOptions struct {
	AppID   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
}

type oneSignalRequest struct {
	AppID            string            `json:"app_id"`
	IncludePlayerIDs []string          `json:"include_player_ids"`
	Headings         map[string]string `json:"headings"`
	Contents         map[string]string `json:"contents"`
	SendAfter        string            `json:"send_after,omitempty"`
	Data             map[string]string `json:"data,omitempty"`
	CollapseID       string            `json:"collapse_id,omitempty"`
	Priority         int               `json:"priority"`
	TTL              int               `json:"ttl"`
}

type oneSignalResponse struct {
	ID     string          `json:"id"`
	Errors json.RawMessage `json:"errors"`
}

func NewOneSignal(opts OneSignalOptions) (*OneSignal, error) {
	if strings.TrimSpace(opts.AppID) == "" || strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultOneSignalURL
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	return &OneSignal{
		appID:   opts.AppID,
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  opts.Client,
	}, nil
}

func (o *OneSignal) Send(ctx context.Context, req dispatch.Request) (dispatch.Receipt, error) {
	if req.Recipient == "" {
		return dispatch.Receipt{}, fmt.Errorf("push: recipient is required")
	}
	payload := oneSignalRequest{
		AppID:            o.appID,
		IncludePlayerIDs: []string{req.Recipient},
		Headings:         map[string]string{"en": req.Title},
		Contents:         map[string]string{"en": req.Body},
		Data:             req.Metadata,
		CollapseID:       req.Metadata[dispatch.MetaCollapseID],
		Priority:         oneSignalPriority,
		TTL:              int(oneSignalTTL / time.Second),
	}
	if !req.SendAt.IsZero() {
		payload.SendAfter = req.SendAt.UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return dispatch.Receipt{}, fmt.Errorf("push: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/v1/notifications", bytes.NewReader(body))
	if err != nil {
		return dispatch.Receipt{}, fmt.Errorf("push: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	httpReq.Header.Set("Authorization", "Basic "+o.apiKey)

	respBody, status, err := o.do(httpReq)
	if err != nil {
		return dispatch.Receipt{}, err
	}
	if status != http.StatusOK {
		return dispatch.Receipt{}, fmt.Errorf("push: onesignal error (%d): %s", status, strings.TrimSpace(string(respBody)))
	}

	var out oneSignalResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return dispatch.Receipt{}, fmt.Errorf("push: decode response: %w", err)
	}
	if out.ID == "" {
		return dispatch.Receipt{}, fmt.Errorf("push: onesignal rejected request: %s", string(out.Errors))
	}
	return dispatch.Receipt{ID: out.ID}, nil
}

// Retract cancels a scheduled notification that has not been delivered.
func (o *OneSignal) Retract(ctx context.Context, rec dispatch.Receipt) error {
	if rec.ID == "" {
		return nil
	}
	endpoint := fmt.Sprintf("%s/api/v1/notifications/%s?app_id=%s",
		o.baseURL, url.PathEscape(rec.ID), url.QueryEscape(o.appID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("push: create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Basic "+o.apiKey)

	respBody, status, err := o.do(httpReq)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("push: onesignal cancel error (%d): %s", status, strings.TrimSpace(string(respBody)))
	}
	return nil
}

func (o *OneSignal) do(req *http.Request) ([]byte, int, error) {
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("push: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("push: read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
