package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sheikh-saqib/transactions-service/internal/correlation"
)

// Remote calls the remote risk service:
//
//	GET {baseURL}/allow?currency=PEN&type=DEBIT&amount=100  ->  true | false
//
// Every transport error, non-2xx status or body that is not a JSON boolean is
// returned as an error; a false answer is not an error.
type Remote struct {
	baseURL string
	client  *http.Client
}

// NewRemote uses client, or http.DefaultClient when it is nil. Per-attempt
// deadlines come from the context, not from the client.
func NewRemote(baseURL string, client *http.Client) *Remote {
	if client == nil {
		client = http.DefaultClient
	}
	return &Remote{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Call has the signature of the innermost layer of the policy chain
func (r *Remote) Call(ctx context.Context, req Request) (bool, error) {
	q := url.Values{}
	q.Set("currency", req.Currency)
	q.Set("type", string(req.Type))
	q.Set("amount", req.Amount.String())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/allow?"+q.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("build risk request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if id := correlation.FromContext(ctx); id != "" {
		httpReq.Header.Set(correlation.Header, id)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("call risk service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return false, fmt.Errorf("risk service returned status %d", resp.StatusCode)
	}

	var allowed bool
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&allowed); err != nil {
		return false, fmt.Errorf("decode risk response: %w", err)
	}
	return allowed, nil
}
