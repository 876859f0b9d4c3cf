package sui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"deepbook_go/internal/domain"
	"deepbook_go/internal/infra"
)

const faucetMaxRetries = 5

// FaucetClient requests gas from a localnet or devnet faucet.
type FaucetClient struct {
	url        string
	requests   int
	httpClient *http.Client
	backoff    func(retry int) time.Duration
	logger     *slog.Logger
}

// NewFaucetClient builds a faucet client; requests is how many drips Fund asks for.
func NewFaucetClient(url string, requests int, timeout time.Duration) *FaucetClient {
	if requests <= 0 {
		requests = 1
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &FaucetClient{
		url:        url,
		requests:   requests,
		httpClient: &http.Client{Timeout: timeout},
		backoff:    infra.CalculateBackoff,
		logger:     slog.Default().With("module", "faucet"),
	}
}

type faucetRequest struct {
	FixedAmountRequest struct {
		Recipient string `json:"recipient"`
	} `json:"FixedAmountRequest"`
}

// Fund requests gas for address, retrying while the faucet rate limits.
func (f *FaucetClient) Fund(ctx context.Context, address string) error {
	for i := 0; i < f.requests; i++ {
		if err := f.drip(ctx, address); err != nil {
			return err
		}
	}
	f.logger.Info("Faucet funded address",
		slog.String("address", address),
		slog.Int("requests", f.requests))
	return nil
}

func (f *FaucetClient) drip(ctx context.Context, address string) error {
	var req faucetRequest
	req.FixedAmountRequest.Recipient = address
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	for retry := 0; ; retry++ {
		err := f.post(ctx, body)
		if err == nil {
			return nil
		}
		if !domain.IsRetriable(err) || retry >= faucetMaxRetries {
			return err
		}

		wait := f.backoff(retry)
		f.logger.Warn("Faucet request failed, retrying",
			slog.Int("retry", retry+1),
			slog.Duration("wait", wait),
			slog.Any("error", err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (f *FaucetClient) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return domain.NewNetworkError("faucet", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return domain.NewNetworkError("faucet", fmt.Errorf("status=%d body=%s", resp.StatusCode, truncate(raw, 256)))
	case resp.StatusCode >= 300:
		return domain.NewFatalNetworkError("faucet", fmt.Errorf("status=%d body=%s", resp.StatusCode, truncate(raw, 256)))
	}

	var out struct {
		Error *string `json:"error"`
	}
	if json.Unmarshal(raw, &out) == nil && out.Error != nil && *out.Error != "" {
		return domain.NewFatalNetworkError("faucet", fmt.Errorf("%s", *out.Error))
	}
	return nil
}
