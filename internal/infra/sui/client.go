package sui

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"deepbook_go/internal/domain"
	"deepbook_go/internal/infra"
	"deepbook_go/internal/ptb"
)

const (
	suiCoinType = "0x2::sui::SUI"

	// maxGasCoins bounds gas smashing; the protocol allows 256 payment objects.
	maxGasCoins = 256
)

// Client is the Sui JSON-RPC submission adapter for one signing account.
type Client struct {
	rpc           transport
	signer        *Signer
	gasBudget     uint64
	limits        ptb.Limits
	settleTimeout time.Duration
	pollInterval  time.Duration
	metrics       *infra.Metrics
	logger        *slog.Logger
}

// NewClient connects to cfg.Network.RPCURL over HTTP or WebSocket.
func NewClient(ctx context.Context, cfg *infra.Config, signer *Signer, metrics *infra.Metrics) (*Client, error) {
	rpc, err := newTransport(ctx, cfg.Network.RPCURL, cfg.Network.RequestTimeout)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = infra.GlobalMetrics
	}
	return &Client{
		rpc:       rpc,
		signer:    signer,
		gasBudget: cfg.Network.GasBudget,
		limits: ptb.Limits{
			MaxCommands:     cfg.Limits.MaxCommands,
			MaxInputObjects: cfg.Limits.MaxInputObjects,
			MaxGasBudget:    cfg.Limits.MaxGasBudget,
		},
		settleTimeout: cfg.Network.SettleTimeout,
		pollInterval:  cfg.Network.PollInterval,
		metrics:       metrics,
		logger:        slog.Default().With("module", "sui_client"),
	}, nil
}

// Close releases the connection.
func (c *Client) Close() error { return c.rpc.close() }

// Address returns the signer's address.
func (c *Client) Address() string { return c.signer.Address() }

// Submit validates, resolves, signs and executes b, waiting for local execution.
func (c *Client) Submit(ctx context.Context, b *ptb.Batch) (*domain.TxResult, error) {
	if b.GasBudget == 0 {
		b.GasBudget = c.gasBudget
	}
	if err := b.Validate(c.limits); err != nil {
		c.metrics.RecordFailure()
		return nil, &domain.SubmissionError{Batch: b.Label, Err: err}
	}

	start := time.Now()
	txBytes, err := c.prepare(ctx, b)
	if err != nil {
		c.metrics.RecordFailure()
		return nil, &domain.SubmissionError{Batch: b.Label, Err: err}
	}
	digest := TransactionDigest(txBytes)

	var resp txBlockResponse
	err = c.rpc.call(ctx, "sui_executeTransactionBlock", []any{
		base64.StdEncoding.EncodeToString(txBytes),
		[]string{c.signer.SignTransaction(txBytes)},
		map[string]bool{"showEffects": true, "showObjectChanges": true},
		"WaitForLocalExecution",
	}, &resp)
	if err != nil {
		c.metrics.RecordFailure()
		return nil, &domain.SubmissionError{Batch: b.Label, Digest: digest, Err: err}
	}

	res := resp.toResult()
	if res.Digest == "" {
		res.Digest = digest
	}
	if res.Status != domain.TxSuccess {
		c.metrics.RecordFailure()
		c.logger.Warn("Batch failed on chain",
			slog.String("batch", b.Label),
			slog.String("digest", res.Digest),
			slog.String("error", res.Error))
		return res, nil
	}

	created := len(domain.ExtractAll(res.Changes, domain.Created()))
	c.metrics.RecordSubmission(b.Commands(), created, res.Gas.Net(), time.Since(start))
	c.logger.Debug("Batch executed",
		slog.String("batch", b.Label),
		slog.String("digest", res.Digest),
		slog.Int("commands", b.Commands()),
		slog.Uint64("gas", res.Gas.Net()))
	return res, nil
}

// prepare resolves object inputs and gas, then encodes the transaction.
func (c *Client) prepare(ctx context.Context, b *ptb.Batch) ([]byte, error) {
	objects, err := c.resolveObjects(ctx, b.ObjectIDs())
	if err != nil {
		return nil, err
	}

	var price u64
	if err := c.rpc.call(ctx, "suix_getReferenceGasPrice", []any{}, &price); err != nil {
		return nil, err
	}

	payment, err := c.selectGas(ctx, b.GasBudget, objects)
	if err != nil {
		return nil, err
	}

	return b.Encode(c.Address(), objects, ptb.GasData{
		Payment: payment,
		Owner:   c.Address(),
		Price:   uint64(price),
		Budget:  b.GasBudget,
	})
}

func (c *Client) resolveObjects(ctx context.Context, ids []string) (map[string]ptb.ResolvedObject, error) {
	resolved := make(map[string]ptb.ResolvedObject, len(ids))
	if len(ids) == 0 {
		return resolved, nil
	}

	var objs []objectResponse
	if err := c.rpc.call(ctx, "sui_multiGetObjects", []any{ids, map[string]bool{"showOwner": true}}, &objs); err != nil {
		return nil, err
	}
	if len(objs) != len(ids) {
		return nil, fmt.Errorf("sui_multiGetObjects returned %d objects for %d ids", len(objs), len(ids))
	}

	for i, o := range objs {
		if o.Data == nil {
			return nil, fmt.Errorf("object %s unavailable: %s", ids[i], string(o.Error))
		}
		r := ptb.ResolvedObject{
			Ref: ptb.ObjectRef{ObjectID: o.Data.ObjectID, Version: uint64(o.Data.Version), Digest: o.Data.Digest},
		}
		if o.Data.Owner != nil && o.Data.Owner.Shared {
			r.Shared = true
			r.InitialSharedVersion = o.Data.Owner.InitialSharedVersion
		}
		resolved[ids[i]] = r
	}
	return resolved, nil
}

// selectGas picks SUI coins not used as inputs until their balance covers budget.
func (c *Client) selectGas(ctx context.Context, budget uint64, inputs map[string]ptb.ResolvedObject) ([]ptb.ObjectRef, error) {
	var (
		payment []ptb.ObjectRef
		total   uint64
		cursor  *string
	)
	for {
		var page coinPage
		if err := c.rpc.call(ctx, "suix_getCoins", []any{c.Address(), suiCoinType, cursor, 50}, &page); err != nil {
			return nil, err
		}
		for _, coin := range page.Data {
			if _, used := inputs[domain.NormalizeID(coin.CoinObjectID)]; used {
				continue
			}
			payment = append(payment, ptb.ObjectRef{
				ObjectID: coin.CoinObjectID,
				Version:  uint64(coin.Version),
				Digest:   coin.Digest,
			})
			total += uint64(coin.Balance)
			if total >= budget || len(payment) == maxGasCoins {
				return payment, nil
			}
		}
		if !page.HasNextPage || page.NextCursor == nil {
			break
		}
		cursor = page.NextCursor
	}
	if len(payment) == 0 {
		return nil, fmt.Errorf("no SUI coins owned by %s", c.Address())
	}
	return nil, fmt.Errorf("insufficient gas: %d MIST available, budget %d", total, budget)
}

// AwaitTransaction polls until the transaction's effects are queryable or the settle timeout expires.
func (c *Client) AwaitTransaction(ctx context.Context, digest string) (*domain.TxResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.settleTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var resp txBlockResponse
		err := c.rpc.call(ctx, "sui_getTransactionBlock", []any{digest, map[string]bool{"showEffects": true}}, &resp)
		if err == nil && resp.Effects != nil {
			return resp.toResult(), nil
		}
		var rpcErr *RPCError
		if err != nil && !errors.As(err, &rpcErr) && !domain.IsRetriable(err) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transaction %s not visible after %s: %w", digest, c.settleTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}
