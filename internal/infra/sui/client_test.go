package sui

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"deepbook_go/internal/domain"
	"deepbook_go/internal/infra"
	"deepbook_go/internal/ptb"

	"github.com/btcsuite/btcutil/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNode answers the JSON-RPC methods the client uses.
type fakeNode struct {
	t       *testing.T
	mu      sync.Mutex
	calls   map[string]int
	execute func(txBytes []byte) any
	lookups int // sui_getTransactionBlock calls before the tx becomes visible
}

func testDigest(b byte) string {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = b
	}
	return base58.Encode(raw)
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	n.mu.Lock()
	n.calls[req.Method]++
	count := n.calls[req.Method]
	n.mu.Unlock()

	var result any
	switch req.Method {
	case "suix_getReferenceGasPrice":
		result = "1000"
	case "suix_getCoins":
		result = map[string]any{
			"data": []map[string]any{
				{"coinObjectId": "0xa1", "version": "4", "digest": testDigest(1), "balance": "10000000000"},
				{"coinObjectId": "0xa2", "version": "5", "digest": testDigest(2), "balance": "90000000000"},
			},
			"hasNextPage": false,
		}
	case "sui_multiGetObjects":
		ids := req.Params[0].([]any)
		objs := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			objs = append(objs, map[string]any{"data": map[string]any{
				"objectId": id,
				"version":  "9",
				"digest":   testDigest(3),
				"owner":    map[string]any{"Shared": map[string]any{"initial_shared_version": "1"}},
			}})
		}
		result = objs
	case "sui_executeTransactionBlock":
		txBytes, err := base64.StdEncoding.DecodeString(req.Params[0].(string))
		require.NoError(n.t, err)
		result = n.execute(txBytes)
	case "sui_getTransactionBlock":
		if count <= n.lookups {
			writeJSON(w, map[string]any{"jsonrpc": "2.0", "id": req.ID, "error": map[string]any{"code": -32602, "message": "Could not find the referenced transaction"}})
			return
		}
		result = map[string]any{"digest": req.Params[0], "effects": map[string]any{"status": map[string]any{"status": "success"}}}
	default:
		n.t.Errorf("unexpected method %s", req.Method)
	}
	writeJSON(w, map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, node *fakeNode) (*Client, *infra.Metrics) {
	t.Helper()
	node.t = t
	node.calls = make(map[string]int)
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)

	cfg := infra.Defaults()
	cfg.Network.RPCURL = srv.URL
	cfg.Network.GasBudget = 50_000_000_000
	cfg.Network.SettleTimeout = 2 * time.Second
	cfg.Network.PollInterval = 10 * time.Millisecond
	cfg.Limits.MaxCommands = 4

	signer, err := NewSigner(testSeedHex)
	require.NoError(t, err)

	metrics := &infra.Metrics{}
	c, err := NewClient(context.Background(), cfg, signer, metrics)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, metrics
}

func TestClient_SubmitSuccess(t *testing.T) {
	var seen []byte
	node := &fakeNode{execute: func(tx []byte) any {
		seen = tx
		return map[string]any{
			"digest":  TransactionDigest(tx),
			"effects": map[string]any{"status": map[string]any{"status": "success"}, "gasUsed": map[string]any{"computationCost": "100", "storageCost": "50", "storageRebate": "10"}},
			"objectChanges": []map[string]any{
				{"type": "created", "objectType": "0xd::balance_manager::BalanceManager", "objectId": "0xb1", "version": "10"},
			},
		}
	}}
	c, metrics := newTestClient(t, node)

	b := ptb.New("create manager")
	m := b.MoveCall("0xd::balance_manager::new", nil)
	b.MoveCall("0xd::balance_manager::share", nil, m)
	b.ImmutableObject(domain.ClockID)

	res, err := c.Submit(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, domain.TxSuccess, res.Status)
	assert.Equal(t, TransactionDigest(seen), res.Digest)
	assert.Equal(t, uint64(140), res.Gas.Net())

	id, err := domain.Extract(res.Changes, domain.Created().Containing("BalanceManager"))
	require.NoError(t, err)
	assert.Equal(t, "0xb1", id)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.Submissions)
	assert.Equal(t, uint64(2), snap.Commands)
	assert.Equal(t, uint64(1), snap.ObjectsCreated)
	assert.Equal(t, uint64(50_000_000_000), b.GasBudget, "default budget applied")
}

func TestClient_SubmitOnChainFailure(t *testing.T) {
	node := &fakeNode{execute: func(tx []byte) any {
		return map[string]any{
			"digest":  TransactionDigest(tx),
			"effects": map[string]any{"status": map[string]any{"status": "failure", "error": "InsufficientGas"}},
		}
	}}
	c, metrics := newTestClient(t, node)

	b := ptb.New("transfer")
	b.TransferObjects([]ptb.Argument{ptb.GasCoin()}, b.Address("0x5"))

	res, err := c.Submit(context.Background(), b)
	require.NoError(t, err, "on-chain failure is a result, not an error")
	assert.Equal(t, domain.TxFailure, res.Status)
	assert.Equal(t, "InsufficientGas", res.Error)
	assert.Equal(t, uint64(1), metrics.Snapshot().Failures)
}

func TestClient_SubmitRejectsOversizedBatch(t *testing.T) {
	node := &fakeNode{execute: func([]byte) any { t.Fatal("should not execute"); return nil }}
	c, _ := newTestClient(t, node)

	b := ptb.New("too big")
	for i := 0; i < 5; i++ {
		b.MoveCall("0xd::balance_manager::new", nil)
	}

	_, err := c.Submit(context.Background(), b)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSubmissionFailed)
	assert.ErrorIs(t, err, ptb.ErrBatchTooLarge)
	assert.Zero(t, node.calls["sui_multiGetObjects"], "nothing is sent for an invalid batch")
}

func TestClient_AwaitTransaction(t *testing.T) {
	node := &fakeNode{lookups: 2}
	c, _ := newTestClient(t, node)

	res, err := c.AwaitTransaction(context.Background(), "D9")
	require.NoError(t, err)
	assert.Equal(t, "D9", res.Digest)
	assert.Equal(t, domain.TxSuccess, res.Status)
	assert.Equal(t, 3, node.calls["sui_getTransactionBlock"])
}

func TestClient_AwaitTransactionTimeout(t *testing.T) {
	node := &fakeNode{lookups: 1 << 30}
	c, _ := newTestClient(t, node)
	c.settleTimeout = 50 * time.Millisecond

	_, err := c.AwaitTransaction(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
