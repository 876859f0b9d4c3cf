package sui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"deepbook_go/internal/domain"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	defaultTimeout   = 60 * time.Second
)

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// transport carries JSON-RPC calls to the node.
type transport interface {
	call(ctx context.Context, method string, params []any, out any) error
	close() error
}

func newTransport(ctx context.Context, url string, timeout time.Duration) (transport, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	switch {
	case strings.HasPrefix(url, "ws://"), strings.HasPrefix(url, "wss://"):
		return dialWS(ctx, url, timeout)
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return &httpTransport{
			url: url,
			httpClient: &http.Client{
				Timeout: timeout,
				Transport: &http.Transport{
					MaxIdleConns:    10,
					IdleConnTimeout: 30 * time.Second,
				},
			},
		}, nil
	}
	return nil, domain.NewConfigError("network.rpc_url", "unsupported url %q", url)
}

func decodeResult(resp *rpcResponse, out any) error {
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("failed to parse result: %w", err)
	}
	return nil
}

// httpTransport posts one request per call.
type httpTransport struct {
	url        string
	httpClient *http.Client
	nextID     atomic.Uint64
}

func (t *httpTransport) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: t.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return domain.NewNetworkError(method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewNetworkError(method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: http status=%d body=%s", method, resp.StatusCode, truncate(raw, 512))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return fmt.Errorf("%s: failed to parse response: %w", method, err)
	}
	return decodeResult(&rpcResp, out)
}

func (t *httpTransport) close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}

// wsTransport multiplexes calls over one WebSocket connection.
type wsTransport struct {
	conn    *websocket.Conn
	timeout time.Duration
	writeMu sync.Mutex
	nextID  atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan *rpcResponse
	readErr error
	done    chan struct{}
}

func dialWS(ctx context.Context, url string, timeout time.Duration) (*wsTransport, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, http.Header{})
	if err != nil {
		return nil, domain.NewNetworkError("dial", err)
	}
	t := &wsTransport{
		conn:    conn,
		timeout: timeout,
		pending: make(map[uint64]chan *rpcResponse),
		done:    make(chan struct{}),
	}
	go t.readLoop()
	return t, nil
}

func (t *wsTransport) readLoop() {
	defer close(t.done)
	for {
		_, msg, err := t.conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			t.readErr = err
			for id, ch := range t.pending {
				close(ch)
				delete(t.pending, id)
			}
			t.mu.Unlock()
			return
		}

		var resp rpcResponse
		if err := json.Unmarshal(msg, &resp); err != nil || resp.ID == 0 {
			// Subscription notifications carry no id.
			continue
		}
		t.mu.Lock()
		ch, ok := t.pending[resp.ID]
		delete(t.pending, resp.ID)
		t.mu.Unlock()
		if ok {
			ch <- &resp
		}
	}
}

func (t *wsTransport) call(ctx context.Context, method string, params []any, out any) error {
	id := t.nextID.Add(1)
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return err
	}

	ch := make(chan *rpcResponse, 1)
	t.mu.Lock()
	if t.readErr != nil {
		t.mu.Unlock()
		return domain.NewFatalNetworkError(method, t.readErr)
	}
	t.pending[id] = ch
	t.mu.Unlock()

	t.writeMu.Lock()
	t.conn.SetWriteDeadline(time.Now().Add(handshakeTimeout))
	err = t.conn.WriteMessage(websocket.TextMessage, body)
	t.writeMu.Unlock()
	if err != nil {
		t.forget(id)
		return domain.NewNetworkError(method, err)
	}

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return domain.NewFatalNetworkError(method, fmt.Errorf("connection closed"))
		}
		return decodeResult(resp, out)
	case <-timer.C:
		t.forget(id)
		return domain.NewNetworkError(method, fmt.Errorf("no response after %s", t.timeout))
	case <-ctx.Done():
		t.forget(id)
		return ctx.Err()
	}
}

func (t *wsTransport) forget(id uint64) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

func (t *wsTransport) close() error {
	t.writeMu.Lock()
	_ = t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	t.writeMu.Unlock()
	err := t.conn.Close()
	<-t.done
	return err
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
