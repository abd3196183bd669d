package lsclient

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/quill-lang/quillup/internal/domain"
)

// Conn is an initialized protocol connection to a running language server.
type Conn struct {
	rpc    *jsonrpc2.Conn
	logger domain.Logger
}

// initializeParams is the subset of the protocol handshake this client
// sends. The server tolerates absent capabilities.
type initializeParams struct {
	ProcessID    int      `json:"processId"`
	RootURI      string   `json:"rootUri,omitempty"`
	Capabilities struct{} `json:"capabilities"`
}

// Connect wraps the child's stdio in a protocol connection and performs
// the initialize handshake.
func Connect(ctx context.Context, rwc io.ReadWriteCloser, rootURI string, logger domain.Logger) (*Conn, error) {
	c := &Conn{logger: logger}
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	c.rpc = jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(c.handle))

	params := initializeParams{ProcessID: os.Getpid(), RootURI: rootURI}
	var result map[string]any
	if err := c.rpc.Call(ctx, "initialize", params, &result); err != nil {
		c.rpc.Close()
		return nil, fmt.Errorf("initialize handshake: %w", err)
	}
	if err := c.rpc.Notify(ctx, "initialized", struct{}{}); err != nil {
		c.rpc.Close()
		return nil, fmt.Errorf("initialized notification: %w", err)
	}
	logger.Info("language server initialized")
	return c, nil
}

// handle logs server-to-client traffic. The supervisor has no editor
// surface to route diagnostics into, so messages are surfaced in the log.
func (c *Conn) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	switch req.Method {
	case "window/logMessage", "window/showMessage":
		if req.Params != nil {
			c.logger.Info("language server message", "payload", string(*req.Params))
		}
		return nil, nil
	default:
		c.logger.Info("language server request", "method", req.Method)
		return nil, nil
	}
}

// Shutdown performs the orderly shutdown/exit exchange and closes the
// connection. Errors from a server that already went away are ignored.
func (c *Conn) Shutdown(ctx context.Context) error {
	var result any
	_ = c.rpc.Call(ctx, "shutdown", nil, &result)
	_ = c.rpc.Notify(ctx, "exit", nil)
	return c.rpc.Close()
}

// Disconnected is closed when the underlying connection drops.
func (c *Conn) Disconnected() <-chan struct{} {
	return c.rpc.DisconnectNotify()
}
