// Package txrecorder wraps a sipgo client so every outbound request sent
// from a serializer task records the (method, Call-ID) -> serializer
// name mapping the Distributor uses to route the eventual response back
// onto the same serializer, rather than letting it fall through to the
// hash fallback.
package txrecorder

import (
	"context"

	"github.com/emiago/sipgo"
	"github.com/emiago/sipgo/sip"
)

// Recorder is the narrow slice of *distributor.Distributor this package
// depends on, kept as an interface so txrecorder does not import
// internal/distributor back.
type Recorder interface {
	RecordOutboundSerializer(ctx context.Context, req *sip.Request)
}

// Client decorates a *sipgo.Client: every request handed to WriteRequest
// or TransactionRequest is recorded against the current serializer
// before being handed to the underlying client.
type Client struct {
	*sipgo.Client
	recorder Recorder
}

// New wraps client so its outbound sends are recorded against rec.
func New(client *sipgo.Client, rec Recorder) *Client {
	return &Client{Client: client, recorder: rec}
}

// WriteRequest records req against the serializer running on ctx, then
// writes it directly to the transport layer (the non-transaction path,
// used for ACK).
func (c *Client) WriteRequest(ctx context.Context, req *sip.Request, options ...sipgo.ClientRequestOption) error {
	c.recorder.RecordOutboundSerializer(ctx, req)
	return c.Client.WriteRequest(req, options...)
}

// TransactionRequest records req against the serializer running on ctx,
// then starts a client transaction for it.
func (c *Client) TransactionRequest(ctx context.Context, req *sip.Request, options ...sipgo.ClientRequestOption) (sip.ClientTransaction, error) {
	c.recorder.RecordOutboundSerializer(ctx, req)
	return c.Client.TransactionRequest(ctx, req, options...)
}
