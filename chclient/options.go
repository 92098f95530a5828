// Package chclient implements the session actor: one goroutine owning a
// connection's reader and writer halves, multiplexing outbound requests
// from any number of client handles against the strictly-ordered stream of
// inbound packets the server returns.
package chclient

import "github.com/mickamy/chnative/chdiag"

// CompressionMethod selects whether block bodies are LZ4-compressed on
// the wire after the handshake.
type CompressionMethod int

const (
	CompressionNone CompressionMethod = iota
	CompressionLZ4
)

// Options configures a new Client. Username defaults to "default" when
// left empty, matching the server's own default account.
type Options struct {
	Username        string
	Password        string
	DefaultDatabase string
	Compression     CompressionMethod
	ClientName      string

	// Diagnostics, when set, flags repeated identical query text issued
	// through this Client within a short window (an N+1-shaped call
	// pattern) via OnRepeatedQuery.
	Diagnostics     *chdiag.Detector
	OnRepeatedQuery func(chdiag.Alert)

	// OnRowSerializeError, when set, is called for every row InsertTyped
	// skips because chrow.Writer.SerializeRow failed or omitted a
	// column the target table requires. The offending row is dropped
	// and the insert continues. Library code never logs on its own —
	// this callback is how a caller (e.g. cmd/chbench) chooses to.
	OnRowSerializeError func(error)
}

func (o Options) username() string {
	if o.Username == "" {
		return "default"
	}
	return o.Username
}

func (o Options) clientName() string {
	if o.ClientName == "" {
		return "chnative"
	}
	return o.ClientName
}
