package protocol

import (
	"github.com/google/uuid"

	"github.com/mickamy/chnative/wire"
)

// QueryKind distinguishes an initial client query from one forwarded
// between servers; this client only ever issues InitialQuery.
type QueryKind uint8

const (
	QueryKindNoQuery      QueryKind = 0
	QueryKindInitialQuery QueryKind = 1
	QueryKindSecondaryQuery QueryKind = 2
)

// Interface identifies the transport the client used; this library always
// reports TCP.
const InterfaceTCP uint8 = 1

// OpenTelemetry carries the trace context spec.md §4.6 says is gated
// behind the OPENTELEMETRY revision: a present/absent flag, a 16-byte
// trace id, a span id, a tracestate string, and a trace-flags byte.
type OpenTelemetry struct {
	TraceID    uuid.UUID
	SpanID     uint64
	TraceState string
	TraceFlags uint8
}

// ClientInfo is the block embedded in a Query packet once the negotiated
// revision is at least RevisionClientInfo.
type ClientInfo struct {
	Kind             QueryKind
	InitialUser      string
	InitialQueryID   string
	InitialAddress   string
	OSUser           string
	ClientHostname   string
	ClientName       string
	VersionMajor     uint64
	VersionMinor     uint64
	VersionPatch     uint64
	QuotaKey         string
	DistributedDepth uint64
	OpenTelemetry    *OpenTelemetry // nil means "not present"
}

// Write serializes the ClientInfo block for the given negotiated revision.
func (ci ClientInfo) Write(w wire.Writer, revision uint64) error {
	if err := wire.WriteU8(w, uint8(ci.Kind)); err != nil {
		return err
	}
	if ci.Kind == QueryKindNoQuery {
		return nil
	}
	if err := wire.WriteUTF8String(w, ci.InitialUser); err != nil {
		return err
	}
	if err := wire.WriteUTF8String(w, ci.InitialQueryID); err != nil {
		return err
	}
	if err := wire.WriteUTF8String(w, ci.InitialAddress); err != nil {
		return err
	}
	if err := wire.WriteU8(w, InterfaceTCP); err != nil {
		return err
	}
	if err := wire.WriteUTF8String(w, ci.OSUser); err != nil {
		return err
	}
	if err := wire.WriteUTF8String(w, ci.ClientHostname); err != nil {
		return err
	}
	if err := wire.WriteUTF8String(w, ci.ClientName); err != nil {
		return err
	}
	if err := wire.WriteVarUint(w, ci.VersionMajor); err != nil {
		return err
	}
	if err := wire.WriteVarUint(w, ci.VersionMinor); err != nil {
		return err
	}
	if err := wire.WriteVarUint(w, ClientRevision); err != nil {
		return err
	}
	if revision >= RevisionQuotaKeyInClientInfo {
		if err := wire.WriteUTF8String(w, ci.QuotaKey); err != nil {
			return err
		}
	}
	if revision >= RevisionDistributedDepth {
		if err := wire.WriteVarUint(w, ci.DistributedDepth); err != nil {
			return err
		}
	}
	if revision >= RevisionVersionPatch {
		if err := wire.WriteVarUint(w, ci.VersionPatch); err != nil {
			return err
		}
	}
	if revision >= RevisionOpenTelemetry {
		if ci.OpenTelemetry == nil {
			if err := wire.WriteU8(w, 0); err != nil {
				return err
			}
		} else {
			if err := wire.WriteU8(w, 1); err != nil {
				return err
			}
			if _, err := w.Write(ci.OpenTelemetry.TraceID[:]); err != nil {
				return err
			}
			if err := wire.WriteU64(w, ci.OpenTelemetry.SpanID); err != nil {
				return err
			}
			if err := wire.WriteUTF8String(w, ci.OpenTelemetry.TraceState); err != nil {
				return err
			}
			if err := wire.WriteU8(w, ci.OpenTelemetry.TraceFlags); err != nil {
				return err
			}
		}
	}
	return nil
}
