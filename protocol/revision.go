// Package protocol implements the packet layer above the block codec: the
// handshake, the outbound/inbound packet ID spaces, and the revision-gated
// field sets within each packet.
package protocol

// Revision thresholds gate the presence of fields in the handshake,
// ClientInfo, and Query packets. A session negotiates the lower of its own
// ClientRevision and the server's reported revision; every packet writer/
// reader below takes the negotiated revision as a parameter.
const (
	RevisionClientInfo           = 54032
	RevisionServerTimezone       = 54058
	RevisionQuotaKeyInClientInfo = 54060
	RevisionServerDisplayName    = 54372
	RevisionVersionPatch         = 54401
	RevisionServerLogs           = 54406
	RevisionClientWriteInfo      = 54420
	RevisionSettingsAsStrings    = 54429
	RevisionInterserverSecret    = 54441
	RevisionOpenTelemetry        = 54442
	RevisionDistributedDepth     = 54448
	RevisionCustomSerialization  = 54454
	RevisionInterserverSecretV2  = 54462

	// ClientRevision is the revision this client advertises during the
	// handshake; the server may negotiate a lower one.
	ClientRevision = RevisionInterserverSecretV2
)
