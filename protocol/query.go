package protocol

import "github.com/mickamy/chnative/wire"

// Stage is the query processing stage the client asks the server to run
// to; this client always requests Complete, since it never pushes partial
// aggregation stages down to another server.
type Stage uint64

const (
	StageFetchColumns       Stage = 0
	StageWithMergeableState Stage = 1
	StageComplete           Stage = 2
)

// CompressionFlag gates whether the server compresses its response blocks.
type CompressionFlag uint8

const (
	CompressionDisabled CompressionFlag = 0
	CompressionEnabled  CompressionFlag = 1
)

// Query is the outbound Query packet.
type Query struct {
	QueryID           string
	Info              ClientInfo
	Settings          string
	InterserverSecret string
	Stage             Stage
	Compression       CompressionFlag
	SQL               string
}

// Write serializes the Query packet for the given negotiated revision.
func (q Query) Write(w wire.Writer, revision uint64) error {
	if err := wire.WriteVarUint(w, uint64(ClientQuery)); err != nil {
		return err
	}
	if err := wire.WriteUTF8String(w, q.QueryID); err != nil {
		return err
	}
	if revision >= RevisionClientInfo {
		if err := q.Info.Write(w, revision); err != nil {
			return err
		}
	}
	if revision >= RevisionSettingsAsStrings {
		if err := wire.WriteUTF8String(w, q.Settings); err != nil {
			return err
		}
	} else {
		// Pre-SETTINGS_AS_STRINGS servers expect an empty settings list
		// terminated the old key/value way; this client never targets
		// a server that old, but writes the terminator for safety.
		if err := wire.WriteUTF8String(w, ""); err != nil {
			return err
		}
	}
	if revision >= RevisionInterserverSecret {
		if err := wire.WriteUTF8String(w, q.InterserverSecret); err != nil {
			return err
		}
	}
	if err := wire.WriteVarUint(w, uint64(q.Stage)); err != nil {
		return err
	}
	if err := wire.WriteU8(w, uint8(q.Compression)); err != nil {
		return err
	}
	return wire.WriteUTF8String(w, q.SQL)
}
