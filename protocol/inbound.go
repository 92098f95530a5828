package protocol

import (
	"github.com/mickamy/chnative/block"
	"github.com/mickamy/chnative/cherr"
	"github.com/mickamy/chnative/wire"
)

// ServerPacket is the tagged union of every inbound packet the dispatcher
// can produce. Concrete types are exhaustively matched by chclient's
// session actor loop.
type ServerPacket interface{ isServerPacket() }

type HelloPacket struct{ Info *ServerHelloInfo }
type DataPacket struct{ Block *block.Block }
type ExceptionPacket struct{ Err *cherr.ServerException }
type ProgressPacket struct{ Progress Progress }
type PongPacket struct{}
type EndOfStreamPacket struct{}
type ProfileInfoPacket struct{ Info ProfileInfo }
type TotalsPacket struct{ Block *block.Block }
type ExtremesPacket struct{ Block *block.Block }
type TablesStatusResponsePacket struct{ Raw []byte }
type LogPacket struct{ Block *block.Block }
type TableColumnsPacket struct{ TableName, Columns string }
type PartUUIDsPacket struct{ UUIDs []string }
type ReadTaskRequestPacket struct{}
type ProfileEventsPacket struct{ Block *block.Block }

func (HelloPacket) isServerPacket()                 {}
func (DataPacket) isServerPacket()                  {}
func (ExceptionPacket) isServerPacket()              {}
func (ProgressPacket) isServerPacket()               {}
func (PongPacket) isServerPacket()                   {}
func (EndOfStreamPacket) isServerPacket()            {}
func (ProfileInfoPacket) isServerPacket()            {}
func (TotalsPacket) isServerPacket()                 {}
func (ExtremesPacket) isServerPacket()               {}
func (TablesStatusResponsePacket) isServerPacket()   {}
func (LogPacket) isServerPacket()                    {}
func (TableColumnsPacket) isServerPacket()           {}
func (PartUUIDsPacket) isServerPacket()              {}
func (ReadTaskRequestPacket) isServerPacket()        {}
func (ProfileEventsPacket) isServerPacket()          {}

// Progress accumulates the rows/bytes counters a Progress packet reports.
type Progress struct {
	ReadRows      uint64
	ReadBytes     uint64
	TotalRowsHint uint64
	WrittenRows   uint64
	WrittenBytes  uint64
}

// ProfileInfo summarizes a BlockStreamProfileInfo packet.
type ProfileInfo struct {
	Rows                      uint64
	Blocks                    uint64
	Bytes                     uint64
	AppliedLimit              bool
	RowsBeforeLimit           uint64
	CalculatedRowsBeforeLimit bool
}

// ReadServerPacket reads one inbound packet's tag and dispatches to the
// matching reader, fully parsing every packet kind (even ones the session
// actor ultimately discards) so a malformed frame always surfaces as a
// protocol error rather than desynchronizing the stream.
func ReadServerPacket(r wire.Reader, revision, customSerializationRevision uint64) (ServerPacket, error) {
	id, err := wire.ReadVarUint(r)
	if err != nil {
		return nil, err
	}
	switch ServerPacketID(id) {
	case ServerHello:
		info, err := ReadHello(r)
		if err != nil {
			return nil, err
		}
		return HelloPacket{Info: info}, nil
	case ServerData:
		b, err := block.Read(r, revision, customSerializationRevision)
		if err != nil {
			return nil, err
		}
		return DataPacket{Block: b}, nil
	case ServerException:
		exc, err := readException(r)
		if err != nil {
			return nil, err
		}
		return ExceptionPacket{Err: exc}, nil
	case ServerProgress:
		p, err := readProgress(r, revision)
		if err != nil {
			return nil, err
		}
		return ProgressPacket{Progress: p}, nil
	case ServerPong:
		return PongPacket{}, nil
	case ServerEndOfStream:
		return EndOfStreamPacket{}, nil
	case ServerProfileInfo:
		info, err := readProfileInfo(r)
		if err != nil {
			return nil, err
		}
		return ProfileInfoPacket{Info: info}, nil
	case ServerTotals:
		b, err := block.Read(r, revision, customSerializationRevision)
		if err != nil {
			return nil, err
		}
		return TotalsPacket{Block: b}, nil
	case ServerExtremes:
		b, err := block.Read(r, revision, customSerializationRevision)
		if err != nil {
			return nil, err
		}
		return ExtremesPacket{Block: b}, nil
	case ServerTablesStatusResponse:
		raw, err := readLengthPrefixedRaw(r)
		if err != nil {
			return nil, err
		}
		return TablesStatusResponsePacket{Raw: raw}, nil
	case ServerLog:
		b, err := block.Read(r, revision, customSerializationRevision)
		if err != nil {
			return nil, err
		}
		return LogPacket{Block: b}, nil
	case ServerTableColumns:
		tableName, err := wire.ReadUTF8String(r)
		if err != nil {
			return nil, err
		}
		columns, err := wire.ReadUTF8String(r)
		if err != nil {
			return nil, err
		}
		return TableColumnsPacket{TableName: tableName, Columns: columns}, nil
	case ServerPartUUIDs:
		n, err := wire.ReadVarUint(r)
		if err != nil {
			return nil, err
		}
		uuids := make([]string, n)
		for i := uint64(0); i < n; i++ {
			s, err := wire.ReadUTF8String(r)
			if err != nil {
				return nil, err
			}
			uuids[i] = s
		}
		return PartUUIDsPacket{UUIDs: uuids}, nil
	case ServerReadTaskRequest:
		return ReadTaskRequestPacket{}, nil
	case ServerProfileEvents:
		b, err := block.Read(r, revision, customSerializationRevision)
		if err != nil {
			return nil, err
		}
		return ProfileEventsPacket{Block: b}, nil
	default:
		return nil, cherr.NewProtocol("unknown server packet id %d", id)
	}
}

// readException parses the server's (possibly chained) exception frame.
// Per the design note this library preserves: only the outermost
// exception is surfaced, but every nested frame is still consumed off the
// wire so the stream stays in sync.
func readException(r wire.Reader) (*cherr.ServerException, error) {
	code, err := wire.ReadU32(r)
	if err != nil {
		return nil, err
	}
	name, err := wire.ReadUTF8String(r)
	if err != nil {
		return nil, err
	}
	message, err := wire.ReadUTF8String(r)
	if err != nil {
		return nil, err
	}
	stackTrace, err := wire.ReadUTF8String(r)
	if err != nil {
		return nil, err
	}
	hasNested, err := wire.ReadU8(r)
	if err != nil {
		return nil, err
	}
	outer := &cherr.ServerException{
		Code:       int32(code),
		Name:       name,
		Message:    message,
		StackTrace: stackTrace,
		HasNested:  hasNested != 0,
	}
	for hasNested != 0 {
		// Drain (and discard) every nested frame so the socket isn't
		// left mid-packet.
		_, err := wire.ReadU32(r)
		if err != nil {
			return nil, err
		}
		if _, err = wire.ReadUTF8String(r); err != nil {
			return nil, err
		}
		if _, err = wire.ReadUTF8String(r); err != nil {
			return nil, err
		}
		if _, err = wire.ReadUTF8String(r); err != nil {
			return nil, err
		}
		hasNested, err = wire.ReadU8(r)
		if err != nil {
			return nil, err
		}
	}
	return outer, nil
}

func readProgress(r wire.Reader, revision uint64) (Progress, error) {
	var p Progress
	rows, err := wire.ReadVarUint(r)
	if err != nil {
		return p, err
	}
	bytesRead, err := wire.ReadVarUint(r)
	if err != nil {
		return p, err
	}
	total, err := wire.ReadVarUint(r)
	if err != nil {
		return p, err
	}
	p.ReadRows, p.ReadBytes, p.TotalRowsHint = rows, bytesRead, total
	if revision >= RevisionClientWriteInfo {
		writtenRows, err := wire.ReadVarUint(r)
		if err != nil {
			return p, err
		}
		writtenBytes, err := wire.ReadVarUint(r)
		if err != nil {
			return p, err
		}
		p.WrittenRows, p.WrittenBytes = writtenRows, writtenBytes
	}
	return p, nil
}

func readProfileInfo(r wire.Reader) (ProfileInfo, error) {
	var info ProfileInfo
	var err error
	if info.Rows, err = wire.ReadVarUint(r); err != nil {
		return info, err
	}
	if info.Blocks, err = wire.ReadVarUint(r); err != nil {
		return info, err
	}
	if info.Bytes, err = wire.ReadVarUint(r); err != nil {
		return info, err
	}
	applied, err := wire.ReadU8(r)
	if err != nil {
		return info, err
	}
	info.AppliedLimit = applied != 0
	if info.RowsBeforeLimit, err = wire.ReadVarUint(r); err != nil {
		return info, err
	}
	calculated, err := wire.ReadU8(r)
	if err != nil {
		return info, err
	}
	info.CalculatedRowsBeforeLimit = calculated != 0
	return info, nil
}

// readLengthPrefixedRaw consumes a TablesStatusResponse packet's body
// without interpreting it — this client never issues a
// TablesStatusRequest, so this shape only needs to be parsed far enough to
// stay in sync with the stream, not decoded into a structured value.
func readLengthPrefixedRaw(r wire.Reader) ([]byte, error) {
	return wire.ReadString(r)
}
