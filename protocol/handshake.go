package protocol

import (
	"github.com/mickamy/chnative/cherr"
	"github.com/mickamy/chnative/wire"
)

// ClientHelloInfo is the Hello packet the client sends to open a session.
type ClientHelloInfo struct {
	ClientName         string
	VersionMajor       uint64
	VersionMinor       uint64
	ProtocolVersion    uint64
	DefaultDatabase    string
	Username           string
	Password           string
}

// WriteHello sends the handshake's opening packet.
func WriteHello(w wire.Writer, info ClientHelloInfo) error {
	if err := wire.WriteVarUint(w, uint64(ClientHello)); err != nil {
		return err
	}
	if err := wire.WriteUTF8String(w, info.ClientName); err != nil {
		return err
	}
	if err := wire.WriteVarUint(w, info.VersionMajor); err != nil {
		return err
	}
	if err := wire.WriteVarUint(w, info.VersionMinor); err != nil {
		return err
	}
	if err := wire.WriteVarUint(w, info.ProtocolVersion); err != nil {
		return err
	}
	if err := wire.WriteUTF8String(w, info.DefaultDatabase); err != nil {
		return err
	}
	if err := wire.WriteUTF8String(w, info.Username); err != nil {
		return err
	}
	return wire.WriteUTF8String(w, info.Password)
}

// ServerHelloInfo is the server's handshake reply. Revision gates which of
// Timezone/DisplayName/PatchVersion are actually present on the wire.
type ServerHelloInfo struct {
	Name         string
	VersionMajor uint64
	VersionMinor uint64
	Revision     uint64
	Timezone     string
	DisplayName  string
	PatchVersion uint64
}

// ReadHello reads the server's handshake reply. The packet ID byte (which
// must equal ServerHello) has already been consumed by the caller's
// dispatcher, matching how every other inbound-packet reader in this
// package assumes its tag was read by ReadServerPacket.
func ReadHello(r wire.Reader) (*ServerHelloInfo, error) {
	name, err := wire.ReadUTF8String(r)
	if err != nil {
		return nil, err
	}
	major, err := wire.ReadVarUint(r)
	if err != nil {
		return nil, err
	}
	minor, err := wire.ReadVarUint(r)
	if err != nil {
		return nil, err
	}
	revision, err := wire.ReadVarUint(r)
	if err != nil {
		return nil, err
	}
	info := &ServerHelloInfo{Name: name, VersionMajor: major, VersionMinor: minor, Revision: revision}
	if revision >= RevisionServerTimezone {
		info.Timezone, err = wire.ReadUTF8String(r)
		if err != nil {
			return nil, err
		}
	}
	if revision >= RevisionServerDisplayName {
		info.DisplayName, err = wire.ReadUTF8String(r)
		if err != nil {
			return nil, err
		}
	}
	if revision >= RevisionVersionPatch {
		info.PatchVersion, err = wire.ReadVarUint(r)
		if err != nil {
			return nil, err
		}
	}
	return info, nil
}

// NegotiateRevision returns the lower of the client's advertised revision
// and the server's reported revision — the value that gates every
// subsequent packet shape for the lifetime of the session.
func NegotiateRevision(serverRevision uint64) uint64 {
	if serverRevision < ClientRevision {
		return serverRevision
	}
	return ClientRevision
}

// ErrUnexpectedHello is returned when a Hello packet arrives outside the
// handshake, per the "Hello after handshake is a protocol error" rule.
var ErrUnexpectedHello = cherr.NewProtocol("unexpected Hello packet after handshake")
