package protocol

// ClientPacketID identifies an outbound packet.
type ClientPacketID uint64

const (
	ClientHello              ClientPacketID = 0
	ClientQuery              ClientPacketID = 1
	ClientData               ClientPacketID = 2
	ClientCancel             ClientPacketID = 3
	ClientPing               ClientPacketID = 4
	ClientTablesStatusRequest ClientPacketID = 5
)

// ServerPacketID identifies an inbound packet.
type ServerPacketID uint64

const (
	ServerHello                ServerPacketID = 0
	ServerData                 ServerPacketID = 1
	ServerException            ServerPacketID = 2
	ServerProgress             ServerPacketID = 3
	ServerPong                 ServerPacketID = 4
	ServerEndOfStream          ServerPacketID = 5
	ServerProfileInfo          ServerPacketID = 6
	ServerTotals               ServerPacketID = 7
	ServerExtremes             ServerPacketID = 8
	ServerTablesStatusResponse ServerPacketID = 9
	ServerLog                  ServerPacketID = 10
	ServerTableColumns         ServerPacketID = 11
	ServerPartUUIDs            ServerPacketID = 12
	ServerReadTaskRequest      ServerPacketID = 13
	ServerProfileEvents        ServerPacketID = 14
)
