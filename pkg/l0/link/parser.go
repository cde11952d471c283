package link

// SyncState indicates the state of the link.
type SyncState int

// Sync states, Ready and Receiving may be combined.
const (
	SyncStateSyncing   SyncState = 0
	SyncStateReady     SyncState = 0x01
	SyncStateReceiving SyncState = 0x02
)

// IsReady indicates packets can be exchanged.
func (s SyncState) IsReady() bool {
	return s&SyncStateReady != 0
}

// IsReceiving indicates a sync or a packet is partially received.
func (s SyncState) IsReceiving() bool {
	return s&SyncStateReceiving != 0
}

// String implements fmt.Stringer.
func (s SyncState) String() string {
	switch s {
	case SyncStateSyncing:
		return "syncing"
	case SyncStateReady:
		return "ready"
	case SyncStateReceiving:
		return "syncing+receiving"
	case SyncStateReady | SyncStateReceiving:
		return "ready+receiving"
	}
	return "invalid"
}

// TimerAction tells the owner of a Parser what to do with the sync timer.
type TimerAction int

// Timer actions.
const (
	TimerNoChange TimerAction = iota
	TimerRestart
	TimerStop
)

// ParseResult is the outcome of feeding one byte or a timeout.
type ParseResult struct {
	// Sync is syncREQ or syncACK to be sent with own seq, or 0.
	Sync   byte
	State  SyncState
	Packet *Packet
}

// WhatAboutTimer decides what to do with timer.
func (r ParseResult) WhatAboutTimer() TimerAction {
	switch {
	case r.State.IsReceiving() || r.Sync == syncREQ:
		return TimerRestart
	case r.State.IsReady():
		return TimerStop
	}
	return TimerNoChange
}

// ParserStats counts what a Parser has seen.
type ParserStats struct {
	Packets uint64
	Resyncs uint64
}

type parseState int

const (
	stateSyncAck    parseState = iota // syncREQ sent, waiting for syncACK
	stateSyncReqSeq                   // got syncREQ, waiting for peer seq
	stateSyncAckSeq                   // got syncACK, waiting for peer seq
	stateMsgSeq                       // idle, waiting for packet seq
	stateMsgAckSeq                    // got syncACK while idle, validating seq
	stateMsgCode
	stateMsgLen
	stateMsgData
)

const (
	syncREQ byte = 0xff
	syncACK byte = 0xfe
)

// Parser decodes the byte stream received from the peer.
// The zero value is waiting for synchronization.
type Parser struct {
	peerSeq PacketSeq
	state   parseState
	packet  *Packet
	recvLen byte
	stats   ParserStats
}

// State gets the current sync state.
func (p *Parser) State() SyncState {
	switch {
	case p.state == stateSyncAck:
		return SyncStateSyncing
	case p.state == stateMsgSeq:
		return SyncStateReady
	case p.state > stateMsgSeq:
		return SyncStateReady | SyncStateReceiving
	}
	return SyncStateSyncing | SyncStateReceiving
}

// Stats returns the counters.
func (p *Parser) Stats() ParserStats {
	return p.stats
}

// Reset drops any partial packet and requests synchronization.
func (p *Parser) Reset() ParseResult {
	p.packet = nil
	return p.result(p.resync())
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) ParseResult {
	return p.result(p.parseByte(b))
}

// Timeout notifies the sync timer expired. Anything but idle
// restarts synchronization.
func (p *Parser) Timeout() ParseResult {
	if p.state != stateMsgSeq {
		return p.result(p.resync())
	}
	return p.result(0, nil)
}

func (p *Parser) result(sync byte, pkt *Packet) ParseResult {
	return ParseResult{Sync: sync, State: p.State(), Packet: pkt}
}

func (p *Parser) parseByte(b byte) (byte, *Packet) {
	switch p.state {
	case stateSyncAck:
		switch b {
		case syncREQ:
			p.state = stateSyncReqSeq
		case syncACK:
			p.state = stateSyncAckSeq
		}
	case stateSyncReqSeq, stateSyncAckSeq:
		seq := PacketSeq(b)
		if !seq.IsValid() {
			return p.resync()
		}
		answer := p.state == stateSyncReqSeq
		p.peerSeq, p.state = seq, stateMsgSeq
		if answer {
			return syncACK, nil
		}
	case stateMsgSeq:
		switch {
		case b == syncREQ:
			p.state = stateSyncReqSeq
		case b == syncACK:
			p.state = stateMsgAckSeq
		case b != byte(p.peerSeq):
			return p.resync()
		default:
			p.packet = &Packet{Seq: p.peerSeq}
			p.peerSeq = p.peerSeq.Next()
			p.state = stateMsgCode
		}
	case stateMsgAckSeq:
		if b != byte(p.peerSeq) {
			return p.resync()
		}
		p.state = stateMsgSeq
	case stateMsgCode:
		p.packet.Code = b & 0x8f
		switch dataLen := (b >> 4) & 7; dataLen {
		case 0:
			return p.packetReady()
		case 7:
			p.state = stateMsgLen
		default:
			p.expectData(dataLen)
		}
	case stateMsgLen:
		if b >= 0x80 {
			return p.resync()
		}
		if b == 0 {
			return p.packetReady()
		}
		p.expectData(b)
	case stateMsgData:
		p.packet.Data[p.recvLen] = b
		if p.recvLen++; p.recvLen >= byte(len(p.packet.Data)) {
			return p.packetReady()
		}
	}
	return 0, nil
}

func (p *Parser) expectData(l byte) {
	p.packet.Data, p.recvLen = make([]byte, l), 0
	p.state = stateMsgData
}

func (p *Parser) resync() (byte, *Packet) {
	p.state = stateSyncAck
	p.stats.Resyncs++
	return syncREQ, nil
}

func (p *Parser) packetReady() (byte, *Packet) {
	p.state = stateMsgSeq
	p.stats.Packets++
	pkt := p.packet
	p.packet = nil
	return 0, pkt
}
