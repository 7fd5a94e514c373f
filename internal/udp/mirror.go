// Package udp mirrors capture log records to a UDP listener, one datagram
// per record, so a capture can be watched live without touching the card.
package udp

import (
	"fmt"
	"log"
	"net"
	"sync/atomic"

	"blecap/internal/binlog"
)

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)
type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

func dialUDP(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
	return net.DialUDP(network, laddr, raddr)
}

// Mirror is a binlog.Sink that sends each record the next sink accepted to
// dest. Send failures are counted and never fail the write.
type Mirror struct {
	next binlog.Sink
	dest string
	conn udpConn

	sent    atomic.Uint64
	failed  atomic.Uint64
	failing bool
}

func NewMirror(next binlog.Sink, dest string) (*Mirror, error) {
	return newMirror(next, dest, net.ResolveUDPAddr, dialUDP)
}

func newMirror(next binlog.Sink, dest string, resolve resolveFunc, dial dialFunc) (*Mirror, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}
	return &Mirror{next: next, dest: dest, conn: conn}, nil
}

// Write hands p to the next sink and mirrors it only once the sink has
// accepted all of it.
func (m *Mirror) Write(p []byte) (int, error) {
	n, err := m.next.Write(p)
	if err == nil && n == len(p) {
		m.send(p)
	}
	return n, err
}

func (m *Mirror) Flush() error {
	return m.next.Flush()
}

func (m *Mirror) send(p []byte) {
	if len(p) == 0 {
		return
	}
	if _, err := m.conn.Write(p); err != nil {
		m.failed.Add(1)
		if !m.failing {
			log.Printf("udp mirror dest=%s send failed: %v", m.dest, err)
			m.failing = true
		}
		return
	}
	if m.failing {
		log.Printf("udp mirror dest=%s recovered", m.dest)
		m.failing = false
	}
	m.sent.Add(1)
}

// Sent and Failed count datagrams; both are safe to read from any goroutine.
func (m *Mirror) Sent() uint64   { return m.sent.Load() }
func (m *Mirror) Failed() uint64 { return m.failed.Load() }

// Close releases the socket. The next sink is left open.
func (m *Mirror) Close() error {
	if m.conn == nil {
		return nil
	}
	return m.conn.Close()
}
