// Package transport wraps the UDP multicast sockets used for state broadcast and
// command traffic.
package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/ipv4"
)

var (
	// ErrNotMulticast is returned when the group address is not an IPv4 multicast address.
	ErrNotMulticast = errors.New("not an IPv4 multicast address")
)

// PacketReader is the receive side used by the command listener.
type PacketReader interface {
	ReadFrom(b []byte) (int, net.Addr, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// SenderOptions configures outbound multicast.
type SenderOptions struct {
	TTL       int
	Loopback  bool
	Interface string
}

// Sender writes datagrams to one multicast group and port.
type Sender struct {
	conn net.PacketConn
	pc   *ipv4.PacketConn
	dst  *net.UDPAddr
}

func resolveGroup(group string, port int) (*net.UDPAddr, error) {
	ip := net.ParseIP(group)
	if ip == nil || ip.To4() == nil || !ip.IsMulticast() {
		return nil, fmt.Errorf("%w: %q", ErrNotMulticast, group)
	}
	return &net.UDPAddr{IP: ip.To4(), Port: port}, nil
}

func lookupInterface(name string) (*net.Interface, error) {
	if name == "" {
		return nil, nil
	}
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("multicast interface %q: %w", name, err)
	}
	return ifi, nil
}

// NewSender opens an unbound UDP socket configured for multicast to group:port.
func NewSender(group string, port int, opts SenderOptions) (*Sender, error) {
	dst, err := resolveGroup(group, port)
	if err != nil {
		return nil, err
	}
	ifi, err := lookupInterface(opts.Interface)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenPacket("udp4", "0.0.0.0:0")
	if err != nil {
		return nil, fmt.Errorf("open multicast sender: %w", err)
	}
	pc := ipv4.NewPacketConn(conn)

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 1
	}
	if err := pc.SetMulticastTTL(ttl); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set multicast ttl: %w", err)
	}
	if err := pc.SetMulticastLoopback(opts.Loopback); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set multicast loopback: %w", err)
	}
	if ifi != nil {
		if err := pc.SetMulticastInterface(ifi); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("set multicast interface: %w", err)
		}
	}

	return &Sender{conn: conn, pc: pc, dst: dst}, nil
}

// NewUnicastSender sends to a plain host:port. It is used where multicast
// routing is unavailable, and in tests.
func NewUnicastSender(addr string) (*Sender, error) {
	dst, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", addr, err)
	}
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("open unicast sender: %w", err)
	}
	return &Sender{conn: conn, dst: dst}, nil
}

// Send writes one datagram. UDP gives no delivery guarantee.
func (s *Sender) Send(b []byte) error {
	_, err := s.conn.WriteTo(b, s.dst)
	return err
}

// Destination returns the group and port datagrams are sent to.
func (s *Sender) Destination() string {
	return s.dst.String()
}

func (s *Sender) Close() error {
	return s.conn.Close()
}

// Receiver is a UDP socket bound to a port and joined to a multicast group.
type Receiver struct {
	conn  net.PacketConn
	pc    *ipv4.PacketConn
	group *net.UDPAddr
	ifi   *net.Interface
}

// NewReceiver binds to port on all addresses and joins group.
func NewReceiver(group string, port int, iface string) (*Receiver, error) {
	dst, err := resolveGroup(group, port)
	if err != nil {
		return nil, err
	}
	ifi, err := lookupInterface(iface)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenPacket("udp4", net.JoinHostPort("0.0.0.0", strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("bind command port %d: %w", port, err)
	}
	pc := ipv4.NewPacketConn(conn)
	if err := pc.JoinGroup(ifi, dst); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("join group %s: %w", dst.IP, err)
	}
	return &Receiver{conn: conn, pc: pc, group: dst, ifi: ifi}, nil
}

func (r *Receiver) ReadFrom(b []byte) (int, net.Addr, error) {
	return r.conn.ReadFrom(b)
}

func (r *Receiver) SetReadDeadline(t time.Time) error {
	return r.conn.SetReadDeadline(t)
}

// Close leaves the group and closes the socket.
func (r *Receiver) Close() error {
	_ = r.pc.LeaveGroup(r.ifi, r.group)
	return r.conn.Close()
}

// IsClosedError reports whether err comes from reading a closed socket.
func IsClosedError(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

// IsTimeout reports whether err is a read deadline expiry.
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
