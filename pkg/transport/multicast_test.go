package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type TransportTestSuite struct {
	suite.Suite
}

func (s *TransportTestSuite) TestResolveGroup() {
	addr, err := resolveGroup("239.0.0.1", 5000)
	s.NoError(err)
	s.Equal("239.0.0.1:5000", addr.String())

	for _, bad := range []string{"192.168.1.1", "not-an-ip", "ff02::1", ""} {
		_, err := resolveGroup(bad, 5000)
		s.ErrorIs(err, ErrNotMulticast, bad)
	}
}

func (s *TransportTestSuite) TestNewSenderConfiguresGroup() {
	sender, err := NewSender("239.0.0.1", 5000, SenderOptions{TTL: 2, Loopback: true})
	s.Require().NoError(err)
	defer sender.Close()

	s.Equal("239.0.0.1:5000", sender.Destination())

	_, err = NewSender("10.0.0.1", 5000, SenderOptions{})
	s.ErrorIs(err, ErrNotMulticast)

	_, err = NewSender("239.0.0.1", 5000, SenderOptions{Interface: "no-such-iface0"})
	s.Error(err)
}

func (s *TransportTestSuite) TestUnicastSendAndReadDeadline() {
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	s.Require().NoError(err)
	defer conn.Close()

	sender, err := NewUnicastSender(conn.LocalAddr().String())
	s.Require().NoError(err)
	defer sender.Close()

	s.NoError(sender.Send([]byte("ping")))

	buf := make([]byte, 16)
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	n, _, err := conn.ReadFrom(buf)
	s.Require().NoError(err)
	s.Equal("ping", string(buf[:n]))

	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(10 * time.Millisecond)))
	_, _, err = conn.ReadFrom(buf)
	s.True(IsTimeout(err))
	s.False(IsClosedError(err))

	conn.Close()
	_, _, err = conn.ReadFrom(buf)
	s.True(IsClosedError(err))
}

func TestTransportSuite(t *testing.T) {
	suite.Run(t, new(TransportTestSuite))
}
