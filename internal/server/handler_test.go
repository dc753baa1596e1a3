package server

import (
	"encoding/binary"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/mspprobe/internal/checksum"
	"github.com/muurk/mspprobe/internal/protocol"
	"github.com/muurk/mspprobe/internal/session"
	"github.com/muurk/mspprobe/internal/target"
	"github.com/muurk/mspprobe/internal/transport"
)

// stubTransport plays back queued reply buffers; an empty queue times out.
type stubTransport struct {
	replies [][]byte
}

func (s *stubTransport) Write(data []byte) error { return nil }

func (s *stubTransport) Read(max int) ([]byte, error) {
	if len(s.replies) == 0 {
		return nil, transport.ErrTimeout
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	if len(reply) > max {
		reply = reply[:max]
	}
	return reply, nil
}

func (s *stubTransport) ReadFull(buf []byte) (int, error) {
	if len(s.replies) == 0 {
		return 0, transport.ErrTimeout
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	n := copy(buf, reply)
	if n < len(buf) {
		return n, transport.ErrTimeout
	}
	return n, nil
}

func (s *stubTransport) SetReadTimeout(d time.Duration) error { return nil }
func (s *stubTransport) Close() error                         { return nil }

func deviceReply(cmd protocol.Command, code byte, payload []byte) []byte {
	frame := []byte{protocol.SyncByte0, protocol.SyncByte1, 0, 0, cmd.Opcode(), code}
	frame = append(frame, payload...)
	frame = append(frame, 0, protocol.FooterByte0, protocol.FooterByte1)
	binary.BigEndian.PutUint16(frame[2:4], uint16(len(frame)-6))
	frame[len(frame)-3] = checksum.Frame8(frame[2 : len(frame)-3])
	return frame
}

func newTestServer(t *testing.T, st *stubTransport) *Server {
	t.Helper()
	profile, err := target.Get(target.DefaultProfile)
	if err != nil {
		t.Fatalf("target.Get: %v", err)
	}
	sess := session.NewWithConfig(st, profile, session.Config{
		DiscardWindow: time.Millisecond,
		ReplyTimeout:  time.Millisecond,
	})
	return &Server{
		config:    &Config{},
		session:   sess,
		stopPoll:  make(chan struct{}),
		connected: true,
	}
}

func TestDispatchHalt(t *testing.T) {
	s := newTestServer(t, &stubTransport{})

	resp := s.dispatch(Request{Op: "halt"})
	if !resp.OK || resp.Error != "" {
		t.Errorf("halt response = %+v, want ok", resp)
	}
	if resp.Op != "halt" {
		t.Errorf("response op = %q, want halt", resp.Op)
	}
}

func TestDispatchReadWord(t *testing.T) {
	st := &stubTransport{replies: [][]byte{
		deviceReply(protocol.ReadWord{Addr: 0x100}, protocol.AckRead, []byte{0xDE, 0xAD, 0xBE, 0xEF}),
	}}
	s := newTestServer(t, st)

	resp := s.dispatch(Request{Op: "read-word", Addr: 0x100})
	if !resp.OK {
		t.Fatalf("read-word failed: %s", resp.Error)
	}
	if resp.Value == nil || *resp.Value != 0xDEADBEEF {
		t.Errorf("value = %v, want 0xDEADBEEF", resp.Value)
	}
}

func TestDispatchReadBytesHex(t *testing.T) {
	cmd := protocol.ReadBytes{Addr: 0x0, Length: 4}
	st := &stubTransport{replies: [][]byte{
		deviceReply(cmd, protocol.AckRead, []byte{0x01, 0x02, 0x03, 0x04}),
	}}
	s := newTestServer(t, st)

	resp := s.dispatch(Request{Op: "read-bytes", Addr: 0x0, Length: 4})
	if !resp.OK {
		t.Fatalf("read-bytes failed: %s", resp.Error)
	}
	if resp.Data != "01020304" {
		t.Errorf("data = %q, want 01020304", resp.Data)
	}
}

func TestDispatchReadErrorPropagates(t *testing.T) {
	// Silent target: the read-family op must fail and say so.
	s := newTestServer(t, &stubTransport{})

	resp := s.dispatch(Request{Op: "read-word", Addr: 0x0})
	if resp.OK || resp.Error == "" {
		t.Errorf("response = %+v, want error", resp)
	}
}

func TestDispatchVerifyRegion(t *testing.T) {
	// The profile caps readback at 4 bytes per request, so verifying an
	// 8-byte region takes two chunk reads.
	expected := []byte{0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17}
	st := &stubTransport{replies: [][]byte{
		deviceReply(protocol.ReadBytes{Addr: 0x0, Length: 4}, protocol.AckRead, expected[:4]),
		deviceReply(protocol.ReadBytes{Addr: 0x4, Length: 4}, protocol.AckRead, expected[4:]),
	}}
	s := newTestServer(t, st)

	resp := s.dispatch(Request{Op: "verify", Addr: 0x0, Data: hex.EncodeToString(expected)})
	if !resp.OK {
		t.Fatalf("verify failed: %s", resp.Error)
	}
	if resp.Verified == nil || !*resp.Verified {
		t.Errorf("verified = %v, want true (report: %s)", resp.Verified, resp.Report)
	}
	if resp.Mismatches != 0 {
		t.Errorf("mismatches = %d, want 0", resp.Mismatches)
	}
}

func TestDispatchVerifyRejectsBadHex(t *testing.T) {
	s := newTestServer(t, &stubTransport{})

	resp := s.dispatch(Request{Op: "verify", Addr: 0x0, Data: "zz"})
	if resp.OK || resp.Error == "" {
		t.Errorf("response = %+v, want error", resp)
	}
}

func TestDispatchStatus(t *testing.T) {
	s := newTestServer(t, &stubTransport{})
	s.setConnected(false)

	resp := s.dispatch(Request{Op: "status"})
	if !resp.OK {
		t.Fatalf("status failed: %s", resp.Error)
	}
	if resp.Connected == nil || *resp.Connected {
		t.Errorf("connected = %v, want false", resp.Connected)
	}
}

func TestDispatchUnknownOp(t *testing.T) {
	s := newTestServer(t, &stubTransport{})

	resp := s.dispatch(Request{Op: "format-flash"})
	if resp.OK || !strings.Contains(resp.Error, "unknown op") {
		t.Errorf("response = %+v, want unknown-op error", resp)
	}
}

func TestWebSocketRoundTrip(t *testing.T) {
	s := newTestServer(t, &stubTransport{})

	httpServer := httptest.NewServer(http.HandlerFunc(s.handleWS))
	defer httpServer.Close()

	url := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.WriteJSON(Request{Op: "status"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var resp Response
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !resp.OK || resp.Op != "status" || resp.Connected == nil || !*resp.Connected {
		t.Errorf("response = %+v, want connected status", resp)
	}
}
