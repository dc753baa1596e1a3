package server

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/mspprobe/internal/image"
	"github.com/muurk/mspprobe/internal/logging"
	"github.com/muurk/mspprobe/internal/verify"
)

const (
	// Time allowed to write a response to the peer
	writeWait = 10 * time.Second

	// Maximum request size allowed from peer
	maxMessageSize = 8192
)

// Request is one client operation. Addresses and values are plain JSON
// numbers; byte payloads travel hex-encoded in Data.
type Request struct {
	Op       string `json:"op"`
	Addr     uint32 `json:"addr,omitempty"`
	Value    uint32 `json:"value,omitempty"`
	Length   uint16 `json:"length,omitempty"`
	Count    uint16 `json:"count,omitempty"`
	Register uint8  `json:"register,omitempty"`
	Data     string `json:"data,omitempty"`
}

// Response mirrors the request op and carries either a result field or an
// error string.
type Response struct {
	Op         string   `json:"op"`
	OK         bool     `json:"ok"`
	Error      string   `json:"error,omitempty"`
	Value      *uint32  `json:"value,omitempty"`
	Values     []uint32 `json:"values,omitempty"`
	Data       string   `json:"data,omitempty"`
	Connected  *bool    `json:"connected,omitempty"`
	Verified   *bool    `json:"verified,omitempty"`
	Mismatches int      `json:"mismatches,omitempty"`
	Report     string   `json:"report,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The probe server runs on trusted networks; browser origin checks
	// would reject the native clients that actually use it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS upgrades the connection and serves JSON operations until the
// client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	remoteAddr := conn.RemoteAddr().String()
	logging.LogConnection(remoteAddr, "websocket_connected")
	conn.SetReadLimit(maxMessageSize)

	defer func() {
		_ = conn.Close()
		logging.LogConnection(remoteAddr, "websocket_closed")
	}()

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Warn("WebSocket read error",
					zap.String("remote_addr", remoteAddr),
					zap.Error(err),
				)
			}
			return
		}

		logging.Debug("Operation request",
			zap.String("remote_addr", remoteAddr),
			zap.String("op", req.Op),
		)

		resp := s.dispatch(req)

		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return
		}
		if err := conn.WriteJSON(resp); err != nil {
			logging.Warn("WebSocket write error",
				zap.String("remote_addr", remoteAddr),
				zap.Error(err),
			)
			return
		}
	}
}

// dispatch runs one operation against the session. The session's own mutex
// serializes overlapping clients.
func (s *Server) dispatch(req Request) Response {
	resp := Response{Op: req.Op}

	fail := func(err error) Response {
		resp.Error = err.Error()
		return resp
	}

	switch req.Op {
	case "halt":
		if err := s.session.Halt(); err != nil {
			return fail(err)
		}

	case "resume":
		if err := s.session.Resume(); err != nil {
			return fail(err)
		}

	case "read-word":
		value, err := s.session.ReadWord(req.Addr)
		if err != nil {
			return fail(err)
		}
		resp.Value = &value

	case "read-words":
		values, err := s.session.ReadWords(req.Addr, req.Count)
		if err != nil {
			return fail(err)
		}
		resp.Values = values

	case "read-bytes":
		data, err := s.session.ReadBytes(req.Addr, req.Length)
		if err != nil {
			return fail(err)
		}
		resp.Data = hex.EncodeToString(data)

	case "write-word":
		if err := s.session.WriteWord(req.Addr, req.Value); err != nil {
			return fail(err)
		}

	case "read-register":
		value, err := s.session.ReadRegister(req.Register)
		if err != nil {
			return fail(err)
		}
		resp.Value = &value

	case "pc":
		value, err := s.session.ReadPC()
		if err != nil {
			return fail(err)
		}
		resp.Value = &value

	case "verify":
		expected, err := hex.DecodeString(req.Data)
		if err != nil {
			return fail(fmt.Errorf("verify: bad expected data: %w", err))
		}
		if len(expected) == 0 {
			return fail(errors.New("verify: no expected data"))
		}

		region := &image.Image{Sections: []image.FlashSection{{
			Address: req.Addr,
			Size:    uint32(len(expected)),
			Data:    expected,
		}}}
		result := verify.New(s.session.ReadFlash, s.session.Profile().Link.MaxReadChunk).Run(region)

		verified := result.Success()
		resp.Verified = &verified
		resp.Mismatches = result.MismatchCount()
		resp.Report = result.Render()

	case "status":
		connected := s.Connected()
		resp.Connected = &connected

	default:
		resp.Error = "unknown op: " + req.Op
		return resp
	}

	resp.OK = true
	return resp
}
