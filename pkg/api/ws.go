package api

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// wsWriteTimeout bounds a single push so a stalled peer cannot pin the
// feed goroutine.
const wsWriteTimeout = 10 * time.Second

// handlePositionsWS handles GET /positions/ws: a websocket feed pushing
// the positions payload on a fixed cadence. Every push goes through the
// ordinary read path, so simulation advancement still piggybacks on
// read traffic; an idle feed with no connected clients ticks nothing.
func (s *Server) handlePositionsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The feed is public demo data; allow the frontend from any origin.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.log.Debug("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "feed closed")

	// The feed never expects data from the client. CloseRead keeps
	// control frames (ping, close) processed and cancels the context
	// when the client closes or the connection drops.
	ctx := conn.CloseRead(r.Context())
	s.log.Debug("websocket feed connected", "remote", r.RemoteAddr)

	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	for {
		if err := s.pushPositions(ctx, conn); err != nil {
			s.log.Debug("websocket feed closed", "remote", r.RemoteAddr, "error", err)
			return
		}
		s.wsPushesTotal.Inc()

		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
		}
	}
}

// pushPositions writes one feed payload with a bounded deadline.
func (s *Server) pushPositions(ctx context.Context, conn *websocket.Conn) error {
	wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, s.positionsPayload(ctx))
}
