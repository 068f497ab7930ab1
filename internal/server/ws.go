package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/tomaszsb/Game-alpha-sub005/internal/models"
)

const sendBuffer = 64

// handleWS upgrades a seat's connection. Incoming text frames are
// GameAction JSON; outgoing frames are GameEvent JSON.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.roomFor(w, r)
	if !ok {
		return
	}
	claims, ok := s.authorize(w, r, rm)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.log.WithError(err).Warn("WebSocket accept failed.")
		return
	}
	log := s.log.WithField("game", claims.GameID).WithField("seat", claims.SeatID)

	c := &client{seatID: claims.SeatID, conn: conn, send: make(chan []byte, sendBuffer)}
	if old := rm.attach(c); old != nil {
		log.Info("Replacing previous connection for seat.")
		old.conn.Close(websocket.StatusPolicyViolation, "replaced by a newer connection")
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go s.writeLoop(ctx, c, log)

	// Reconnect path of AddSeat: marks the seat connected and sends a sync.
	if err := rm.session.AddSeat(&models.Seat{ID: claims.SeatID}); err != nil {
		log.WithError(err).Warn("Seat rejected on connect.")
		conn.Close(websocket.StatusPolicyViolation, err.Error())
		rm.detach(c)
		return
	}
	log.Info("Seat connected.")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				log.WithError(err).Debug("Read loop ended.")
			}
			break
		}
		var action models.GameAction
		if err := json.Unmarshal(data, &action); err != nil {
			log.WithError(err).Warn("Dropping malformed command.")
			continue
		}
		rm.session.Mu.Lock()
		rm.session.HandlePlayerAction(claims.SeatID, action)
		rm.session.Mu.Unlock()
	}

	if rm.detach(c) {
		rm.session.Mu.Lock()
		rm.session.HandleDisconnect(claims.SeatID)
		rm.session.Mu.Unlock()
	}
	log.Info("Seat disconnected.")
}

// writeLoop drains c.send and keeps the connection alive with pings.
func (s *Server) writeLoop(ctx context.Context, c *client, log *logrus.Entry) {
	ping := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ping.Stop()
		_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				log.Debugf("Write failed for seat %s: %v", c.seatID, err)
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				log.Debugf("Ping failed for seat %s: %v", c.seatID, err)
				return
			}
		}
	}
}
