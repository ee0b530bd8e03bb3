package gateway

import (
	"io"
	"net/http"
	"time"

	"github.com/gobwas/ws"
	"github.com/google/uuid"
	"github.com/yanun0323/logs"

	"cryptoflow/internal/hub"
	"cryptoflow/internal/model"
)

const _maxMessageSize = 64 * 1024

// Gateway upgrades HTTP requests to subscriber connections and applies
// client commands to the hub.
type Gateway struct {
	hub *hub.Hub
}

func New(h *hub.Hub) *Gateway {
	return &Gateway{hub: h}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	netConn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		logs.Warnf("gateway: upgrade %s, err: %+v", r.RemoteAddr, err)
		return
	}

	conn := NewConn(netConn)
	id := uuid.NewString()
	if _, err := g.hub.Join(id, conn); err != nil {
		logs.Warnf("gateway: join %s, err: %+v", conn.RemoteAddr(), err)
		_ = conn.Close()
		return
	}

	go g.readLoop(id, conn)
}

func (g *Gateway) readLoop(id string, conn *Conn) {
	defer g.hub.Leave(id)

	for {
		header, err := ws.ReadHeader(conn.conn)
		if err != nil {
			return
		}
		if header.Length > _maxMessageSize {
			logs.Warnf("gateway: %s sent %d bytes, closing", id, header.Length)
			return
		}
		if !header.Fin {
			logs.Warnf("gateway: %s sent a fragmented message, closing", id)
			return
		}

		payload := make([]byte, header.Length)
		if _, err := io.ReadFull(conn.conn, payload); err != nil {
			return
		}
		if header.Masked {
			ws.Cipher(payload, header.Mask, 0)
		}

		switch header.OpCode {
		case ws.OpClose:
			return
		case ws.OpPing:
			g.hub.Ping(id)
			if err := conn.writeControl(ws.OpPong, payload); err != nil {
				return
			}
		case ws.OpText:
			g.Handle(id, payload)
		}
	}
}

// Handle applies one client command for subscriber id. Malformed commands
// are answered with an error message and never close the connection.
func (g *Gateway) Handle(id string, raw []byte) {
	cmd, err := decodeCommand(raw)
	if err != nil {
		g.reply(id, model.MsgError, errorMessage{Message: "invalid command"})
		return
	}

	switch cmd.Type {
	case CmdSubscribe:
		req, err := decodeSubscription(cmd)
		if err != nil {
			g.reply(id, model.MsgError, errorMessage{Message: "invalid subscription"})
			return
		}
		topics, err := SubscribeTopics(req)
		if err != nil {
			g.reply(id, model.MsgError, errorMessage{Message: "unknown subscription type " + req.Type})
			return
		}
		g.hub.Subscribe(id, topics...)
		logs.Infof("gateway: %s subscribed to %s", id, req.Type)
		g.reply(id, model.MsgSubscriptionConfirmed, confirmation{Type: req.Type, Symbols: req.Symbols, Timestamp: time.Now()})

	case CmdUnsubscribe:
		req, err := decodeSubscription(cmd)
		if err != nil {
			g.reply(id, model.MsgError, errorMessage{Message: "invalid subscription"})
			return
		}
		topics, err := UnsubscribeTopics(req)
		if err != nil {
			g.reply(id, model.MsgError, errorMessage{Message: "unknown subscription type " + req.Type})
			return
		}
		g.hub.Unsubscribe(id, topics...)
		logs.Infof("gateway: %s unsubscribed from %s", id, req.Type)
		g.reply(id, model.MsgUnsubscriptionConfirmed, confirmation{Type: req.Type, Symbols: req.Symbols, Timestamp: time.Now()})

	case CmdPing:
		if g.hub.Ping(id) {
			g.reply(id, model.MsgPong, pong{Timestamp: time.Now().UnixMilli()})
		}

	case CmdSelectAsset:
		g.reply(id, model.MsgAssetSelected, assetSelected{Asset: decodeAsset(cmd), Timestamp: time.Now()})

	default:
		g.reply(id, model.MsgError, errorMessage{Message: "unknown command " + cmd.Type})
	}
}

func (g *Gateway) reply(id, msgType string, data any) {
	if err := g.hub.Send(id, msgType, data); err != nil {
		logs.Warnf("gateway: reply %s to %s, err: %+v", msgType, id, err)
	}
}
