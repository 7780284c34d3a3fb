package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restqr/kds"
	"github.com/yeremiapane/restqr/models"
	"github.com/yeremiapane/restqr/services"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// kitchen displays are served from other origins on the local network
	CheckOrigin: func(r *http.Request) bool { return true },
}

type KDSController struct {
	hub    *kds.Hub
	orders *services.OrderService
	log    logrus.FieldLogger
}

func NewKDSController(hub *kds.Hub, orders *services.OrderService, log logrus.FieldLogger) *KDSController {
	return &KDSController{hub: hub, orders: orders, log: log}
}

// KDSHandler -> GET /kds/ws
//
// The first frame is a pending_snapshot with the current pending orders;
// new_order and order_update frames follow as they happen.
func (kc *KDSController) KDSHandler(c *gin.Context) {
	role := c.GetString("role")
	if role == "" {
		role = "kitchen"
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		kc.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	// subscribe before the snapshot query so nothing committed in between is lost
	sub := kc.hub.Subscribe(role)

	pending, err := kc.orders.ListByStatus(c.Request.Context(), models.OrderStatusPending)
	if err != nil {
		kc.log.WithError(err).Error("failed to load pending orders for snapshot")
		pending = []models.Order{}
	}
	if err := kc.hub.Send(sub, kds.EventPendingSnapshot, pending); err != nil {
		kc.log.WithError(err).Error("failed to encode pending snapshot")
	}

	done := make(chan struct{})
	go kc.readPump(ws, done)
	kc.writePump(ws, sub, done)

	kc.hub.Unsubscribe(sub)
	ws.Close()
}

// readPump only services control frames; displays never send data.
func (kc *KDSController) readPump(ws *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	ws.SetReadLimit(512)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (kc *KDSController) writePump(ws *websocket.Conn, sub *kds.Subscriber, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case frame, ok := <-sub.Messages():
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				kc.log.WithError(err).WithField("role", sub.Role).Debug("kitchen display write failed")
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
