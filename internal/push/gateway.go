package push

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/coladapo/wealthincome/internal/infrastructure"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Gateway bridges JetStream trading events to websocket subscribers.
// Clients subscribe to subjects like "paper.signal.*" or "paper.fill.AAPL";
// the NATS subscription for a subject lives as long as at least one client
// wants it.
type Gateway struct {
	logger   *zap.Logger
	js       nats.JetStreamContext
	mu       sync.RWMutex
	clients  map[*client]bool
	topics   map[string]map[*client]bool
	natsSubs map[string]*nats.Subscription
}

func NewGateway(js nats.JetStreamContext, logger *zap.Logger) *Gateway {
	return &Gateway{
		logger:   logger,
		js:       js,
		clients:  make(map[*client]bool),
		topics:   make(map[string]map[*client]bool),
		natsSubs: make(map[string]*nats.Subscription),
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("failed to upgrade websocket", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 256)}

	g.mu.Lock()
	g.clients[c] = true
	g.mu.Unlock()
	infrastructure.WSConnections.Inc()

	go g.writePump(c)
	g.readPump(c)
}

func (g *Gateway) readPump(c *client) {
	defer func() {
		g.dropClient(c)
		infrastructure.WSConnections.Dec()
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var req struct {
			Action string `json:"action"` // "subscribe", "unsubscribe"
			Topic  string `json:"topic"`
		}
		if err := json.Unmarshal(message, &req); err != nil {
			continue
		}

		switch req.Action {
		case "subscribe":
			g.subscribe(c, req.Topic)
		case "unsubscribe":
			g.unsubscribe(c, req.Topic)
		}
	}
}

func (g *Gateway) writePump(c *client) {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

func (g *Gateway) subscribe(c *client, topic string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.topics[topic] == nil {
		g.topics[topic] = make(map[*client]bool)
		if err := g.bindNATS(topic); err != nil {
			g.logger.Error("failed to subscribe to NATS", zap.String("topic", topic), zap.Error(err))
		}
	}
	g.topics[topic][c] = true
	g.logger.Info("client subscribed", zap.String("topic", topic))
}

func (g *Gateway) unsubscribe(c *client, topic string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dropFromTopicLocked(c, topic)
}

func (g *Gateway) dropClient(c *client) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.clients[c]; !ok {
		return
	}
	delete(g.clients, c)
	for topic := range g.topics {
		g.dropFromTopicLocked(c, topic)
	}
	// No topic references the client anymore, so nothing can send on the
	// channel; closing it stops the write pump.
	close(c.send)
}

// dropFromTopicLocked removes the client from a topic and tears down the
// NATS subscription when no subscribers remain. Caller must hold g.mu.
func (g *Gateway) dropFromTopicLocked(c *client, topic string) {
	clients, ok := g.topics[topic]
	if !ok {
		return
	}
	delete(clients, c)
	if len(clients) > 0 {
		return
	}
	if sub, ok := g.natsSubs[topic]; ok {
		sub.Unsubscribe()
		delete(g.natsSubs, topic)
	}
	delete(g.topics, topic)
	g.logger.Info("topic released", zap.String("topic", topic))
}

func (g *Gateway) bindNATS(topic string) error {
	sub, err := g.js.Subscribe(topic, func(msg *nats.Msg) {
		g.mu.RLock()
		for c := range g.topics[topic] {
			select {
			case c.send <- msg.Data:
			default:
				// Slow consumer: drop rather than block the NATS callback.
			}
		}
		g.mu.RUnlock()
		msg.Ack()
	}, nats.ManualAck())
	if err != nil {
		return err
	}
	g.natsSubs[topic] = sub
	return nil
}
