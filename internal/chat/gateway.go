package chat

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"doctor-portal-server/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// wsConn wraps a gorilla connection so it satisfies Conn. Gorilla allows only
// one concurrent writer, and the registry fan-out can hit the same connection
// from several handlers, so writes are serialized with a mutex.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// Gateway terminates WebSocket connections and translates inbound event
// envelopes into negotiation-service calls. The userId is taken from the
// handshake query string and is not verified against the bearer token used by
// the REST routes; the socket layer trusts the claimed identity.
type Gateway struct {
	service  *Service
	registry *Registry
	log      zerolog.Logger
}

// NewGateway creates a Gateway over the given service and registry.
func NewGateway(service *Service, registry *Registry, log zerolog.Logger) *Gateway {
	return &Gateway{service: service, registry: registry, log: log}
}

// Handle upgrades the request and runs the connection's read loop. Events are
// processed in arrival order; a failed operation produces a requestError ack
// on this connection and the event is dropped.
func (g *Gateway) Handle(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "userId query parameter is required"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := &wsConn{conn: ws}
	if displaced := g.registry.Connect(userID, conn); displaced != nil {
		displaced.Close()
	}
	g.log.Info().Str("userId", userID).Msg("socket connected")

	defer func() {
		g.registry.Disconnect(userID, conn)
		ws.Close()
		g.log.Info().Str("userId", userID).Msg("socket disconnected")
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var envelope Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			g.log.Debug().Err(err).Str("userId", userID).Msg("malformed socket frame")
			continue
		}

		if err := g.dispatch(envelope); err != nil {
			g.log.Warn().Err(err).
				Str("userId", userID).
				Str("event", envelope.Event).
				Msg("socket event failed")
			conn.WriteJSON(OutEnvelope{
				Event: EventRequestError,
				Data:  RequestErrorPayload{Event: envelope.Event, Error: err.Error()},
			})
		}
	}
}

// dispatch routes one inbound envelope to the negotiation service.
func (g *Gateway) dispatch(envelope Envelope) error {
	switch envelope.Event {
	case EventSendMessage:
		var p SendMessagePayload
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return ValidationError("invalid sendMessage payload: %v", err)
		}
		_, err := g.service.SendText(p.SenderID, p.ReceiverID, p.Message)
		return err

	case EventEditMessage:
		var p EditMessagePayload
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return ValidationError("invalid editMessage payload: %v", err)
		}
		_, err := g.service.Edit(p.MessageID, p.NewContent, p.SenderID)
		return err

	case EventDeleteMessage:
		var p DeleteMessagePayload
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return ValidationError("invalid deleteMessage payload: %v", err)
		}
		return g.service.Remove(p.MessageID, p.SenderID)

	case EventUpdateRequest:
		var p UpdateRequestPayload
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return ValidationError("invalid updateAppointmentRequest payload: %v", err)
		}
		// The decision is made by the request's receiver, who is p.ReceiverID
		// in the mirrored payload.
		_, _, err := g.service.Respond(p.MessageID, models.RequestStatus(p.Status), p.ReceiverID)
		return err

	case EventCounterRequest:
		var p CounterRequestPayload
		if err := json.Unmarshal(envelope.Data, &p); err != nil {
			return ValidationError("invalid counterAppointmentRequest payload: %v", err)
		}
		_, _, err := g.service.Counter(p.OriginalMessageID, p.NewDate, p.SenderID, p.ReceiverID)
		return err

	default:
		return ValidationError("unknown event %q", envelope.Event)
	}
}
