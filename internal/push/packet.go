package push

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Engine.IO packet types.
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
	eioNoop    = '6'
)

// Socket.IO packet types, carried inside Engine.IO messages.
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioConnectError = '4'
)

var errMalformedPacket = errors.New("malformed packet")

// openPayload is the body of the Engine.IO open packet.
type openPayload struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

// readDeadline is how long the client waits for any frame before treating
// the transport as dead. The server pings every PingInterval and expects a
// pong within PingTimeout.
func (o openPayload) readDeadline() time.Duration {
	interval := time.Duration(o.PingInterval) * time.Millisecond
	timeout := time.Duration(o.PingTimeout) * time.Millisecond
	if interval <= 0 {
		interval = 25 * time.Second
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return interval + timeout
}

func parseOpen(frame string) (openPayload, error) {
	if frame == "" || frame[0] != eioOpen {
		return openPayload{}, fmt.Errorf("%w: expected open, got %q", errMalformedPacket, truncate(frame))
	}
	var open openPayload
	if err := json.Unmarshal([]byte(frame[1:]), &open); err != nil {
		return openPayload{}, fmt.Errorf("decode open packet: %w", err)
	}
	return open, nil
}

// socketPacket is a decoded Socket.IO packet for the default namespace.
type socketPacket struct {
	Type    byte
	Name    string
	Payload json.RawMessage
}

// parseSocketPacket decodes the body of an Engine.IO message. Packets for
// namespaces other than "/" are reported with ok=false.
func parseSocketPacket(body string) (socketPacket, bool, error) {
	if body == "" {
		return socketPacket{}, false, errMalformedPacket
	}
	pkt := socketPacket{Type: body[0]}
	rest := body[1:]

	// Binary attachment counts are not supported; the backend sends JSON only.
	if strings.HasPrefix(rest, "/") {
		ns := rest
		if i := strings.IndexByte(rest, ','); i >= 0 {
			ns, rest = rest[:i], rest[i+1:]
		} else {
			rest = ""
		}
		if ns != "/" {
			return socketPacket{}, false, nil
		}
	}
	rest = strings.TrimLeft(rest, "0123456789")

	switch pkt.Type {
	case sioConnect, sioDisconnect:
		if rest != "" {
			pkt.Payload = json.RawMessage(rest)
		}
	case sioConnectError:
		pkt.Payload = json.RawMessage(rest)
	case sioEvent:
		var parts []json.RawMessage
		if err := json.Unmarshal([]byte(rest), &parts); err != nil {
			return socketPacket{}, false, fmt.Errorf("decode event: %w", err)
		}
		if len(parts) == 0 {
			return socketPacket{}, false, fmt.Errorf("%w: event without name", errMalformedPacket)
		}
		if err := json.Unmarshal(parts[0], &pkt.Name); err != nil {
			return socketPacket{}, false, fmt.Errorf("decode event name: %w", err)
		}
		if len(parts) > 1 {
			pkt.Payload = parts[1]
		}
	default:
		return socketPacket{}, false, fmt.Errorf("%w: socket type %q", errMalformedPacket, pkt.Type)
	}
	return pkt, true, nil
}

func encodeEvent(name string, payload any) ([]byte, error) {
	parts := []any{name}
	if payload != nil {
		parts = append(parts, payload)
	}
	body, err := json.Marshal(parts)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", name, err)
	}
	return append([]byte{eioMessage, sioEvent}, body...), nil
}

// connectErrorMessage extracts the message from a 44 packet payload.
func connectErrorMessage(payload json.RawMessage) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(payload))
}

func truncate(s string) string {
	const limit = 64
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
