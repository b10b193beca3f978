// Package push maintains the Socket.IO channel to the backend.
//
// The backend speaks Socket.IO v5 on top of Engine.IO v4. Only the websocket
// transport is used, so the client dials
//
//	ws://<host>:<port>/socket.io/?EIO=4&transport=websocket
//
// directly and never long-polls. After the Engine.IO open packet the client
// joins the default namespace and then reads packets until the transport
// fails or Close is called:
//
//	2            ping, answered with 3
//	1            server close
//	42[...]      event: ["name", payload]
//	41           namespace disconnect
//	44{...}      namespace connect error
//
// Every inbound event is delivered on Events() as an Event. Transport
// failures produce a disconnect (or error) event followed by a redial with
// exponential backoff; a connect event marks each successful handshake. The
// channel is closed once Close returns.
package push
