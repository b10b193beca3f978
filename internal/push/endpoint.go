package push

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const socketPath = "/socket.io/"

// Endpoint derives the push URL from the backend REST base URL. The scheme
// follows the base (https → wss, otherwise ws) and the host is the base host
// name with port replacing whatever port the REST API uses. A port of zero
// keeps the base port.
func Endpoint(base *url.URL, port int) (*url.URL, error) {
	if base == nil {
		return nil, fmt.Errorf("base url is nil")
	}
	host := base.Hostname()
	if host == "" {
		return nil, fmt.Errorf("base url %q has no host", base.String())
	}
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("invalid push port %d", port)
	}

	scheme := "ws"
	if strings.EqualFold(base.Scheme, "https") {
		scheme = "wss"
	}

	hostport := host
	switch {
	case port > 0:
		hostport = net.JoinHostPort(host, strconv.Itoa(port))
	case base.Port() != "":
		hostport = net.JoinHostPort(host, base.Port())
	case strings.Contains(host, ":"):
		hostport = "[" + host + "]"
	}

	q := url.Values{}
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	return &url.URL{
		Scheme:   scheme,
		Host:     hostport,
		Path:     socketPath,
		RawQuery: q.Encode(),
	}, nil
}
