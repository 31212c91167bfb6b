package rtmp

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Request is the parsed session intent. It is created empty at session
// start and finalized by ConnectApp/IdentifyClient; only the session
// driver mutates it afterwards (vhost alias rewriting).
type Request struct {
	TcUrl    string
	Schema   string
	Host     string
	Vhost    string
	Port     int
	App      string
	Stream   string
	Param    string
	PageUrl  string
	SwfUrl   string
	Duration float64 // seconds, 0 = unbounded
	ClientIP string
	Args     map[string]interface{}
}

// Strip trims whitespace from the fields SRS trims before dispatch.
func (r *Request) Strip() {
	r.App = strings.TrimSpace(r.App)
	r.Stream = strings.TrimSpace(r.Stream)
	r.Vhost = strings.TrimSpace(r.Vhost)
}

// Valid reports whether connect_app produced a usable request: schema,
// vhost, app non-empty, port>0.
func (r *Request) Valid() bool {
	return r.Schema != "" && r.Vhost != "" && r.App != "" && r.Port > 0
}

// ParseTcUrl extracts schema/host/port/app/vhost from a tcUrl of the form
// rtmp://host[:port]/app[?vhost=x]. Defaults the port to 1935 and the
// vhost to the host when no explicit vhost param is present.
func ParseTcUrl(tcUrl string) (*Request, error) {
	u, err := url.Parse(tcUrl)
	if err != nil {
		return nil, fmt.Errorf("parse tcUrl %q: %w", tcUrl, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("malformed tcUrl %q", tcUrl)
	}

	host := u.Hostname()
	port := DefaultRtmpPort
	if p := u.Port(); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil {
			port = parsed
		}
	}

	app := strings.TrimPrefix(u.Path, "/")
	vhost := u.Query().Get("vhost")
	if vhost == "" {
		vhost = host
	}

	return &Request{
		TcUrl:  tcUrl,
		Schema: u.Scheme,
		Host:   host,
		Vhost:  vhost,
		Port:   port,
		App:    app,
	}, nil
}

// ClientIPOf strips the port from a net.Conn RemoteAddr string, so
// Request.ClientIP holds a bare address the security policy and webhook
// payloads can match on.
func ClientIPOf(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// RepairHostPort normalizes a bare host or host:port into host:port,
// defaulting the port to 1935, for edge origin entries.
func RepairHostPort(hostport string) string {
	if hostport == "" {
		return hostport
	}
	if strings.Contains(hostport, ":") {
		return hostport
	}
	return fmt.Sprintf("%s:%d", hostport, DefaultRtmpPort)
}
