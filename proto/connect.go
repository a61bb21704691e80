package proto

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"path"
	"runtime"
	"strings"
)

const defaultPulseAudioTCPPort = "4713"

const cookieLength = 256

// Dial connects to the first reachable server of a server string.
//
// For the server string format see
// https://www.freedesktop.org/wiki/Software/PulseAudio/Documentation/User/ServerStrings/
// If the server string is empty, the environment variable PULSE_SERVER is used,
// then the platform default socket.
func Dial(server string) (net.Conn, error) {
	var sstr []serverString
	if server != "" {
		sstr = parseServerString(server)
	} else if serverRaw, ok := os.LookupEnv("PULSE_SERVER"); ok {
		sstr = parseServerString(serverRaw)
	} else {
		sstr = defaultServerStrings()
	}
	if len(sstr) == 0 {
		return nil, errors.New("pulseaudio: no valid server")
	}

	localname, err := os.Hostname()
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, s := range sstr {
		if s.localname != "" && localname != s.localname {
			continue
		}
		conn, err := net.Dial(s.protocol, s.addr)
		if err != nil {
			lastErr = err
			continue
		}
		return conn, nil
	}
	if lastErr == nil {
		lastErr = errors.New("pulseaudio: no server for this host")
	}
	return nil, lastErr
}

// ReadCookie reads the authentication cookie from PULSE_COOKIE or ~/.config/pulse/cookie.
func ReadCookie() ([]byte, error) {
	cookiePath := os.Getenv("HOME") + "/.config/pulse/cookie"
	if path, ok := os.LookupEnv("PULSE_COOKIE"); ok {
		cookiePath = path
	}
	cookie, err := os.ReadFile(cookiePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		// If the server is launched with auth-anonymous=1,
		// any 256 bytes cookie will be accepted.
		return make([]byte, cookieLength), nil
	}
	return cookie, nil
}

// Authenticate sends the cookie and negotiates the protocol version.
func (c *Client) Authenticate(cookie []byte) error {
	var reply AuthReply
	err := c.Request(&Auth{Version: c.Version(), Cookie: cookie}, &reply)
	if err != nil {
		return fmt.Errorf("pulseaudio: authentication failed: %w", err)
	}
	c.SetVersion(reply.Version)
	return nil
}

type serverString struct {
	localname string
	protocol  string
	addr      string
}

func parseServerString(str string) []serverString {
	var result []serverString
	for _, s := range strings.Fields(str) {
		server, ok := parseOneServerString(s)
		if !ok {
			continue
		}
		result = append(result, server)
	}
	return result
}

func parseOneServerString(s string) (serverString, bool) {
	var server serverString
	if s[0] == '{' {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return serverString{}, false
		}
		server.localname = s[1:end]
		s = s[end+1:]
	}
	switch {
	case len(s) == 0:
		return serverString{}, false
	case s[0] == '/':
		server.protocol = "unix"
		server.addr = s
	case strings.HasPrefix(s, "unix:"):
		server.protocol = "unix"
		server.addr = s[5:]
	case strings.HasPrefix(s, "tcp6:"):
		server.protocol = "tcp6"
		server.addr = withDefaultPort(s[5:])
	case strings.HasPrefix(s, "tcp4:"):
		server.protocol = "tcp4"
		server.addr = withDefaultPort(s[5:])
	case strings.HasPrefix(s, "tcp:"):
		server.protocol = "tcp"
		server.addr = withDefaultPort(s[4:])
	default:
		server.protocol = "tcp"
		server.addr = withDefaultPort(s)
	}
	return server, true
}

func withDefaultPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, defaultPulseAudioTCPPort)
}

func defaultServerStrings() []serverString {
	switch runtime.GOOS {
	case "linux":
		dir, ok := os.LookupEnv("XDG_RUNTIME_DIR")
		if !ok {
			dir = fmt.Sprint("/run/user/", os.Getuid())
		}
		return []serverString{{protocol: "unix", addr: path.Join(dir, "pulse/native")}}
	case "darwin":
		u, err := user.Current()
		if err != nil {
			return nil
		}
		h, err := os.Hostname()
		if err != nil {
			return nil
		}
		return []serverString{{protocol: "unix",
			addr: fmt.Sprintf("%s/.config/pulse/%s-runtime/native", u.HomeDir, h),
		}}
	}
	return nil
}
