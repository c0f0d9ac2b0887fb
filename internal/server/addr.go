package server

import (
	"net"
)

const fallbackIP = "127.0.0.1"

// LocalIP returns the first IPv4 address bound to an up, non-loopback
// interface, or 127.0.0.1 when there is none.
func LocalIP() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return fallbackIP
	}
	for _, ifi := range ifaces {
		if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := ifi.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			var ip net.IP
			switch v := a.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
				continue
			}
			if v4 := ip.To4(); v4 != nil {
				return v4.String()
			}
		}
	}
	return fallbackIP
}
