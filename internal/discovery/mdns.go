// Package discovery advertises the whiteboard server on the local network
// over mDNS, so clients on the same LAN can find it without knowing its
// address.
package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD service the server registers under.
const ServiceType = "_whiteboard._tcp"

// Advertiser keeps an mDNS responder running until Close.
type Advertiser struct {
	server *mdns.Server
}

// Advertise starts answering mDNS queries for this host. An empty instance
// uses the OS hostname.
func Advertise(instance string, port int) (*Advertiser, error) {
	service, err := newService(instance, port, []net.IP{firstIPv4()})
	if err != nil {
		return nil, err
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("starting mDNS server: %w", err)
	}
	return &Advertiser{server: server}, nil
}

// Close stops the responder.
func (a *Advertiser) Close() error {
	return a.server.Shutdown()
}

func newService(instance string, port int, ips []net.IP) (*mdns.MDNSService, error) {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("could not get hostname: %w", err)
		}
		instance = host
	}

	service, err := mdns.NewMDNSService(
		instance,
		ServiceType,
		"", // .local
		"", // OS hostname
		port,
		ips,
		[]string{"whiteboard", "path=/ws"},
	)
	if err != nil {
		return nil, fmt.Errorf("creating mDNS service: %w", err)
	}
	return service, nil
}

// Peer is one server found by Browse.
type Peer struct {
	Instance string
	Addr     string // host:port
}

// Browse queries the LAN for whiteboard servers until ctx is done or
// timeout passes.
func Browse(ctx context.Context, timeout time.Duration) ([]Peer, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	var peers []Peer
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			peers = append(peers, Peer{
				Instance: e.Name,
				Addr:     net.JoinHostPort(e.AddrV4.String(), fmt.Sprint(e.Port)),
			})
		}
	}()

	err := mdns.QueryContext(ctx, params)
	close(entries)
	<-collected
	if err != nil {
		return peers, fmt.Errorf("mDNS lookup: %w", err)
	}
	return peers, nil
}

// firstIPv4 returns the first non-loopback IPv4 address, or 127.0.0.1.
func firstIPv4() net.IP {
	ifaces, _ := net.Interfaces()
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.To4()
			}
		}
	}
	return net.IPv4(127, 0, 0, 1)
}
