package net

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service canvasboard servers announce.
const ServiceType = "_canvasboard._tcp"

// Service is a document service found on the LAN.
type Service struct {
	Instance string
	Host     string
	Addr     string
	Port     int
	Info     []string
}

// BaseURL is the HTTP root of the service.
func (s Service) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", s.Addr, s.Port)
}

// Advertise announces a document service on port until the returned
// server is shut down.
func Advertise(port int, info ...string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}
	if len(info) == 0 {
		info = []string{"CanvasBoard"}
	}

	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Browse queries the LAN for document services for up to timeout and
// calls found for each IPv4 answer. found runs on one goroutine.
func Browse(ctx context.Context, timeout time.Duration, found func(Service)) error {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return ctx.Err()
	}

	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		seen := make(map[string]bool)
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			svc := Service{
				Instance: instanceName(e.Name),
				Host:     e.Host,
				Addr:     e.AddrV4.String(),
				Port:     e.Port,
				Info:     e.InfoFields,
			}
			key := svc.BaseURL()
			if seen[key] {
				continue
			}
			seen[key] = true
			found(svc)
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	<-done
	return err
}

// instanceName strips the service suffix from an mDNS instance name.
func instanceName(name string) string {
	if i := strings.Index(name, "."+ServiceType); i >= 0 {
		return name[:i]
	}
	return strings.TrimSuffix(name, ".")
}
