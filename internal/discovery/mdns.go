// ABOUTME: mDNS discovery for duplex control endpoints
// ABOUTME: Advertises this engine's control socket and browses for other engines
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service advertised for control endpoints
const ServiceType = "_duplex._tcp"

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	DeviceID    string
	Version     string
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	devices chan *DeviceInfo
}

// DeviceInfo describes a discovered engine
type DeviceInfo struct {
	Name     string
	Host     string
	Port     int
	DeviceID string
	Path     string
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		devices: make(chan *DeviceInfo, 10),
	}
}

// txtRecords returns the TXT records describing the control endpoint
func (m *Manager) txtRecords() []string {
	txt := []string{"path=/control"}
	if m.config.DeviceID != "" {
		txt = append(txt, "id="+m.config.DeviceID)
	}
	if m.config.Version != "" {
		txt = append(txt, "version="+m.config.Version)
	}
	return txt
}

// Advertise advertises the control endpoint via mDNS until Stop
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		m.txtRecords(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Printf("Advertising mDNS service: %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for other engines until Stop
func (m *Manager) Browse() error {
	go m.browseLoop()
	return nil
}

func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)

		go func() {
			for entry := range entries {
				device := deviceFromEntry(entry)
				log.Printf("Discovered engine: %s at %s:%d", device.Name, device.Host, device.Port)

				select {
				case m.devices <- device:
				case <-m.ctx.Done():
					return
				}
			}
		}()

		params := &mdns.QueryParam{
			Service:     ServiceType,
			Domain:      "local",
			Timeout:     3 * time.Second,
			Entries:     entries,
			DisableIPv6: true,
		}

		if err := mdns.Query(params); err != nil {
			log.Printf("mDNS query failed: %v", err)
		}
		close(entries)
	}
}

func deviceFromEntry(entry *mdns.ServiceEntry) *DeviceInfo {
	device := &DeviceInfo{
		Name: entry.Name,
		Port: entry.Port,
		Path: "/control",
	}
	if entry.AddrV4 != nil {
		device.Host = entry.AddrV4.String()
	} else {
		device.Host = entry.Host
	}
	for _, field := range entry.InfoFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "id":
			device.DeviceID = value
		case "path":
			device.Path = value
		}
	}
	return device
}

// Devices returns the channel of discovered engines
func (m *Manager) Devices() <-chan *DeviceInfo {
	return m.devices
}

// Stop stops advertising and browsing
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns non-loopback IPv4 addresses of interfaces that are up
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
