// ABOUTME: mDNS discovery of streaming receivers
// ABOUTME: Browses the local network and surfaces receivers on a channel
package discovery

import (
	"context"
	"log"

	"github.com/hashicorp/mdns"
)

// serviceType is the mDNS service receivers advertise.
const serviceType = "_aircast._tcp"

// Manager browses for receivers. A sender only browses; advertising is the
// receiver's job.
type Manager struct {
	ctx       context.Context
	cancel    context.CancelFunc
	receivers chan *ReceiverInfo
}

// ReceiverInfo describes a discovered receiver.
type ReceiverInfo struct {
	Name string
	Host string
	Port int
}

// NewManager creates a discovery manager.
func NewManager() *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		ctx:       ctx,
		cancel:    cancel,
		receivers: make(chan *ReceiverInfo, 10),
	}
}

// Browse starts searching for receivers in the background.
func (m *Manager) Browse() {
	go m.browseLoop()
}

// browseLoop repeats short mDNS queries until stopped.
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
				if entry.AddrV4 == nil {
					continue
				}
				receiver := &ReceiverInfo{
					Name: entry.Name,
					Host: entry.AddrV4.String(),
					Port: entry.Port,
				}

				log.Printf("Discovered receiver: %s at %s:%d", receiver.Name, receiver.Host, receiver.Port)

				select {
				case m.receivers <- receiver:
				case <-m.ctx.Done():
					return
				}
			}
		}()

		params := &mdns.QueryParam{
			Service: serviceType,
			Domain:  "local",
			Timeout: 3,
			Entries: entries,
		}

		mdns.Query(params)
		close(entries)
	}
}

// Receivers returns the channel of discovered receivers.
func (m *Manager) Receivers() <-chan *ReceiverInfo {
	return m.receivers
}

// Stop stops browsing.
func (m *Manager) Stop() {
	m.cancel()
}
