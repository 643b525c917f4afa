//go:build linux

package watch

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
)

// netlinkMonitor subscribes to rtnetlink link and address notifications,
// which cover adapters appearing, disappearing and re-addressing. Edits to
// /etc/resolv.conf do not generate netlink traffic, so a slower
// fingerprint poll runs alongside the subscription.
type netlinkMonitor struct {
	fingerprint FingerprintFunc
	interval    time.Duration
	settle      time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// NewSystemMonitor returns the Monitor for the running platform. interval
// is the fallback poll period; settle is how long to wait after a netlink
// event before firing, so bursts coalesce into one re-evaluation.
func NewSystemMonitor(fingerprint FingerprintFunc, interval, settle time.Duration) Monitor {
	return &netlinkMonitor{
		fingerprint: fingerprint,
		interval:    interval,
		settle:      settle,
	}
}

func (m *netlinkMonitor) Arm(onChange func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stop != nil {
		return fmt.Errorf("monitor is already armed")
	}

	linkCh := make(chan netlink.LinkUpdate, 64)
	addrCh := make(chan netlink.AddrUpdate, 64)
	done := make(chan struct{})

	if err := netlink.LinkSubscribe(linkCh, done); err != nil {
		return fmt.Errorf("subscribe to link updates: %w", err)
	}
	if err := netlink.AddrSubscribe(addrCh, done); err != nil {
		close(done)
		return fmt.Errorf("subscribe to address updates: %w", err)
	}

	baseline, err := m.fingerprint()
	if err != nil {
		logrus.WithError(err).Debug("Failed to baseline adapter fingerprint")
	}

	m.stop = make(chan struct{})
	m.done = done
	m.wg.Add(1)
	go m.loop(onChange, m.stop, linkCh, addrCh, baseline)
	return nil
}

func (m *netlinkMonitor) loop(onChange func(), stop chan struct{}, linkCh chan netlink.LinkUpdate, addrCh chan netlink.AddrUpdate, last string) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// settleTimer is armed on the first netlink event of a burst and
	// delivers one callback once the burst has quieted down.
	settleTimer := time.NewTimer(m.settle)
	if !settleTimer.Stop() {
		<-settleTimer.C
	}
	defer settleTimer.Stop()
	pending := false

	schedule := func() {
		if pending {
			return
		}
		pending = true
		settleTimer.Reset(m.settle)
	}

	fire := func() {
		pending = false
		onChange()
		if fp, err := m.fingerprint(); err == nil {
			last = fp
		}
	}

	for {
		select {
		case <-stop:
			return
		case <-linkCh:
			schedule()
		case <-addrCh:
			schedule()
		case <-settleTimer.C:
			fire()
		case <-ticker.C:
			if pending {
				continue
			}
			fp, err := m.fingerprint()
			if err != nil {
				logrus.WithError(err).Debug("Failed to fingerprint adapters")
				continue
			}
			if fp != last {
				fire()
			}
		}
	}
}

// Disarm cancels the netlink subscriptions and waits out any in-flight
// callback before returning.
func (m *netlinkMonitor) Disarm() {
	m.mu.Lock()
	stop, done := m.stop, m.done
	m.stop, m.done = nil, nil
	m.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	close(done)
	m.wg.Wait()
}
