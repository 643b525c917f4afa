package watch

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Poller detects changes by periodically fingerprinting the adapter set.
// It is the portable fallback for platforms without a usable change
// notification API; the poll interval bounds detection latency.
type Poller struct {
	fingerprint FingerprintFunc
	interval    time.Duration

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewPoller creates a poller that checks for changes every interval.
func NewPoller(fingerprint FingerprintFunc, interval time.Duration) *Poller {
	return &Poller{
		fingerprint: fingerprint,
		interval:    interval,
	}
}

func (p *Poller) Arm(onChange func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop != nil {
		return fmt.Errorf("monitor is already armed")
	}

	// Baseline the current state. A failed read is not fatal: the first
	// successful poll will fire a spurious change, which the controller's
	// re-evaluation treats as a no-op.
	baseline, err := p.fingerprint()
	if err != nil {
		logrus.WithError(err).Debug("Failed to baseline adapter fingerprint")
	}

	p.stop = make(chan struct{})
	p.wg.Add(1)
	go p.loop(onChange, p.stop, baseline)
	return nil
}

func (p *Poller) loop(onChange func(), stop chan struct{}, last string) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			fp, err := p.fingerprint()
			if err != nil {
				logrus.WithError(err).Debug("Failed to fingerprint adapters")
				continue
			}
			if fp == last {
				continue
			}

			onChange()

			// Re-read after the callback so a drift that was just
			// corrected does not trigger a second wake-up next tick.
			if fp, err = p.fingerprint(); err == nil {
				last = fp
			}
		}
	}
}

// Disarm stops polling and waits out any in-flight callback.
func (p *Poller) Disarm() {
	p.mu.Lock()
	stop := p.stop
	p.stop = nil
	p.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	p.wg.Wait()
}
