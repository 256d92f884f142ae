package session

import (
	"sync"
	"time"
)

// minPollInterval is the shortest accepted poll period.
var minPollInterval = 300 * time.Millisecond

// Poller fires tick at a fixed interval until stopped. Polling is only a
// backup: the unit normally reports switch changes on its own.
type Poller struct {
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

// StartPoller starts ticking immediately; the first tick arrives after one interval.
func StartPoller(interval time.Duration, tick func()) *Poller {
	if interval < minPollInterval {
		interval = minPollInterval
	}
	p := &Poller{
		interval: interval,
		stopChan: make(chan struct{}),
	}
	go p.run(tick)
	return p
}

func (p *Poller) run(tick func()) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			select {
			case <-p.stopChan:
				return
			default:
				tick()
			}
		}
	}
}

func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Stop ends the cycle. It is safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
}
