package media

import (
	"sync"
	"time"

	"github.com/tailored-agentic-units/audioplayer/observable"
)

// Player property names.
const (
	PropertyCurrentTime = "currentTime"
	PropertyRate        = "rate"
	PropertyCurrentItem = "currentItem"
)

// TimeObserver identifies a periodic time observer added to a Player.
type TimeObserver uint64

type timeObserver struct {
	interval time.Duration
	next     time.Duration
	fn       func(time.Duration)
}

// Player drives playback of one Item at a time on an internal clock. It
// publishes status, currentTime, rate and currentItem.
//
// The player's status mirrors its current item: ready once the item is ready,
// failed when the item fails.
type Player struct {
	observable.Base

	tick time.Duration

	mu                      sync.Mutex
	status                  Status
	rate                    float64
	current                 time.Duration
	item                    *Item
	waitsToMinimizeStalling bool
	allowsExternalPlayback  bool
	timeObservers           map[TimeObserver]*timeObserver
	nextObserver            TimeObserver
	endHandlers             []func(*Item)
	closed                  bool

	stop chan struct{}
	done chan struct{}
}

// NewPlayer creates a player and starts its clock. Call Close to stop it.
func NewPlayer(n *observable.Notifier, cfg Config) *Player {
	tick := time.Duration(cfg.Tick)
	if tick <= 0 {
		tick = defaultTick
	}

	p := &Player{
		Base:                    observable.NewBase(n),
		tick:                    tick,
		waitsToMinimizeStalling: true,
		timeObservers:           make(map[TimeObserver]*timeObserver),
		stop:                    make(chan struct{}),
		done:                    make(chan struct{}),
	}

	go p.run()

	return p
}

// Properties implements observable.Describer.
func (p *Player) Properties() []string {
	return []string{PropertyStatus, PropertyCurrentTime, PropertyRate, PropertyCurrentItem}
}

func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Player) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

func (p *Player) CurrentTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Player) CurrentItem() *Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.item
}

func (p *Player) AutomaticallyWaitsToMinimizeStalling() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitsToMinimizeStalling
}

// SetAutomaticallyWaitsToMinimizeStalling controls whether the clock holds
// until the item reports it is likely to keep up. When false the clock only
// holds while nothing is buffered ahead of the playhead.
func (p *Player) SetAutomaticallyWaitsToMinimizeStalling(wait bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waitsToMinimizeStalling = wait
}

func (p *Player) AllowsExternalPlayback() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allowsExternalPlayback
}

func (p *Player) SetAllowsExternalPlayback(allow bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowsExternalPlayback = allow
}

// ReplaceCurrentItem swaps in item and rewinds to zero. A nil item empties
// the player.
func (p *Player) ReplaceCurrentItem(item *Item) {
	p.mu.Lock()
	p.item = item
	p.current = 0
	for _, obs := range p.timeObservers {
		obs.next = obs.interval
	}
	p.mu.Unlock()

	p.publish(PropertyCurrentItem, PropertyCurrentTime)
	p.syncStatus()
}

// Play sets the rate to 1.
func (p *Player) Play() {
	p.SetRate(1)
}

// Pause sets the rate to 0.
func (p *Player) Pause() {
	p.SetRate(0)
}

// SetRate changes the playback rate. Negative rates are clamped to zero.
func (p *Player) SetRate(rate float64) {
	rate = max(rate, 0)

	p.mu.Lock()
	if p.closed || p.rate == rate {
		p.mu.Unlock()
		return
	}
	p.rate = rate
	p.mu.Unlock()

	p.publish(PropertyRate)
}

// Seek moves the playhead, clamped to the item duration when known.
func (p *Player) Seek(to time.Duration) {
	p.mu.Lock()
	to = max(to, 0)
	if p.item != nil {
		if d := p.item.Duration(); d > 0 {
			to = min(to, d)
		}
	}
	p.current = to
	for _, obs := range p.timeObservers {
		obs.next = nextBoundary(to, obs.interval)
	}
	p.mu.Unlock()

	p.publish(PropertyCurrentTime)
}

// AddPeriodicTimeObserver calls fn with the playhead every time it crosses a
// multiple of interval during playback.
func (p *Player) AddPeriodicTimeObserver(interval time.Duration, fn func(time.Duration)) TimeObserver {
	if interval <= 0 {
		interval = p.tick
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextObserver++
	p.timeObservers[p.nextObserver] = &timeObserver{
		interval: interval,
		next:     nextBoundary(p.current, interval),
		fn:       fn,
	}
	return p.nextObserver
}

// RemoveTimeObserver removes an observer added by AddPeriodicTimeObserver.
// Unknown tokens are ignored.
func (p *Player) RemoveTimeObserver(token TimeObserver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.timeObservers, token)
}

// OnDidPlayToEnd registers fn to run when the current item finishes.
func (p *Player) OnDidPlayToEnd(fn func(*Item)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endHandlers = append(p.endHandlers, fn)
}

// Close stops the clock and drops every time observer and end handler. It is
// safe to call more than once.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.rate = 0
	clear(p.timeObservers)
	p.endHandlers = nil
	p.mu.Unlock()

	close(p.stop)
	<-p.done
	return nil
}

func (p *Player) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.syncStatus()
			p.advance()
		}
	}
}

// syncStatus copies the item's readiness onto the player.
func (p *Player) syncStatus() {
	p.mu.Lock()
	status := StatusUnknown
	if p.item != nil {
		status = p.item.Status()
	}
	if status == p.status {
		p.mu.Unlock()
		return
	}
	p.status = status
	p.mu.Unlock()

	p.publish(PropertyStatus)
}

type firing struct {
	fn func(time.Duration)
	at time.Duration
}

// advance moves the playhead one tick, fires due time observers and handles
// the end of the item.
func (p *Player) advance() {
	p.mu.Lock()
	item := p.item
	if p.closed || p.rate <= 0 || item == nil || item.Status() != StatusReadyToPlay {
		p.mu.Unlock()
		return
	}

	ahead, complete := item.bufferedAhead(p.current)
	if p.waitsToMinimizeStalling && !complete && !item.PlaybackLikelyToKeepUp() {
		p.mu.Unlock()
		return
	}
	if !complete && ahead <= 0 {
		p.mu.Unlock()
		return
	}

	step := time.Duration(float64(p.tick) * p.rate)
	if !complete {
		step = min(step, ahead)
	}
	p.current += step

	ended := false
	if d := item.Duration(); d > 0 && p.current >= d {
		p.current = d
		p.rate = 0
		ended = true
	}

	var due []firing
	for _, obs := range p.timeObservers {
		if p.current >= obs.next {
			due = append(due, firing{fn: obs.fn, at: p.current})
			obs.next = nextBoundary(p.current, obs.interval)
		}
	}

	var handlers []func(*Item)
	if ended {
		handlers = append(handlers, p.endHandlers...)
	}
	p.mu.Unlock()

	p.publish(PropertyCurrentTime)
	for _, f := range due {
		f.fn(f.at)
	}
	if ended {
		p.publish(PropertyRate)
		for _, fn := range handlers {
			fn(item)
		}
	}
}

// nextBoundary returns the first multiple of interval strictly after t.
func nextBoundary(t, interval time.Duration) time.Duration {
	return (t/interval + 1) * interval
}

func (p *Player) publish(properties ...string) {
	for _, prop := range properties {
		p.Publish(p, prop)
	}
}
