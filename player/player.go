// Package player is the playback controller. It owns one media player and
// one item at a time and watches both through an observation registry,
// turning every observed change into an observability event.
//
//	p, err := player.New(&cfg)
//	err = p.Play(ctx)
//	<-p.Finished()
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/tailored-agentic-units/audioplayer/media"
	"github.com/tailored-agentic-units/audioplayer/observability"
	"github.com/tailored-agentic-units/audioplayer/observable"
	"github.com/tailored-agentic-units/audioplayer/observation"
)

const source = "player"

// Option configures a Player after config-driven initialization.
type Option func(*Player)

// WithObserver overrides the observer named in the config.
func WithObserver(o observability.Observer) Option {
	return func(p *Player) { p.observer = o }
}

// WithNotifier overrides the notifier that media objects publish through.
func WithNotifier(n *observable.Notifier) Option {
	return func(p *Player) { p.notifier = n }
}

// WithHTTPClient overrides the client items load through.
func WithHTTPClient(c *retryablehttp.Client) Option {
	return func(p *Player) { p.client = c }
}

// Snapshot is a point-in-time view of the controller.
type Snapshot struct {
	State        string  `json:"state"`
	URL          string  `json:"url,omitempty"`
	Rate         float64 `json:"rate"`
	Position     float64 `json:"position_seconds"`
	Duration     float64 `json:"duration_seconds"`
	PlayerStatus string  `json:"player_status"`
	ItemStatus   string  `json:"item_status"`
	Observations int64   `json:"observations"`
}

// Player states reported in Snapshot.State.
const (
	StateIdle     = "idle"
	StatePlaying  = "playing"
	StatePaused   = "paused"
	StateFinished = "finished"
	StateFailed   = "failed"
)

// Player plays one stream at a time.
type Player struct {
	cfg      Config
	notifier *observable.Notifier
	registry *observation.Registry
	observer observability.Observer
	client   *retryablehttp.Client

	mu         sync.Mutex
	engine     *media.Player
	item       *media.Item
	finished   chan struct{}
	cancelLoad context.CancelFunc
	loading    sync.WaitGroup
	closed     bool
}

// New creates a Player from configuration. Options are applied after the
// config-created defaults.
func New(cfg *Config, opts ...Option) (*Player, error) {
	observer, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	p := &Player{
		cfg:      *cfg,
		observer: observer,
		finished: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.notifier == nil {
		p.notifier = observable.NewNotifier()
	}
	if p.client == nil {
		p.client = media.NewHTTPClient(p.cfg.Media, nil)
	}
	p.registry = observation.New(p.notifier, observation.WithObserver(p.observer))

	return p, nil
}

// Registry returns the registry the controller observes through.
func (p *Player) Registry() *observation.Registry {
	return p.registry
}

// Finished returns a channel closed when the current item plays to its end.
// Each Play replaces it.
func (p *Player) Finished() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finished
}

// Play tears down whatever was playing, builds a fresh item and player for
// the configured URL, wires their observers and starts playback. Loading
// continues in the background after Play returns.
func (p *Player) Play(ctx context.Context) error {
	return p.PlayURL(ctx, "")
}

// PlayURL is Play for url. An empty url plays the configured one. The URL
// becomes the configured one only once playback has started.
func (p *Player) PlayURL(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if url == "" {
		url = p.cfg.URL
	}
	if url == "" {
		return ErrNoURL
	}

	p.teardown()

	item := media.NewItem(url, p.notifier, p.cfg.Media, p.client)
	item.SetPreferredForwardBufferDuration(time.Duration(p.cfg.PreferredForwardBuffer))
	if err := p.observeItem(item); err != nil {
		p.registry.Deregister(item)
		return err
	}

	engine := media.NewPlayer(p.notifier, p.cfg.Media)
	engine.SetAutomaticallyWaitsToMinimizeStalling(false)
	engine.SetAllowsExternalPlayback(true)
	if err := p.observePlayer(engine); err != nil {
		p.registry.Deregister(item)
		p.registry.Deregister(engine)
		engine.Close()
		return err
	}

	finished := make(chan struct{})
	var once sync.Once
	engine.AddPeriodicTimeObserver(time.Duration(p.cfg.PeriodicInterval), func(at time.Duration) {
		p.emit(EventPlayerTime, observability.LevelVerbose, map[string]any{"seconds": at.Seconds()})
	})
	engine.OnDidPlayToEnd(func(done *media.Item) {
		p.emit(EventDidPlayToEnd, observability.LevelInfo, map[string]any{"url": done.URL()})
		once.Do(func() { close(finished) })
	})

	engine.ReplaceCurrentItem(item)

	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.loading.Add(1)
	go func() {
		defer p.loading.Done()
		err := item.Load(loadCtx)
		if err == nil {
			return
		}
		// torn down by the next Play or by Close
		if errors.Is(err, context.Canceled) && loadCtx.Err() != nil {
			return
		}
		p.emit(EventError, observability.LevelError, map[string]any{
			"url":   item.URL(),
			"error": err.Error(),
		})
	}()

	engine.Play()

	p.cfg.URL = url
	p.engine = engine
	p.item = item
	p.finished = finished
	p.cancelLoad = cancel

	p.emit(EventPlay, observability.LevelInfo, map[string]any{"url": url})
	return nil
}

// URL returns the configured stream URL.
func (p *Player) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.URL
}

// TogglePlayback pauses a playing player and resumes a paused one. It does
// nothing before the first Play.
func (p *Player) TogglePlayback() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.engine == nil {
		return
	}
	if p.engine.Rate() > 0 {
		p.engine.Pause()
	} else {
		p.engine.SetRate(1)
	}
	p.emit(EventToggle, observability.LevelInfo, map[string]any{"rate": p.engine.Rate()})
}

// Stop pauses playback.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.engine == nil {
		return
	}
	p.engine.Pause()
	p.emit(EventStop, observability.LevelInfo, nil)
}

// Status reports the controller's current state.
func (p *Player) Status() Snapshot {
	p.mu.Lock()
	engine, item, finished := p.engine, p.item, p.finished
	p.mu.Unlock()

	snap := Snapshot{
		State:        StateIdle,
		PlayerStatus: media.StatusUnknown.String(),
		ItemStatus:   media.StatusUnknown.String(),
		Observations: p.registry.Metrics().Installations,
	}
	if engine == nil || item == nil {
		return snap
	}

	snap.URL = item.URL()
	snap.Rate = engine.Rate()
	snap.Position = engine.CurrentTime().Seconds()
	snap.Duration = item.Duration().Seconds()
	snap.PlayerStatus = engine.Status().String()
	snap.ItemStatus = item.Status().String()

	select {
	case <-finished:
		snap.State = StateFinished
		return snap
	default:
	}

	switch {
	case item.Status() == media.StatusFailed:
		snap.State = StateFailed
	case snap.Rate > 0:
		snap.State = StatePlaying
	default:
		snap.State = StatePaused
	}
	return snap
}

// Close deregisters every observation, then stops the media player. It is
// safe to call more than once.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	err := p.registry.Close()
	if p.cancelLoad != nil {
		p.cancelLoad()
	}
	engine := p.engine
	p.mu.Unlock()

	p.loading.Wait()
	if engine != nil {
		if cerr := engine.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// teardown releases the previous item and player, deregistering them before
// their load is cancelled. Called with p.mu held.
func (p *Player) teardown() {
	if p.item != nil {
		p.registry.Deregister(p.item)
		p.item = nil
	}
	if p.engine != nil {
		p.registry.Deregister(p.engine)
	}

	if p.cancelLoad != nil {
		p.cancelLoad()
		p.cancelLoad = nil
	}
	p.loading.Wait()

	if p.engine != nil {
		p.engine.Close()
		p.engine = nil
	}
}

func (p *Player) observeItem(item *media.Item) error {
	observers := []struct {
		property string
		cb       observation.Callback
	}{
		{media.PropertyStatus, p.itemStatusChanged},
		{media.PropertyDuration, p.itemDurationChanged},
		{media.PropertyLoadedTimeRanges, p.itemLoadedRangesChanged},
		{media.PropertyPlaybackBufferEmpty, p.itemFlagChanged(EventItemBufferEmpty, (*media.Item).PlaybackBufferEmpty)},
		{media.PropertyPlaybackBufferFull, p.itemFlagChanged(EventItemBufferFull, (*media.Item).PlaybackBufferFull)},
		{media.PropertyPlaybackLikelyToKeepUp, p.itemFlagChanged(EventItemLikelyToKeepUp, (*media.Item).PlaybackLikelyToKeepUp)},
	}

	for _, o := range observers {
		if err := p.registry.Register(item, o.property, o.cb); err != nil {
			return fmt.Errorf("failed to observe item %s: %w", o.property, err)
		}
	}
	return nil
}

func (p *Player) observePlayer(engine *media.Player) error {
	observers := []struct {
		property string
		cb       observation.Callback
	}{
		{media.PropertyStatus, p.playerStatusChanged},
		{media.PropertyCurrentTime, p.playerTimeChanged},
		{media.PropertyRate, p.playerRateChanged},
	}

	for _, o := range observers {
		if err := p.registry.Register(engine, o.property, o.cb); err != nil {
			return fmt.Errorf("failed to observe player %s: %w", o.property, err)
		}
	}
	return nil
}

// Callbacks read state from the object they are handed.

func (p *Player) playerStatusChanged(obj observation.Object) {
	engine, ok := obj.(*media.Player)
	if !ok {
		return
	}
	status := engine.Status()
	level := observability.LevelInfo
	if status == media.StatusFailed {
		level = observability.LevelWarning
	}
	p.emit(EventPlayerStatus, level, map[string]any{"status": status.String()})
}

func (p *Player) playerTimeChanged(obj observation.Object) {
	engine, ok := obj.(*media.Player)
	if !ok {
		return
	}
	p.emit(EventPlayerCurrentTime, observability.LevelVerbose, map[string]any{
		"seconds": engine.CurrentTime().Seconds(),
	})
}

func (p *Player) playerRateChanged(obj observation.Object) {
	engine, ok := obj.(*media.Player)
	if !ok {
		return
	}
	p.emit(EventPlayerRate, observability.LevelInfo, map[string]any{"rate": engine.Rate()})
}

func (p *Player) itemStatusChanged(obj observation.Object) {
	item, ok := obj.(*media.Item)
	if !ok {
		return
	}
	data := map[string]any{"status": item.Status().String()}
	level := observability.LevelInfo
	if item.Status() == media.StatusFailed {
		level = observability.LevelError
		if err := item.Err(); err != nil {
			data["error"] = err.Error()
		}
	}
	p.emit(EventItemStatus, level, data)
}

func (p *Player) itemDurationChanged(obj observation.Object) {
	item, ok := obj.(*media.Item)
	if !ok {
		return
	}
	p.emit(EventItemDuration, observability.LevelInfo, map[string]any{
		"seconds": item.Duration().Seconds(),
	})
}

func (p *Player) itemLoadedRangesChanged(obj observation.Object) {
	item, ok := obj.(*media.Item)
	if !ok {
		return
	}
	ranges := item.LoadedTimeRanges()
	formatted := make([]string, len(ranges))
	for i, r := range ranges {
		formatted[i] = r.String()
	}
	p.emit(EventItemLoadedRanges, observability.LevelVerbose, map[string]any{"ranges": formatted})
}

func (p *Player) itemFlagChanged(typ observability.EventType, get func(*media.Item) bool) observation.Callback {
	return func(obj observation.Object) {
		item, ok := obj.(*media.Item)
		if !ok {
			return
		}
		p.emit(typ, observability.LevelInfo, map[string]any{"value": get(item)})
	}
}

func (p *Player) emit(typ observability.EventType, level observability.Level, data map[string]any) {
	p.observer.OnEvent(context.Background(), observability.NewEvent(typ, level, source, data))
}
