package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-audio/wav"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/tailored-agentic-units/audioplayer/observable"
)

// Observable property names shared by Player and Item.
const (
	PropertyStatus = "status"
)

// Item property names.
const (
	PropertyDuration               = "duration"
	PropertyLoadedTimeRanges       = "loadedTimeRanges"
	PropertyPlaybackBufferEmpty    = "playbackBufferEmpty"
	PropertyPlaybackBufferFull     = "playbackBufferFull"
	PropertyPlaybackLikelyToKeepUp = "playbackLikelyToKeepUp"
)

const defaultPreferredForwardBuffer = 5 * time.Second

// Status is the readiness of a Player or Item.
type Status int

const (
	StatusUnknown Status = iota
	StatusReadyToPlay
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusReadyToPlay:
		return "readyToPlay"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TimeRange is a span of media time.
type TimeRange struct {
	Start    time.Duration
	Duration time.Duration
}

// End returns the exclusive end of the range.
func (r TimeRange) End() time.Duration {
	return r.Start + r.Duration
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start, r.End())
}

// NewHTTPClient builds the retrying client items load through. A nil logger
// silences the client.
func NewHTTPClient(cfg Config, logger *slog.Logger) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = time.Duration(cfg.RetryWaitMin)
	client.RetryWaitMax = time.Duration(cfg.RetryWaitMax)
	client.Logger = nil
	if logger != nil {
		client.Logger = logger
	}
	return client
}

// Item is a loadable audio resource. It publishes status, duration,
// loadedTimeRanges, playbackBufferEmpty, playbackBufferFull and
// playbackLikelyToKeepUp through its notifier.
type Item struct {
	observable.Base

	url    string
	cfg    Config
	client *retryablehttp.Client

	mu               sync.RWMutex
	status           Status
	err              error
	duration         time.Duration
	loaded           []TimeRange
	bufferEmpty      bool
	bufferFull       bool
	likelyToKeepUp   bool
	preferredForward time.Duration
	complete         bool
}

// NewItem creates an unloaded item for url. Zero fields of cfg take their
// defaults. A nil client gets one built from the merged config.
func NewItem(url string, n *observable.Notifier, cfg Config, client *retryablehttp.Client) *Item {
	merged := DefaultConfig()
	merged.Merge(&cfg)

	if client == nil {
		client = NewHTTPClient(merged, nil)
	}
	return &Item{
		Base:             observable.NewBase(n),
		url:              url,
		cfg:              merged,
		client:           client,
		bufferEmpty:      true,
		preferredForward: defaultPreferredForwardBuffer,
	}
}

// Properties implements observable.Describer.
func (i *Item) Properties() []string {
	return []string{
		PropertyStatus,
		PropertyDuration,
		PropertyLoadedTimeRanges,
		PropertyPlaybackBufferEmpty,
		PropertyPlaybackBufferFull,
		PropertyPlaybackLikelyToKeepUp,
	}
}

func (i *Item) URL() string {
	return i.url
}

func (i *Item) Status() Status {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.status
}

// Err returns the load failure, if any.
func (i *Item) Err() error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.err
}

// Duration returns the media length, or zero while unknown.
func (i *Item) Duration() time.Duration {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.duration
}

// LoadedTimeRanges returns a copy of the buffered ranges.
func (i *Item) LoadedTimeRanges() []TimeRange {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return append([]TimeRange(nil), i.loaded...)
}

func (i *Item) PlaybackBufferEmpty() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.bufferEmpty
}

func (i *Item) PlaybackBufferFull() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.bufferFull
}

func (i *Item) PlaybackLikelyToKeepUp() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.likelyToKeepUp
}

func (i *Item) PreferredForwardBufferDuration() time.Duration {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.preferredForward
}

// SetPreferredForwardBufferDuration sets how much media must be buffered ahead
// before the item reports it is likely to keep up. Zero restores the default.
func (i *Item) SetPreferredForwardBufferDuration(d time.Duration) {
	if d <= 0 {
		d = defaultPreferredForwardBuffer
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.preferredForward = d
}

// Load fetches the resource, publishing progress as it arrives. It returns the
// load error, which is also recorded on the item and reflected in its status.
// Cancelling ctx abandons the load without marking the item failed.
func (i *Item) Load(ctx context.Context) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, i.url, nil)
	if err != nil {
		return i.fail(err)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return i.abort(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return i.fail(fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status))
	}

	total := resp.ContentLength
	if total > i.cfg.MaxBytes {
		return i.fail(fmt.Errorf("%w: %d bytes", ErrTooLarge, total))
	}

	var (
		buf         bytes.Buffer
		chunk       = make([]byte, i.cfg.ChunkSize)
		bytesPerSec float64
	)

	for {
		if err := ctx.Err(); err != nil {
			return i.abort(ctx, err)
		}

		n, readErr := resp.Body.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if int64(buf.Len()) > i.cfg.MaxBytes {
				return i.fail(fmt.Errorf("%w: more than %d bytes", ErrTooLarge, i.cfg.MaxBytes))
			}
			if bytesPerSec == 0 {
				bytesPerSec = i.byteRate(buf.Bytes())
			}
			i.progress(int64(buf.Len()), total, bytesPerSec, false)
		}

		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return i.abort(ctx, readErr)
		}
	}

	if buf.Len() == 0 {
		return i.fail(ErrEmptyMedia)
	}

	d := wavDuration(buf.Bytes())
	if d <= 0 && bytesPerSec == 0 {
		return i.fail(ErrInvalidMedia)
	}
	if d > 0 {
		i.setDuration(d)
	}
	i.progress(int64(buf.Len()), int64(buf.Len()), bytesPerSec, true)
	return nil
}

// byteRate returns the playback byte rate implied by the buffered prefix:
// the WAV header's average rate when present, else the nominal bitrate.
func (i *Item) byteRate(prefix []byte) float64 {
	if isWAV(prefix) {
		dec := wav.NewDecoder(bytes.NewReader(prefix))
		if dec.IsValidFile() && dec.AvgBytesPerSec > 0 {
			return float64(dec.AvgBytesPerSec)
		}
		// header not complete yet
		return 0
	}
	if i.cfg.NominalBitrate > 0 {
		return float64(i.cfg.NominalBitrate) / 8
	}
	return 0
}

func isWAV(b []byte) bool {
	return len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WAVE"
}

func wavDuration(data []byte) time.Duration {
	if !isWAV(data) {
		return 0
	}
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return 0
	}
	d, err := dec.Duration()
	if err != nil {
		return 0
	}
	return d
}

func secondsOf(n int64, rate float64) time.Duration {
	return time.Duration(float64(n) / rate * float64(time.Second))
}

// progress records the buffered state after loaded bytes of total (-1 when
// unknown) have arrived and publishes whatever changed.
func (i *Item) progress(loaded, total int64, rate float64, complete bool) {
	var changed []string

	i.mu.Lock()
	i.complete = complete

	if rate > 0 {
		if i.duration == 0 && total > 0 {
			i.duration = secondsOf(total, rate)
			changed = append(changed, PropertyDuration)
		}

		buffered := secondsOf(loaded, rate)
		if i.duration > 0 {
			buffered = min(buffered, i.duration)
		}
		if complete && i.duration > 0 {
			buffered = i.duration
		}
		i.loaded = []TimeRange{{Start: 0, Duration: buffered}}
		changed = append(changed, PropertyLoadedTimeRanges)

		if i.status == StatusUnknown {
			i.status = StatusReadyToPlay
			changed = append(changed, PropertyStatus)
		}

		likely := complete || buffered >= i.preferredForward
		if likely != i.likelyToKeepUp {
			i.likelyToKeepUp = likely
			changed = append(changed, PropertyPlaybackLikelyToKeepUp)
		}
	}

	if empty := loaded == 0; empty != i.bufferEmpty {
		i.bufferEmpty = empty
		changed = append(changed, PropertyPlaybackBufferEmpty)
	}
	if complete != i.bufferFull {
		i.bufferFull = complete
		changed = append(changed, PropertyPlaybackBufferFull)
	}
	i.mu.Unlock()

	i.publish(changed...)
}

func (i *Item) setDuration(d time.Duration) {
	i.mu.Lock()
	if i.duration == d {
		i.mu.Unlock()
		return
	}
	i.duration = d
	i.mu.Unlock()

	i.publish(PropertyDuration)
}

// abort ends a load that stopped early. Once ctx is done its error replaces
// err; a cancelled ctx leaves the status alone, anything else fails the item.
func (i *Item) abort(ctx context.Context, err error) error {
	ctxErr := ctx.Err()
	switch {
	case errors.Is(ctxErr, context.Canceled):
		i.mu.Lock()
		i.err = ctxErr
		i.mu.Unlock()
		return ctxErr
	case ctxErr != nil:
		return i.fail(ctxErr)
	}
	return i.fail(err)
}

func (i *Item) fail(err error) error {
	i.mu.Lock()
	i.err = err
	changed := i.status != StatusFailed
	i.status = StatusFailed
	i.mu.Unlock()

	if changed {
		i.publish(PropertyStatus)
	}
	return err
}

// bufferedAhead reports how much media past pos is buffered and whether the
// whole item has arrived.
func (i *Item) bufferedAhead(pos time.Duration) (time.Duration, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.complete {
		return i.duration - pos, true
	}
	for _, r := range i.loaded {
		if pos >= r.Start && pos < r.End() {
			return r.End() - pos, false
		}
	}
	return 0, false
}

func (i *Item) publish(properties ...string) {
	for _, p := range properties {
		i.Publish(i, p)
	}
}
