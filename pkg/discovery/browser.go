// Package discovery finds social-VR OSC targets over mDNS and resolves
// their OSC Query trees into parameter-registry snapshots (§3, §4.E).
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/facetrackd/facetrackd/pkg/registry"
)

const (
	serviceType          = "_oscjson._tcp"
	serviceDomain        = "local."
	instancePrefix       = "VRChat-Client-"
	avatarChangeDebounce = 500 * time.Millisecond
	mdnsRestartDelay     = 2 * time.Second
	mdnsFailureBackoff   = 5 * time.Second
)

// Browser runs the mDNS browse loop and the avatar-change debounce loop,
// publishing resolved discovery Snapshots as they become available.
type Browser struct {
	logger *slog.Logger
	client *http.Client

	mu         sync.Mutex
	currentURL string

	snapshots chan *registry.Snapshot
	changed   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Browser. Call Start to begin discovery.
func New(logger *slog.Logger) *Browser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Browser{
		logger:    logger,
		client:    &http.Client{Timeout: 3 * time.Second},
		snapshots: make(chan *registry.Snapshot, 1),
		changed:   make(chan struct{}, 1),
	}
}

// Snapshots returns the channel on which resolved discovery snapshots are
// published. A nil snapshot means the remote was lost and every parameter
// should be treated as irrelevant until rediscovery.
func (b *Browser) Snapshots() <-chan *registry.Snapshot {
	return b.snapshots
}

// NotifyAvatarChange signals that the local avatar changed and the OSC
// Query tree should be re-fetched. The debounce is leading-edge: the first
// notification triggers a fetch at once, and further ones within the
// debounce window after it are ignored.
// Non-blocking: redundant notifications while one is pending are dropped.
func (b *Browser) NotifyAvatarChange() {
	select {
	case b.changed <- struct{}{}:
	default:
	}
}

// Start begins the mDNS browse loop and the avatar-change loop in
// background goroutines. It returns immediately.
func (b *Browser) Start(ctx context.Context) {
	b.ctx, b.cancel = context.WithCancel(ctx)

	b.wg.Add(2)
	go b.browseLoop()
	go b.changeLoop()
}

// Stop halts both background loops and waits for them to exit.
func (b *Browser) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
}

func (b *Browser) publish(snapshot *registry.Snapshot) {
	select {
	case b.snapshots <- snapshot:
	default:
		select {
		case <-b.snapshots:
		default:
		}
		select {
		case b.snapshots <- snapshot:
		default:
		}
	}
}

func (b *Browser) setCurrentURL(url string) {
	b.mu.Lock()
	b.currentURL = url
	b.mu.Unlock()
}

func (b *Browser) getCurrentURL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentURL
}

func (b *Browser) browseLoop() {
	defer b.wg.Done()

	for {
		if b.ctx.Err() != nil {
			return
		}
		if err := b.browseOnce(); err != nil {
			b.logger.Error("mdns browse failed, retrying", "error", err)
			if !sleepOrDone(b.ctx, mdnsFailureBackoff) {
				return
			}
			continue
		}
		if !sleepOrDone(b.ctx, mdnsRestartDelay) {
			return
		}
	}
}

func (b *Browser) browseOnce() error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("creating mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 8)
	browseCtx, cancelBrowse := context.WithCancel(b.ctx)
	defer cancelBrowse()

	if err := resolver.Browse(browseCtx, serviceType, serviceDomain, entries); err != nil {
		return fmt.Errorf("browsing for %s: %w", serviceType, err)
	}

	b.logger.Info("mdns discovery started", "service", serviceType)

	for entry := range entries {
		if b.handleEntry(entry) {
			break
		}
	}
	return nil
}

// handleEntry processes one mDNS browse event. It reports true when the
// service was removed: the caller must break out of the entries range loop
// so browseLoop can sleep mdnsRestartDelay and rebind a fresh resolver
// (§4.F: "break the inner loop, sleep 2s, and restart the browser").
func (b *Browser) handleEntry(entry *zeroconf.ServiceEntry) bool {
	if !strings.HasPrefix(entry.Instance, instancePrefix) {
		b.logger.Debug("ignored non-matching service", "instance", entry.Instance)
		return false
	}

	if entry.TTL == 0 {
		b.logger.Info("service removed, clearing snapshot", "instance", entry.Instance)
		b.setCurrentURL("")
		b.publish(nil)
		return true
	}

	ip := firstIPv4(entry.AddrIPv4)
	if ip == nil {
		b.logger.Info("ignored service with no IPv4 address", "instance", entry.Instance)
		return false
	}

	url := fmt.Sprintf("http://%s:%d/avatar", ip.String(), entry.Port)
	b.logger.Info("discovered avatar OSC Query endpoint", "url", url)
	b.setCurrentURL(url)

	go b.fetchAndPublish(url)
	return false
}

func (b *Browser) fetchAndPublish(url string) {
	params, err := fetchWithRetry(b.client, url, time.Sleep)
	if err != nil {
		b.logger.Warn("failed to fetch avatar parameters", "url", url, "error", err)
		return
	}
	b.logger.Info("fetched avatar parameters", "count", len(params))
	b.publish(registry.NewSnapshot(params))
}

// changeLoop implements leading-edge debounce (§4.F): the first
// notification in a burst is accepted immediately, and any notification
// arriving within avatarChangeDebounce of the previously *accepted* one is
// dropped. Unlike a trailing-edge reset, this still fires periodically
// under sustained sub-debounce traffic instead of waiting for it to quiet
// down.
func (b *Browser) changeLoop() {
	defer b.wg.Done()

	var lastAccepted time.Time
	for {
		select {
		case <-b.ctx.Done():
			return
		case <-b.changed:
			now := time.Now()
			if !lastAccepted.IsZero() && now.Sub(lastAccepted) < avatarChangeDebounce {
				b.logger.Debug("dropped avatar-change notification within debounce window")
				continue
			}
			lastAccepted = now
			if url := b.getCurrentURL(); url != "" {
				go b.fetchAndPublish(url)
			} else {
				b.logger.Warn("avatar change received but no service discovered yet")
			}
		}
	}
}

func firstIPv4(addrs []net.IP) net.IP {
	for _, a := range addrs {
		if v4 := a.To4(); v4 != nil {
			return v4
		}
	}
	return nil
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
