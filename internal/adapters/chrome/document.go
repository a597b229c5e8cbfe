package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/bft-labs/recship/internal/domain"
	"github.com/bft-labs/recship/internal/ports"
)

// evalFunc evaluates a JavaScript expression in the page and decodes the
// result into res (which may be nil).
type evalFunc func(ctx context.Context, expr string, res any) error

// Document is one loaded top-level document. It implements ports.Page.
type Document struct {
	id      string
	eval    evalFunc
	logger  ports.Logger
	timeout time.Duration

	mu        sync.Mutex
	url       string
	nextID    int
	listeners map[ports.EventType]map[int]func(ports.Event)
	unloaded  bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

var _ ports.Page = (*Document)(nil)

func newDocument(id, url string, eval evalFunc, logger ports.Logger, timeout time.Duration) *Document {
	d := &Document{
		id:        id,
		url:       url,
		eval:      eval,
		logger:    logger,
		timeout:   timeout,
		listeners: make(map[ports.EventType]map[int]func(ports.Event)),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	d.wg.Add(1)
	go d.syncLoop()
	return d
}

// ID returns the shim's document id.
func (d *Document) ID() string { return d.id }

// URL returns the last URL the document reported.
func (d *Document) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

type pageMetadata struct {
	Title     string `json:"title"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	UserAgent string `json:"userAgent"`
}

// Metadata reads the page title, viewport and user agent.
func (d *Document) Metadata(ctx context.Context) (domain.Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var m pageMetadata
	if err := d.eval(ctx, `window.__recship.metadata()`, &m); err != nil {
		return domain.Metadata{}, fmt.Errorf("read page metadata: %w", err)
	}
	return domain.Metadata{
		Title:     m.Title,
		Viewport:  domain.Viewport{Width: m.Width, Height: m.Height},
		UserAgent: m.UserAgent,
	}, nil
}

// Listen registers fn for t. The in-page DOM listener is attached while at
// least one Go listener exists for its type.
func (d *Document) Listen(t ports.EventType, fn func(ports.Event)) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	if d.listeners[t] == nil {
		d.listeners[t] = make(map[int]func(ports.Event))
	}
	d.listeners[t][id] = fn
	d.mu.Unlock()
	d.requestSync()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.listeners[t], id)
			d.mu.Unlock()
			d.requestSync()
		})
	}
}

// Notify shows a banner on the page for five seconds. It does not wait for
// the page.
func (d *Document) Notify(ctx context.Context, message string) {
	d.logger.Warn("page notice", ports.String("message", message), ports.String("url", d.URL()))

	d.mu.Lock()
	if d.unloaded {
		d.mu.Unlock()
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		expr := "window.__recship.notice(" + strconv.Quote(message) + ")"
		if err := d.eval(ctx, expr, nil); err != nil {
			d.logger.Debug("show page notice", ports.Err(err))
		}
	}()
}

// dispatch delivers ev to the listeners registered for its type.
func (d *Document) dispatch(ev ports.Event) {
	d.mu.Lock()
	if d.unloaded {
		d.mu.Unlock()
		return
	}
	if ev.URL != "" {
		d.url = ev.URL
	}
	ids := make([]int, 0, len(d.listeners[ev.Type]))
	for id := range d.listeners[ev.Type] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(ports.Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, d.listeners[ev.Type][id])
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// wanted returns which event types currently have listeners.
func (d *Document) wanted() map[ports.EventType]bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[ports.EventType]bool, len(d.listeners))
	for t, fns := range d.listeners {
		if len(fns) > 0 {
			out[t] = true
		}
	}
	return out
}

func (d *Document) requestSync() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// syncLoop pushes the wanted listener set into the page. Only the latest
// set matters, so bursts of Listen calls collapse into one evaluation.
func (d *Document) syncLoop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case <-d.wake:
		}

		data, err := json.Marshal(d.wanted())
		if err != nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		var active []string
		err = d.eval(ctx, "window.__recship.setListening("+string(data)+")", &active)
		cancel()
		if err != nil {
			d.logger.Warn("sync page listeners", ports.Err(err))
			continue
		}
		d.logger.Debug("page listeners synced", ports.Any("active", active))
	}
}

// unload stops the document. Later events are ignored.
func (d *Document) unload() {
	d.mu.Lock()
	if d.unloaded {
		d.mu.Unlock()
		return
	}
	d.unloaded = true
	d.mu.Unlock()
	close(d.done)
	d.wg.Wait()
}
