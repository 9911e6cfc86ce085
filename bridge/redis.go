// Package bridge connects canvas engines through Redis streams. Committed
// local changes are appended to an event stream; other canvases read the
// stream and apply the events with Engine.ApplyRemote. Graph deltas from the
// backend arrive on a separate stream.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"hcanvas/engine"
	"hcanvas/events"
)

// Stream names.
const (
	DefaultEventStream = "canvas:events"
	DeltaStream        = "graph:delta"

	// payloadField is the stream entry field holding the JSON body.
	payloadField = "payload"
)

// Options configures the Redis connection.
type Options struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// EventStream carries engine events; DefaultEventStream if empty.
	EventStream string

	// MaxLen trims the event stream approximately; zero keeps everything.
	MaxLen int64

	ConnectTimeout time.Duration
	WriteTimeout   time.Duration

	// Block is how long one XREAD waits before checking the context.
	Block time.Duration

	Logger *slog.Logger
}

// Redis publishes and consumes canvas events on Redis streams.
type Redis struct {
	client *redis.Client
	opts   Options
	log    *slog.Logger
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(opts Options) (*Redis, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.EventStream == "" {
		opts.EventStream = DefaultEventStream
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.Block <= 0 {
		opts.Block = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout
	// Blocking reads must outlast the XREAD block time.
	redisOpts.ReadTimeout = opts.Block + 5*time.Second

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{
		client: client,
		opts:   opts,
		log:    opts.Logger.With("component", "bridge", "stream", opts.EventStream),
	}, nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Publish appends ev to the event stream and returns the entry ID.
func (r *Redis) Publish(ctx context.Context, ev events.Event) (string, error) {
	return r.add(ctx, r.opts.EventStream, r.opts.MaxLen, ev)
}

// PublishDelta appends a graph delta to the delta stream.
func (r *Redis) PublishDelta(ctx context.Context, d events.GraphDelta) (string, error) {
	return r.add(ctx, DeltaStream, 0, d)
}

func (r *Redis) add(ctx context.Context, stream string, maxLen int64, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s entry: %w", stream, err)
	}
	id, err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: maxLen,
		Approx: maxLen > 0,
		Values: []any{payloadField, string(data)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to add to stream %s: %w", stream, err)
	}
	return id, nil
}

// Attach publishes every local change committed by e. Changes applied from
// remote events and local-only kinds are skipped. Publish failures are
// logged; the engine never waits on Redis errors.
func (r *Redis) Attach(e *engine.Engine) (detach func()) {
	attaching := true
	unsubscribe := e.Subscribe(func(c events.Change) {
		// Subscribe replays the last change; it was committed before we
		// were attached.
		if attaching || c.Remote || localOnly(c.Event.Kind) {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.WriteTimeout)
		defer cancel()
		if _, err := r.Publish(ctx, c.Event); err != nil {
			r.log.Warn("publish failed", "kind", c.Event.Kind, "err", err)
		}
	})
	attaching = false
	return unsubscribe
}

func localOnly(k events.Kind) bool {
	switch k {
	case events.KindSelection, events.KindUndo, events.KindRedo, events.KindSnapshot:
		return true
	}
	return false
}

// Subscribe reads both streams from their current tail and delivers the
// decoded events until ctx is done. Deltas arrive as KindDelta events.
// Entries that fail to decode are logged and skipped.
//
// The channel is closed when reading stops. Apply the events on the
// goroutine that owns the engine.
func (r *Redis) Subscribe(ctx context.Context) (<-chan events.Event, error) {
	streams := []string{r.opts.EventStream, DeltaStream}
	ids := make([]string, len(streams))
	for i, s := range streams {
		id, err := r.tail(ctx, s)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}

	out := make(chan events.Event)
	go func() {
		defer close(out)
		for ctx.Err() == nil {
			res, err := r.client.XRead(ctx, &redis.XReadArgs{
				Streams: append(append([]string(nil), streams...), ids...),
				Block:   r.opts.Block,
			}).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				if ctx.Err() == nil {
					r.log.Warn("stream read failed", "err", err)
				}
				return
			}
			for _, xs := range res {
				idx := 0
				if xs.Stream == DeltaStream {
					idx = 1
				}
				for _, msg := range xs.Messages {
					ids[idx] = msg.ID
					ev, err := decode(xs.Stream, msg)
					if err != nil {
						r.log.Warn("dropping stream entry", "id", msg.ID, "err", err)
						continue
					}
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}

// tail returns the ID of the newest entry in stream, or "0-0" when empty.
func (r *Redis) tail(ctx context.Context, stream string) (string, error) {
	msgs, err := r.client.XRevRangeN(ctx, stream, "+", "-", 1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("failed to read tail of %s: %w", stream, err)
	}
	if len(msgs) == 0 {
		return "0-0", nil
	}
	return msgs[0].ID, nil
}

func decode(stream string, msg redis.XMessage) (events.Event, error) {
	raw, ok := msg.Values[payloadField].(string)
	if !ok {
		return events.Event{}, fmt.Errorf("entry has no %s field", payloadField)
	}
	if stream == DeltaStream {
		var d events.GraphDelta
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return events.Event{}, fmt.Errorf("failed to unmarshal delta: %w", err)
		}
		ev := events.New(events.KindDelta)
		ev.Delta = &d
		return ev, nil
	}
	var ev events.Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return events.Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return ev, nil
}

// Pump applies events from ch to e until ch closes or ctx is done. Apply
// errors are logged. Pump must run on the goroutine that owns e.
func Pump(ctx context.Context, e *engine.Engine, ch <-chan events.Event, log *slog.Logger) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := e.ApplyRemote(ev); err != nil {
				log.Warn("remote event rejected", "kind", ev.Kind, "origin", ev.Origin, "err", err)
			}
		}
	}
}
