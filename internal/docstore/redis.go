package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

// Redis is a Store shared by every process pointed at the same server.
// Each write is a SET of the encoded record plus a PUBLISH of the same
// bytes on the document's channel.
type Redis struct {
	rdb    *redis.Client
	prefix string
	logger *log.Logger

	mu     sync.Mutex
	closed bool
	subs   map[*redis.PubSub]struct{}
	wg     sync.WaitGroup
}

// NewRedis connects to addr and checks the connection.
func NewRedis(ctx context.Context, addr string, logger *log.Logger) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Redis{
		rdb:    rdb,
		prefix: "canvasboard:",
		logger: logger,
		subs:   make(map[*redis.PubSub]struct{}),
	}, nil
}

func (r *Redis) key(id string) string     { return r.prefix + "canvas:" + id }
func (r *Redis) channel(id string) string { return r.prefix + "updates:" + id }

func (r *Redis) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Redis) Get(ctx context.Context, id string) (Record, error) {
	if r.isClosed() {
		return Record{}, ErrClosed
	}
	blob, err := r.rdb.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s: %w", id, err)
	}
	return DecodeRecord(blob)
}

func (r *Redis) Upsert(ctx context.Context, id string, rec Record) error {
	if r.isClosed() {
		return ErrClosed
	}
	blob, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(id), blob, 0)
		pipe.Publish(ctx, r.channel(id), blob)
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert %s: %w", id, err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, id string, onSnapshot func(Document), onError func(error)) (func(), error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	ps := r.rdb.Subscribe(ctx, r.channel(id))
	r.subs[ps] = struct{}{}
	r.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, ps)
			r.mu.Unlock()
			ps.Close()
		})
	}

	// Wait for the subscription to be active before reading the
	// current value, so no write can fall between the two.
	if _, err := ps.Receive(ctx); err != nil {
		unsubscribe()
		return nil, fmt.Errorf("subscribe %s: %w", id, err)
	}

	sub := &subscriber{onSnapshot: onSnapshot, onError: onError}
	rec, err := r.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		unsubscribe()
		return nil, err
	}
	sub.deliver(Document{ID: id, Exists: err == nil, Record: rec})

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for msg := range ps.Channel() {
			rec, err := DecodeRecord([]byte(msg.Payload))
			if err != nil {
				r.logger.Warn("dropping unreadable update", "id", id, "err", err)
				continue
			}
			sub.deliver(Document{ID: id, Exists: true, Record: rec})
		}
		if r.isClosed() {
			sub.fail(ErrClosed)
		}
	}()

	return func() {
		sub.stop()
		unsubscribe()
	}, nil
}

func (r *Redis) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()

	for ps := range subs {
		ps.Close()
	}
	r.wg.Wait()
	return r.rdb.Close()
}
