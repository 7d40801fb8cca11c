package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo is a Store backed by a "canvases" collection. Live updates
// come from a change stream, so the server must run as a replica set.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *log.Logger

	mu      sync.Mutex
	closed  bool
	cancels map[*subscriber]context.CancelFunc
	wg      sync.WaitGroup
}

type mongoDoc struct {
	ID         string    `bson:"_id"`
	CanvasData string    `bson:"canvasData"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

func (d mongoDoc) record() Record {
	return Record{CanvasData: []byte(d.CanvasData), UpdatedAt: d.UpdatedAt.UTC()}
}

// NewMongo connects to uri and uses the canvases collection of database.
func NewMongo(ctx context.Context, uri, database string, logger *log.Logger) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	if database == "" {
		database = "canvasboard"
	}
	return &Mongo{
		client:  client,
		coll:    client.Database(database).Collection("canvases"),
		logger:  logger,
		cancels: make(map[*subscriber]context.CancelFunc),
	}, nil
}

func (m *Mongo) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Mongo) Get(ctx context.Context, id string) (Record, error) {
	if m.isClosed() {
		return Record{}, ErrClosed
	}
	var doc mongoDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s: %w", id, err)
	}
	return doc.record(), nil
}

func (m *Mongo) Upsert(ctx context.Context, id string, rec Record) error {
	if m.isClosed() {
		return ErrClosed
	}
	doc := mongoDoc{ID: id, CanvasData: string(rec.CanvasData), UpdatedAt: rec.UpdatedAt.UTC()}
	_, err := m.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", id, err)
	}
	return nil
}

func (m *Mongo) Subscribe(ctx context.Context, id string, onSnapshot func(Document), onError func(error)) (func(), error) {
	if m.isClosed() {
		return nil, ErrClosed
	}
	watchCtx, cancel := context.WithCancel(ctx)
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: id}}}},
	}
	stream, err := m.coll.Watch(watchCtx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s: %w", id, err)
	}

	sub := &subscriber{onSnapshot: onSnapshot, onError: onError}
	if !m.register(sub, cancel) {
		cancel()
		stream.Close(context.Background())
		return nil, ErrClosed
	}
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			sub.stop()
			m.mu.Lock()
			delete(m.cancels, sub)
			m.mu.Unlock()
			cancel()
		})
	}

	rec, err := m.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		unsubscribe()
		stream.Close(context.Background())
		m.wg.Done()
		return nil, err
	}
	sub.deliver(Document{ID: id, Exists: err == nil, Record: rec})

	go func() {
		defer m.wg.Done()
		defer stream.Close(context.Background())
		for stream.Next(watchCtx) {
			var event struct {
				FullDocument *mongoDoc `bson:"fullDocument"`
			}
			if err := stream.Decode(&event); err != nil {
				m.logger.Warn("dropping unreadable change event", "id", id, "err", err)
				continue
			}
			if event.FullDocument == nil {
				sub.deliver(Document{ID: id})
				continue
			}
			sub.deliver(Document{ID: id, Exists: true, Record: event.FullDocument.record()})
		}
		switch {
		case m.isClosed():
			sub.fail(ErrClosed)
		case watchCtx.Err() == nil && stream.Err() != nil:
			sub.fail(fmt.Errorf("watch %s: %w", id, stream.Err()))
		}
	}()

	return unsubscribe, nil
}

// register records a live watch unless the store is closed. A
// registered watch holds one count on m.wg.
func (m *Mongo) register(sub *subscriber, cancel context.CancelFunc) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.cancels[sub] = cancel
	m.wg.Add(1)
	return true
}

func (m *Mongo) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	cancels := m.cancels
	m.cancels = nil
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	m.wg.Wait()
	return m.client.Disconnect(context.Background())
}
