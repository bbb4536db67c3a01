package inbound

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/meow-io/go-stanza/config"
	"github.com/meow-io/go-stanza/node"
	"go.uber.org/zap"
)

var (
	ErrNotRunning = errors.New("inbound: manager not running")
	ErrRunning    = errors.New("inbound: manager already running")
)

type UpdateChannel chan interface{}

// MessageUpdate is emitted for every accepted stanza, decrypted or stubbed.
type MessageUpdate struct {
	Record   *Record
	Author   string
	Sender   string
	Category Category
}

// NackUpdate is emitted for a stanza that was rejected and must be negatively acknowledged.
type NackUpdate struct {
	ID   string
	From string
	Code NackCode
	Err  error
}

// Manager decrypts message stanzas on a fixed set of workers. Stanzas from the same sender share a worker so
// their ratchet steps apply in arrival order.
type Manager struct {
	log       *zap.SugaredLogger
	config    *config.Config
	me        Identity
	decryptor *Decryptor
	updates   UpdateChannel

	lock       sync.Mutex
	ctx        context.Context
	cancelFunc context.CancelFunc
	queues     []chan *node.Node
	finished   sync.WaitGroup
}

func NewManager(c *config.Config, me Identity, store SessionStore) *Manager {
	return &Manager{
		log:       c.Logger("inbound"),
		config:    c,
		me:        me,
		decryptor: NewDecryptor(c, store),
		updates:   make(UpdateChannel, c.QueueSize),
	}
}

func (m *Manager) Updates() UpdateChannel {
	return m.updates
}

func (m *Manager) Start() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.cancelFunc != nil {
		return ErrRunning
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	m.ctx = ctx
	m.cancelFunc = cancelFunc
	m.queues = make([]chan *node.Node, m.config.WorkerCount)
	for i := range m.queues {
		m.queues[i] = make(chan *node.Node, m.config.QueueSize)
		m.finished.Add(1)
		go m.startWorker(ctx, m.queues[i])
	}
	m.log.Debugf("started %d workers", len(m.queues))
	return nil
}

func (m *Manager) Shutdown() error {
	m.lock.Lock()
	cancelFunc := m.cancelFunc
	m.cancelFunc = nil
	m.lock.Unlock()
	if cancelFunc == nil {
		return ErrNotRunning
	}
	cancelFunc()
	m.finished.Wait()
	m.log.Debugf("shutdown complete")
	return nil
}

// Enqueue hands a stanza to the worker owning its sender. It blocks while that worker's queue is full.
func (m *Manager) Enqueue(stanza *node.Node) error {
	m.lock.Lock()
	if m.cancelFunc == nil {
		m.lock.Unlock()
		return ErrNotRunning
	}
	ctx := m.ctx
	queue := m.queues[m.shard(stanza)]
	m.lock.Unlock()

	select {
	case <-ctx.Done():
		return ErrNotRunning
	case queue <- stanza:
		return nil
	}
}

func (m *Manager) shard(stanza *node.Node) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(stanza.AttrString("from")))
	return int(h.Sum32() % uint32(len(m.queues)))
}

// Process decodes and decrypts a single stanza synchronously. A returned error means the stanza was rejected
// or ctx ended; per-fragment failures are reported through the record's stub instead.
func (m *Manager) Process(ctx context.Context, stanza *node.Node) (*MessageUpdate, error) {
	rec, c, err := DecodeMessageNode(stanza, m.me, m.log)
	if err != nil {
		return nil, err
	}
	if err := m.decryptor.Decrypt(ctx, stanza, rec, c); err != nil {
		return nil, err
	}
	return &MessageUpdate{
		Record:   rec,
		Author:   c.Author,
		Sender:   c.Sender,
		Category: c.Category,
	}, nil
}

func (m *Manager) startWorker(ctx context.Context, queue chan *node.Node) {
	for {
		select {
		case <-ctx.Done():
			m.finished.Done()
			return
		case stanza := <-queue:
			var update interface{}
			u, err := m.Process(ctx, stanza)
			switch {
			case err == nil:
				update = u
			case ctx.Err() != nil:
				m.finished.Done()
				return
			default:
				m.log.Warnf("rejecting stanza: %v", err)
				update = &NackUpdate{
					ID:   stanza.AttrString("id"),
					From: stanza.AttrString("from"),
					Code: NackCodeFor(err),
					Err:  err,
				}
			}
			select {
			case <-ctx.Done():
				m.finished.Done()
				return
			case m.updates <- update:
			}
		}
	}
}
