// Package stanza turns inbound message stanzas into decrypted message records.
// It owns the encrypted session database, the signal session store and the inbound worker pool, and passes
// their results out through a single update channel.
package stanza

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/meow-io/go-stanza/clock"
	"github.com/meow-io/go-stanza/config"
	"github.com/meow-io/go-stanza/inbound"
	"github.com/meow-io/go-stanza/internal/db"
	"github.com/meow-io/go-stanza/node"
	"github.com/meow-io/go-stanza/signal"
	"go.uber.org/zap"
)

const (
	// Constants for client state.
	StateNew = iota
	StateInitialized
	StateRunning
)

var ErrNotRunning = errors.New("stanza: client not running")

// An event indicating a change in the state of the client.
type AppState struct {
	State int
}

type Client struct {
	DB         *db.Database
	config     *config.Config
	log        *zap.SugaredLogger
	state      int
	clock      clock.Clock
	me         inbound.Identity
	store      *signal.Store
	inbound    *inbound.Manager
	updates    chan interface{}
	cancelFunc context.CancelFunc
	finished   sync.WaitGroup
}

// Create a client for the account me, keeping its state under the config's root dir.
func NewClient(c *config.Config, me inbound.Identity) (*Client, error) {
	log := c.Logger("")
	absRootPath, err := filepath.Abs(c.RootDir)
	if err != nil {
		return nil, err
	}
	c.RootDir = absRootPath
	log.Debugf("making client, using root path of %s", c.RootDir)

	if err := os.MkdirAll(c.RootDir, 0o700); err != nil {
		return nil, err
	}
	database, err := db.NewDatabase(c, path.Join(c.RootDir, "data"))
	if err != nil {
		return nil, err
	}

	state := StateNew
	if database.Initialized() {
		state = StateInitialized
	}

	return &Client{
		DB:      database,
		config:  c,
		log:     log,
		state:   state,
		clock:   clock.NewSystemClock(),
		me:      me,
		updates: make(chan interface{}, c.QueueSize),
	}, nil
}

// Makes a key from a password
func (c *Client) NewKey(password string) ([]byte, error) {
	return newKey(password, c.config.RootDir, "salt")
}

// Gets updates which must be dealt with.
// This will produce *AppState, *inbound.MessageUpdate or *inbound.NackUpdate. Callers must keep draining it:
// workers stop delivering once it fills, and AppState changes are dropped while it is full.
func (c *Client) Updates() chan interface{} {
	return c.updates
}

// Returns true is the client is in NEW state.
func (c *Client) New() bool {
	return c.state == StateNew
}

// Returns true is the client is in INITIALIZED state.
func (c *Client) Initialized() bool {
	return c.state == StateInitialized
}

// Returns true is the client is in RUNNING state.
func (c *Client) Running() bool {
	return c.state == StateRunning
}

// Initialize the client with a given key and publish the first batch of one-time prekeys.
func (c *Client) Initialize(key []byte) error {
	if c.state != StateNew {
		return errors.New("cannot initialize unless in state new")
	}
	if err := c.DB.Initialize(key); err != nil {
		return err
	}
	c.setState(StateInitialized)

	if err := c.open(key); err != nil {
		return err
	}
	_, err := c.store.GeneratePreKeys(c.config.PreKeyBatchSize)
	return err
}

// Open an existing client with a given key.
func (c *Client) Open(key []byte) error {
	return c.open(key)
}

func (c *Client) open(key []byte) error {
	if c.state != StateInitialized {
		return errors.New("cannot open unless in state initialized")
	}

	if err := c.DB.Open(key); err != nil {
		return err
	}

	if err := c.DB.Lock("initializing subsystems", func() error {
		store, err := signal.NewStore(c.config, c.DB, c.clock)
		if err != nil {
			return err
		}
		c.store = store
		c.inbound = inbound.NewManager(c.config, c.me, store)
		return nil
	}); err != nil {
		return err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	c.cancelFunc = cancelFunc
	if err := c.inbound.Start(); err != nil {
		return err
	}

	c.setState(StateRunning)
	c.startUpdatePassing(ctx)
	return nil
}

// Signed prekey that peers open sessions against.
func (c *Client) SignedPreKey() (*signal.PreKey, error) {
	if c.state != StateRunning {
		return nil, ErrNotRunning
	}
	return c.store.SignedPreKey()
}

// Generate n more one-time prekeys. Each may open at most one session.
func (c *Client) GeneratePreKeys(n int) ([]*signal.PreKey, error) {
	if c.state != StateRunning {
		return nil, ErrNotRunning
	}
	return c.store.GeneratePreKeys(n)
}

// Decode and decrypt a message stanza on the caller's goroutine.
func (c *Client) Process(ctx context.Context, stanza *node.Node) (*inbound.MessageUpdate, error) {
	if c.state != StateRunning {
		return nil, ErrNotRunning
	}
	return c.inbound.Process(ctx, stanza)
}

// Queue a message stanza for the worker pool. The result arrives on Updates.
func (c *Client) Enqueue(stanza *node.Node) error {
	if c.state != StateRunning {
		return ErrNotRunning
	}
	return c.inbound.Enqueue(stanza)
}

// Gracefully stop a running client.
func (c *Client) Shutdown() error {
	if c.state != StateRunning {
		return nil
	}
	// try to clean up memory after a shutdown
	defer runtime.GC()

	errs := make([]string, 0)
	c.cancelFunc()
	c.finished.Wait()

	if err := c.inbound.Shutdown(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.DB.Shutdown(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) != 0 {
		return fmt.Errorf("error during shutdown: %s", strings.Join(errs, ", "))
	}

	c.cancelFunc = nil
	c.inbound = nil
	c.store = nil

	c.setState(StateInitialized)

	close(c.updates)
	c.updates = make(chan interface{}, c.config.QueueSize)

	return nil
}

func (c *Client) startUpdatePassing(ctx context.Context) {
	c.finished.Add(1)
	updates := c.inbound.Updates()
	go func() {
		defer c.finished.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-updates:
				switch v := e.(type) {
				case *inbound.MessageUpdate:
					c.log.Debugf("passing update: message %s", v.Record.Key)
				case *inbound.NackUpdate:
					c.log.Debugf("passing update: nack %d for %s", v.Code, v.ID)
				}
				select {
				case <-ctx.Done():
					return
				case c.updates <- e:
				}
			}
		}
	}()
}

// setState never blocks: a state change is dropped from Updates rather than stalling Shutdown on a full channel.
func (c *Client) setState(state int) {
	c.state = state
	select {
	case c.updates <- &AppState{state}:
	default:
		c.log.Warnf("updates full, dropping state change to %d", state)
	}
}
