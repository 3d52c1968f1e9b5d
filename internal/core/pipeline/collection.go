// Package pipeline batches queries and turns them into graph container files
// using a pool of isolated workers.
package pipeline

import (
	"fmt"
	"sync"
	"time"

	"molgraph/internal/core/errors"
	"molgraph/internal/engine/profile"
	"molgraph/internal/engine/query"
	"molgraph/internal/engine/structure"
	"molgraph/internal/engine/structure/pdb"
	"molgraph/internal/shared/logger"
	"molgraph/internal/shared/util"

	"go.uber.org/zap"
)

// State is the lifecycle of a Collection. Processing happens at most once.
type State int

const (
	StateEmpty State = iota
	StatePopulated
	StateProcessing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePopulated:
		return "populated"
	case StateProcessing:
		return "processing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Config controls where and how a Collection writes its output.
type Config struct {
	// Prefix names the outputs: <prefix>-<worker>.db per worker and
	// <prefix>.db when combined.
	Prefix         string
	BatchSize      int
	FlushInterval  time.Duration
	StructureCache int
	// MaxLoadsPerSecond throttles structure loads in each worker; 0 disables it.
	MaxLoadsPerSecond float64
	LoadBurst         int
	IncludeHetero     bool
	// NewEnv builds the collaborators of one worker. Workers never share an Env.
	NewEnv func(worker int) query.Env
}

func (c Config) envFor(worker int) query.Env {
	if c.NewEnv != nil {
		return c.NewEnv(worker)
	}
	cache := c.StructureCache
	if cache <= 0 {
		cache = 8
	}
	loader := structure.NewCachedLoader(
		pdb.NewLoader(pdb.Options{IncludeHetero: c.IncludeHetero}),
		cache,
		util.NewLimiter(c.MaxLoadsPerSecond, c.LoadBurst),
	)
	return query.Env{Structures: loader, Profiles: profile.FileProvider{}}
}

type item struct {
	key string
	q   query.Query
}

// Collection is an ordered list of queries keyed by unique storage keys.
type Collection struct {
	cfg Config

	mu    sync.Mutex
	items []item
	seen  map[string]int
	state State
}

func NewCollection(cfg Config) *Collection {
	return &Collection{cfg: cfg, seen: make(map[string]int)}
}

// Add appends q and returns its storage key. A query whose id is already
// present is stored as <id>_<n>, n counting the earlier occurrences.
func (c *Collection) Add(q query.Query) (string, error) {
	if q == nil {
		return "", errors.New(errors.CodeValidationError, "nil query")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateEmpty && c.state != StatePopulated {
		return "", errors.Newf(errors.CodeInvalidState, "cannot add queries to a %s collection", c.state)
	}

	id := q.ID()
	key := id
	if n := c.seen[id]; n > 0 {
		key = fmt.Sprintf("%s_%d", id, n)
		for c.seen[key] > 0 {
			n++
			key = fmt.Sprintf("%s_%d", id, n)
		}
		logger.Warn("duplicate query id renamed", logger.QueryID(id), zap.String("key", key))
	}
	c.seen[id]++
	if key != id {
		c.seen[key]++
	}
	c.items = append(c.items, item{key: key, q: q})
	c.state = StatePopulated
	return key, nil
}

func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns the storage keys in insertion order.
func (c *Collection) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, len(c.items))
	for i, it := range c.items {
		keys[i] = it.key
	}
	return keys
}

func (c *Collection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Collection) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
