package meme

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kapu/avatar-meme-bot-go/internal/constants"
	"github.com/kapu/avatar-meme-bot-go/internal/domain"
	"github.com/kapu/avatar-meme-bot-go/internal/util"
	"github.com/kapu/avatar-meme-bot-go/pkg/errors"
	"go.uber.org/zap"
)

// CatalogState is the load state of a Catalog.
type CatalogState int32

const (
	StateNotLoaded CatalogState = iota
	StateReady
	StateUnavailable
)

func (s CatalogState) String() string {
	switch s {
	case StateNotLoaded:
		return "NOT_LOADED"
	case StateReady:
		return "READY"
	case StateUnavailable:
		return "UNAVAILABLE"
	default:
		return fmt.Sprintf("CatalogState(%d)", int32(s))
	}
}

// Catalog indexes the templates of an Engine by key and alias. It loads once;
// a failed load is final for the lifetime of the Catalog.
type Catalog struct {
	engine      Engine
	provisioner Provisioner
	logger      *zap.Logger

	loadMu  sync.Mutex
	state   atomic.Int32
	loadErr error

	templates []*domain.Template
	index     map[string]*domain.Template
	order     []string
	intn      func(n int) int

	loadTimeout time.Duration
}

func NewCatalog(engine Engine, provisioner Provisioner, logger *zap.Logger) *Catalog {
	return &Catalog{
		engine:      engine,
		provisioner: provisioner,
		logger:      logger,
		intn:        rand.IntN,
		loadTimeout: constants.MemeConfig.CatalogLoadTimeout,
	}
}

func (c *Catalog) State() CatalogState {
	return CatalogState(c.state.Load())
}

// Ready reports whether templates are loaded.
func (c *Catalog) Ready() bool {
	return c.State() == StateReady
}

// EnsureLoaded provisions the engine and builds the index on first call. Later
// calls return the first call's outcome. The load runs detached from the caller's
// cancellation under the catalog's own timeout, so a caller giving up does not
// mark the engine unavailable.
func (c *Catalog) EnsureLoaded(ctx context.Context) error {
	switch c.State() {
	case StateReady:
		return nil
	case StateUnavailable:
		return c.loadErr
	}

	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	switch c.State() {
	case StateReady:
		return nil
	case StateUnavailable:
		return c.loadErr
	}

	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
	defer cancel()

	if err := c.load(loadCtx); err != nil {
		c.loadErr = fmt.Errorf("%w: %v", errors.ErrCatalogUnavailable, err)
		c.state.Store(int32(StateUnavailable))
		c.logger.Warn("meme-generator unavailable, meme features disabled", zap.Error(err))
		return c.loadErr
	}

	c.state.Store(int32(StateReady))
	return nil
}

func (c *Catalog) load(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while loading templates: %v", r)
		}
	}()

	if c.provisioner != nil {
		result, err := c.provisioner.Provision(ctx)
		if err != nil {
			return err
		}
		c.logger.Debug("meme engine provisioned",
			zap.Bool("installed", result.Installed),
			zap.Bool("started", result.Started),
		)
	}

	if err := c.engine.LoadTemplates(ctx, c.engine.TemplatesDir()); err != nil {
		return err
	}

	all := c.engine.ListTemplates()
	index := make(map[string]*domain.Template, len(all)*3)
	order := make([]string, 0, len(all)*3)
	add := func(name string, tpl *domain.Template) {
		name = strings.ToLower(name)
		if name == "" {
			return
		}
		if _, exists := index[name]; !exists {
			order = append(order, name)
		}
		index[name] = tpl
	}

	for _, tpl := range all {
		add(tpl.Key, tpl)
		for _, keyword := range tpl.Keywords {
			add(keyword, tpl)
		}
	}

	c.templates = all
	c.index = index
	c.order = order

	c.logger.Info("Meme catalog loaded",
		zap.Int("templates", len(all)),
		zap.Int("index_keys", len(order)),
	)
	return nil
}

// Find resolves a key or alias case-insensitively. Exact matches win; otherwise the
// first index key containing the query is used.
func (c *Catalog) Find(query string) (*domain.Template, bool) {
	if !c.Ready() {
		return nil, false
	}

	q := util.Normalize(query)
	if q == "" {
		return nil, false
	}
	if tpl, ok := c.index[q]; ok {
		return tpl, true
	}
	for _, name := range c.order {
		if strings.Contains(name, q) {
			return c.index[name], true
		}
	}
	return nil, false
}

// Random picks a template uniformly.
func (c *Catalog) Random() (*domain.Template, bool) {
	if !c.Ready() || len(c.templates) == 0 {
		return nil, false
	}
	return c.templates[c.intn(len(c.templates))], true
}

// All returns templates in load order.
func (c *Catalog) All() []*domain.Template {
	if !c.Ready() {
		return nil
	}
	out := make([]*domain.Template, len(c.templates))
	copy(out, c.templates)
	return out
}
