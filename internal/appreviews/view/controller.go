// Package view drives the app-review screens: which queries are active, the
// add-app form, and how failures are worded. Rendering is a pure function
// of the State the Controller exposes.
package view

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sorenmh/appreviews/internal/appreviews/client"
	"github.com/sorenmh/appreviews/internal/appreviews/query"
)

// Mode selects the screen flow
type Mode int

const (
	// ModeBrowse loads the apps list eagerly and shows reviews for the selected app
	ModeBrowse Mode = iota
	// ModeSearch has no apps list; reviews are looked up by a typed app id
	ModeSearch
)

const (
	resourceApps    = "apps"
	resourceReviews = "reviews"
)

// AppsKey is the query key of the apps list
var AppsKey = query.NewKey(resourceApps)

// ReviewsKey is the query key of an app's reviews
func ReviewsKey(appID string) query.Key {
	return query.NewKey(resourceReviews, appID)
}

// API is the part of the app-review client the controller needs
type API interface {
	FetchApps(ctx context.Context) (*client.AppsResponse, error)
	AddApp(ctx context.Context, id string) (string, error)
	FetchReviews(ctx context.Context, appID string) (*client.ReviewsResponse, error)
}

var _ API = (*client.Client)(nil)

// Options configures a Controller
type Options struct {
	Mode             Mode
	AppsStaleTime    time.Duration
	ReviewsStaleTime time.Duration
	Logger           *zap.Logger
}

type addAppForm struct {
	ID string `validate:"required"`
}

// Controller owns the transient UI state and decides which queries run
type Controller struct {
	api      API
	cache    *query.Cache
	opts     Options
	logger   *zap.Logger
	validate *validator.Validate

	mu         sync.Mutex
	selectedID string
	newAppID   string
	adding     bool
	addErr     string

	listenersMu sync.Mutex
	listeners   map[int]func()
	nextID      int
}

// NewController creates a controller over api, keeping query state in cache
func NewController(api API, cache *query.Cache, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controller{
		api:       api,
		cache:     cache,
		opts:      opts,
		logger:    logger,
		validate:  validator.New(),
		listeners: make(map[int]func()),
	}
}

// Mode returns the controller's screen flow
func (c *Controller) Mode() Mode {
	return c.opts.Mode
}

func (c *Controller) appsQuery() query.Query {
	return query.Query{
		Key: AppsKey,
		Fn: func(ctx context.Context) (any, error) {
			return c.api.FetchApps(ctx)
		},
		StaleTime: c.opts.AppsStaleTime,
		Enabled:   c.opts.Mode == ModeBrowse,
	}
}

func (c *Controller) reviewsQuery(appID string) query.Query {
	return query.Query{
		Key: ReviewsKey(appID),
		Fn: func(ctx context.Context) (any, error) {
			return c.api.FetchReviews(ctx, appID)
		},
		StaleTime: c.opts.ReviewsStaleTime,
		Enabled:   appID != "",
	}
}

// Load observes every active query; this is the screen being shown
func (c *Controller) Load() State {
	c.cache.Observe(c.appsQuery())
	c.cache.Observe(c.reviewsQuery(c.SelectedID()))
	return c.State()
}

// SelectedID returns the app whose reviews are active, or ""
func (c *Controller) SelectedID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedID
}

// Select makes appID the single selected app and re-keys the reviews query
// to it. An empty id disables the reviews query.
func (c *Controller) Select(appID string) State {
	appID = strings.TrimSpace(appID)

	c.mu.Lock()
	c.selectedID = appID
	c.mu.Unlock()

	c.logger.Debug("selected app", zap.String("app_id", appID))
	c.cache.Observe(c.reviewsQuery(appID))
	c.changed()
	return c.State()
}

// Search looks up the reviews of a typed app id
func (c *Controller) Search(appID string) State {
	return c.Select(appID)
}

// ClearSearch resets the active key to empty, discarding the previous result
// from view
func (c *Controller) ClearSearch() State {
	return c.Select("")
}

// SetNewAppID records the pending add-app input
func (c *Controller) SetNewAppID(id string) {
	c.mu.Lock()
	c.newAppID = id
	c.mu.Unlock()
	c.changed()
}

// SubmitAddApp submits the pending add-app input. Blank input is ignored. On
// success the input is cleared and the apps list is refetched; on failure
// the add error is set and the list is left alone.
func (c *Controller) SubmitAddApp(ctx context.Context) State {
	c.mu.Lock()
	c.addErr = ""
	form := addAppForm{ID: strings.TrimSpace(c.newAppID)}
	if c.adding || c.validate.Struct(form) != nil {
		c.mu.Unlock()
		return c.State()
	}
	c.adding = true
	c.mu.Unlock()
	c.changed()

	_, err := c.api.AddApp(ctx, form.ID)

	c.mu.Lock()
	c.adding = false
	if err != nil {
		c.addErr = AddErrorMessage(err)
	} else {
		c.newAppID = ""
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Debug("add app failed", zap.String("app_id", form.ID), zap.Error(err))
		c.changed()
		return c.State()
	}

	c.logger.Debug("app added", zap.String("app_id", form.ID))
	if q := c.appsQuery(); q.Enabled {
		c.cache.Refetch(q)
	} else {
		c.cache.Invalidate(AppsKey)
	}
	c.changed()
	return c.State()
}

// AddApp sets the input to id and submits it
func (c *Controller) AddApp(ctx context.Context, id string) State {
	c.SetNewAppID(id)
	return c.SubmitAddApp(ctx)
}

// RetryApps forces a new request for the apps list
func (c *Controller) RetryApps() State {
	if q := c.appsQuery(); q.Enabled {
		c.cache.Refetch(q)
	}
	return c.State()
}

// RetryReviews forces a new request for the selected app's reviews
func (c *Controller) RetryReviews() State {
	if q := c.reviewsQuery(c.SelectedID()); q.Enabled {
		c.cache.Refetch(q)
	}
	return c.State()
}

// Wait blocks until the active queries have settled
func (c *Controller) Wait(ctx context.Context) error {
	if c.opts.Mode == ModeBrowse {
		if _, err := c.cache.Wait(ctx, AppsKey); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	if id := c.SelectedID(); id != "" {
		if _, err := c.cache.Wait(ctx, ReviewsKey(id)); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers fn to be called whenever the state may have changed
func (c *Controller) Subscribe(fn func()) func() {
	c.listenersMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	cancelCache := c.cache.Subscribe(func(query.Key) { fn() })

	return func() {
		cancelCache()
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

func (c *Controller) changed() {
	c.listenersMu.Lock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// State returns the current screen state. It only reads the cache under the
// currently active keys, so results for a previously selected app never
// show up once another app is selected.
func (c *Controller) State() State {
	c.mu.Lock()
	s := State{
		Mode:       c.opts.Mode,
		SelectedID: c.selectedID,
		NewAppID:   c.newAppID,
		Adding:     c.adding,
		AddError:   c.addErr,
	}
	c.mu.Unlock()

	if s.Mode == ModeBrowse {
		apps := c.cache.Get(AppsKey)
		s.AppsLoading = apps.Loading()
		s.Fetching = apps.Fetching
		s.AppsErr = apps.Err
		if resp, ok := query.Data[*client.AppsResponse](apps); ok && resp != nil {
			s.Apps = resp.Data
		}
	}

	if s.SelectedID != "" {
		reviews := c.cache.Get(ReviewsKey(s.SelectedID))
		s.ReviewsLoading = reviews.Loading()
		s.Fetching = s.Fetching || reviews.Fetching
		s.ReviewsErr = reviews.Err
		if resp, ok := query.Data[*client.ReviewsResponse](reviews); ok && resp != nil {
			s.Reviews = resp
		}
	}

	return s
}
