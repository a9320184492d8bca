// Package gateway wraps outgoing API calls with session handling: it attaches
// the stored credential, renews it once per expiry episode no matter how many
// requests notice the expiry, retries a rejected request at most once, and
// ends the session when renewal is impossible.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/bookstore/internal/credstore"
	"github.com/Skotchmaster/bookstore/internal/events"
	"github.com/Skotchmaster/bookstore/pkg/authclient"
	"github.com/Skotchmaster/bookstore/pkg/tokens"
)

const (
	DefaultRefreshPath    = "/api/auth/refresh-token"
	DefaultLoginPath      = "/login"
	DefaultRefreshTimeout = 10 * time.Second

	headerRequestID = "X-Request-Id"
)

// DefaultPublicEndpoints are reachable without a credential.
var DefaultPublicEndpoints = []string{
	"GET /api/categories",
	"GET /api/products",
	"GET /api/reviews",
	"/api/auth/login",
	"/api/auth/register",
}

type Config struct {
	BaseURL         string
	RefreshPath     string
	LoginPath       string
	PublicEndpoints []string
	RefreshTimeout  time.Duration
	EventsTopic     string
}

type Deps struct {
	Store      credstore.Store
	HTTPClient *http.Client
	Navigator  Navigator
	Events     events.Publisher
	Metrics    *Metrics
	Logger     *slog.Logger
	Now        func() time.Time
}

type refreshOutcome struct {
	cred *credstore.Credential
	err  error
}

type Gateway struct {
	cfg     Config
	base    *url.URL
	routes  *routeTable
	store   credstore.Store
	client  *http.Client
	auth    *authclient.Client
	nav     Navigator
	events  events.Publisher
	metrics *Metrics
	log     *slog.Logger
	now     func() time.Time

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshOutcome

	// signedOut is set once the user has been sent to login and cleared as
	// soon as a credential shows up again.
	signedOut atomic.Bool

	defaultMu   sync.RWMutex
	defaultAuth *credstore.Credential
}

func New(cfg Config, deps Deps) (*Gateway, error) {
	if deps.Store == nil {
		return nil, errors.New("gateway: credential store is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("gateway: invalid base url %q", cfg.BaseURL)
	}
	if cfg.RefreshPath == "" {
		cfg.RefreshPath = DefaultRefreshPath
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	if cfg.PublicEndpoints == nil {
		cfg.PublicEndpoints = DefaultPublicEndpoints
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = DefaultRefreshTimeout
	}
	if cfg.EventsTopic == "" {
		cfg.EventsTopic = events.TopicUserEvents
	}

	routes, err := compileRoutes(cfg.RefreshPath, cfg.PublicEndpoints)
	if err != nil {
		return nil, err
	}

	if deps.HTTPClient == nil {
		deps.HTTPClient = authclient.NewHTTPClient(30 * time.Second)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Navigator == nil {
		deps.Navigator = logNavigator{log: deps.Logger}
	}
	if deps.Events == nil {
		deps.Events = events.NopPublisher{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Gateway{
		cfg:     cfg,
		base:    base,
		routes:  routes,
		store:   deps.Store,
		client:  deps.HTTPClient,
		auth:    authclient.NewClient(cfg.BaseURL, cfg.RefreshPath, deps.HTTPClient),
		nav:     deps.Navigator,
		events:  deps.Events,
		metrics: deps.Metrics,
		log:     deps.Logger.With("component", "gateway"),
		now:     deps.Now,
	}, nil
}

// Store is the credential store the gateway reads and renews.
func (g *Gateway) Store() credstore.Store { return g.store }

// LoginTarget is where the navigator is sent when a session ends.
func (g *Gateway) LoginTarget() string {
	sep := "?"
	if strings.Contains(g.cfg.LoginPath, "?") {
		sep = "&"
	}
	return g.cfg.LoginPath + sep + SessionExpiredQuery
}

// NewRequest builds a request against the base URL. A non-nil body is sent
// as JSON.
func (g *Gateway) NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		r = bytes.NewReader(data)
	}

	rel, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	u := g.base.ResolveReference(&url.URL{
		Path:     strings.TrimRight(g.base.Path, "/") + "/" + strings.TrimLeft(rel.Path, "/"),
		RawQuery: rel.RawQuery,
	})

	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// SetAuthToken sets the credential used when the store holds none.
func (g *Gateway) SetAuthToken(scheme, token string) {
	g.defaultMu.Lock()
	defer g.defaultMu.Unlock()
	if token == "" {
		g.defaultAuth = nil
		return
	}
	g.defaultAuth = &credstore.Credential{AccessToken: token, Scheme: scheme}
}

func (g *Gateway) ClearAuthToken() {
	g.SetAuthToken("", "")
}

// Seed loads the stored credential at startup and installs it as the
// default header. An empty store is not an error.
func (g *Gateway) Seed(ctx context.Context) (*credstore.Credential, error) {
	cred, err := g.store.Load(ctx)
	if errors.Is(err, credstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	g.SetAuthToken(cred.Scheme, cred.AccessToken)
	return cred, nil
}

// Logout removes the stored credential and the default header. Calling it
// without a session is a no-op.
func (g *Gateway) Logout(ctx context.Context) error {
	g.ClearAuthToken()
	if err := g.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// Do sends req with session handling. Relative URLs are resolved against the
// base URL. Requests to any other origin go out without a credential and a
// 401 from them is returned as is. Any non-2xx status comes back as an
// error; on success the caller owns the response body.
func (g *Gateway) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if !req.URL.IsAbs() {
		req.URL = g.base.ResolveReference(req.URL)
	}

	body, err := snapshotBody(req)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}

	if !g.sameOrigin(req.URL) {
		g.log.Debug("foreign_origin", "method", req.Method, "host", req.URL.Host)
		return g.send(ctx, req, body, ClassPublic, nil, false)
	}

	class := g.routes.Classify(req.Method, g.routePath(req.URL))

	cred, err := g.prepare(ctx, class)
	if err != nil {
		return nil, err
	}
	return g.send(ctx, req, body, class, cred, false)
}

func (g *Gateway) sameOrigin(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, g.base.Scheme) && strings.EqualFold(u.Host, g.base.Host)
}

// routePath strips the base path, matching whole segments only.
func (g *Gateway) routePath(u *url.URL) string {
	prefix := strings.TrimRight(g.base.Path, "/")
	switch {
	case prefix == "":
		return u.Path
	case u.Path == prefix:
		return "/"
	case strings.HasPrefix(u.Path, prefix+"/"):
		return strings.TrimPrefix(u.Path, prefix)
	}
	return u.Path
}

// prepare picks the credential to attach before the first send.
func (g *Gateway) prepare(ctx context.Context, class Class) (*credstore.Credential, error) {
	if class == ClassRefresh {
		return nil, nil
	}

	cred := g.current(ctx)
	switch {
	case cred == nil:
		return nil, nil
	case !g.expired(cred):
		return cred, nil
	case class == ClassPublic:
		return nil, nil
	}
	return g.renew(ctx, cred)
}

// current returns the stored credential, falling back to the default header
// while it is still valid.
func (g *Gateway) current(ctx context.Context) *credstore.Credential {
	cred, err := g.store.Load(ctx)
	if err == nil {
		g.signedOut.Store(false)
		return cred
	}
	if !errors.Is(err, credstore.ErrNotFound) {
		g.log.Warn("credential_load_failed", "error", err)
	}

	g.defaultMu.RLock()
	def := g.defaultAuth
	g.defaultMu.RUnlock()
	if def == nil || g.expired(def) {
		return nil
	}
	g.signedOut.Store(false)
	return def
}

func (g *Gateway) expired(cred *credstore.Credential) bool {
	return tokens.IsExpired(cred.AccessToken, g.now())
}

func (g *Gateway) send(ctx context.Context, orig *http.Request, body []byte, class Class, cred *credstore.Credential, retried bool) (*http.Response, error) {
	req := orig.Clone(ctx)
	if body != nil {
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		req.ContentLength = int64(len(body))
	}
	req.Header.Del("Authorization")
	if cred != nil && class != ClassRefresh {
		req.Header.Set("Authorization", cred.AuthorizationValue())
	}
	if req.Header.Get(headerRequestID) == "" {
		req.Header.Set(headerRequestID, uuid.NewString())
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL.Redacted(), Err: err}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	statusErr := newStatusError(req, resp)
	if statusErr.StatusCode != http.StatusUnauthorized {
		return nil, statusErr
	}

	switch {
	case class == ClassRefresh:
		g.endSession(ctx, cred, reasonRefreshFailed)
		return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, statusErr)
	case class == ClassPublic:
		return nil, statusErr
	case retried:
		g.endSession(ctx, cred, reasonUnauthorized)
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, statusErr)
	}

	g.log.Debug("retry_after_refresh", "method", req.Method, "url", statusErr.URL)
	fresh, err := g.renew(ctx, cred)
	if err != nil {
		return nil, err
	}
	return g.send(ctx, orig, body, class, fresh, true)
}

// renew runs the refresh protocol. The first caller of an episode performs
// the exchange; callers arriving while it is in flight wait for its outcome.
func (g *Gateway) renew(ctx context.Context, stale *credstore.Credential) (*credstore.Credential, error) {
	g.mu.Lock()
	if g.refreshing {
		ch := make(chan refreshOutcome, 1)
		g.waiters = append(g.waiters, ch)
		g.mu.Unlock()
		g.metrics.waiter()

		select {
		case out := <-ch:
			return out.cred, out.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	g.refreshing = true
	g.mu.Unlock()

	fresh, err := g.exchange(ctx, stale)
	if err != nil {
		g.log.Warn("refresh_failed", "error", err)
		g.metrics.refresh(outcomeFailure)
		g.clearSession(ctx)
		g.settle(refreshOutcome{err: err})
		// A request sent without any credential after the user was already
		// sent to login does not redirect again.
		if stale != nil || !g.signedOut.Load() {
			g.expire(ctx, stale, reasonRefreshFailed)
		}
		return nil, err
	}

	g.settle(refreshOutcome{cred: fresh})
	return fresh, nil
}

// settle hands the outcome to every waiter and clears the in-flight flag in
// one critical section.
func (g *Gateway) settle(out refreshOutcome) {
	g.mu.Lock()
	waiters := g.waiters
	g.waiters = nil
	g.refreshing = false
	for _, ch := range waiters {
		ch <- out
	}
	g.mu.Unlock()
}

// exchange trades the stored refresh token for a new pair and persists it.
// If another episode already stored a newer valid token, that one is used.
func (g *Gateway) exchange(ctx context.Context, stale *credstore.Credential) (*credstore.Credential, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.RefreshTimeout)
	defer cancel()

	cur, err := g.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, credstore.ErrNotFound) {
			g.log.Warn("credential_load_failed", "error", err)
		}
		return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, ErrUnauthenticated)
	}
	if (stale == nil || cur.AccessToken != stale.AccessToken) && !g.expired(cur) {
		g.metrics.refresh(outcomeReused)
		return cur, nil
	}
	if cur.RefreshToken == "" {
		return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, ErrUnauthenticated)
	}

	res, err := g.auth.RefreshTokens(ctx, cur.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	next := cur.WithTokens(res.Token, res.RefreshToken)
	if err := g.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("%w: save credential: %w", ErrRefreshFailed, err)
	}
	g.SetAuthToken(next.Scheme, next.AccessToken)

	g.metrics.refresh(outcomeSuccess)
	g.log.Info("session_refreshed", "email", next.Email)
	g.publish(ctx, events.New(events.TypeSessionRefresh, next.Email, ""))
	return next, nil
}

func (g *Gateway) clearSession(ctx context.Context) {
	if err := g.Logout(context.WithoutCancel(ctx)); err != nil {
		g.log.Error("logout_failed", "error", err)
	}
}

// endSession logs out and sends the user to login.
func (g *Gateway) endSession(ctx context.Context, cred *credstore.Credential, reason string) {
	g.clearSession(ctx)
	g.expire(ctx, cred, reason)
}

func (g *Gateway) expire(ctx context.Context, cred *credstore.Credential, reason string) {
	var email string
	if cred != nil {
		email = cred.Email
	}
	g.metrics.logout(reason)
	g.log.Warn("session_expired", "email", email, "reason", reason)
	g.publish(ctx, events.New(events.TypeSessionExpired, email, reason))
	g.signedOut.Store(true)
	g.nav.Navigate(ctx, g.LoginTarget())
}

func (g *Gateway) publish(ctx context.Context, ev events.Event) {
	if err := g.events.PublishEvent(context.WithoutCancel(ctx), g.cfg.EventsTopic, ev.Email, ev); err != nil {
		g.log.Warn("publish_event_failed", "type", ev.Type, "error", err)
	}
}

func snapshotBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		rc, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	defer req.Body.Close()
	return io.ReadAll(req.Body)
}
