package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	goPubtkt "github.com/MrEthical07/goPubtkt"
)

// Identity headers set on the request passed downstream when
// [WithForwardIdentityHeaders] is used.
const (
	HeaderRemoteUser       = "X-Remote-User"
	HeaderRemoteUserTokens = "X-Remote-User-Tokens"
	HeaderRemoteUserData   = "X-Remote-User-Data"
)

// AuthResult is the authenticated identity stored in the request context.
type AuthResult struct {
	UID        string
	Tokens     []string
	UserData   string
	ValidUntil time.Time
	// Cached reports that signature verification was skipped.
	Cached bool
}

type authResultContextKey struct{}

func AuthResultFromContext(ctx context.Context) (*AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*AuthResult)
	return res, ok
}

type options struct {
	trustForwardedProto bool
	forwardIdentity     bool
	clientIP            func(*http.Request) string
	logger              *slog.Logger
}

// Option configures Guard and Scoped.
type Option func(*options)

// WithTrustForwardedProto treats X-Forwarded-Proto: https as TLS. Only use
// it behind a proxy that overwrites the header.
func WithTrustForwardedProto() Option {
	return func(o *options) { o.trustForwardedProto = true }
}

// WithForwardIdentityHeaders sets X-Remote-User, X-Remote-User-Tokens and
// X-Remote-User-Data on the downstream request. Client-supplied values of
// these headers are always removed first.
func WithForwardIdentityHeaders() Option {
	return func(o *options) { o.forwardIdentity = true }
}

// WithClientIPFunc overrides how the requester address is derived. The
// default is the host part of r.RemoteAddr.
func WithClientIPFunc(fn func(*http.Request) string) Option {
	return func(o *options) {
		if fn != nil {
			o.clientIP = fn
		}
	}
}

// WithLogger sets the logger used for directories with Debug enabled.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		clientIP: remoteAddrIP,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Guard protects next with one fixed directory policy.
func Guard(engine *goPubtkt.Engine, dir goPubtkt.Directory, opts ...Option) func(http.Handler) http.Handler {
	o := newOptions(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			serve(engine, dir, o, next, w, r)
		})
	}
}

// Scoped protects next with the directory policy configured for each
// request's path.
func Scoped(engine *goPubtkt.Engine, opts ...Option) func(http.Handler) http.Handler {
	o := newOptions(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			serve(engine, engine.Directory(r.URL.Path), o, next, w, r)
		})
	}
}

func serve(engine *goPubtkt.Engine, dir goPubtkt.Directory, o *options, next http.Handler, w http.ResponseWriter, r *http.Request) {
	if engine == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if dir.RequireSSL && !isTLS(r, o.trustForwardedProto) {
		o.debug(r.Context(), dir, "ticket refused over plain http")
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	ip := o.clientIP(r)
	ctx := goPubtkt.WithRequestPath(goPubtkt.WithClientIP(r.Context(), ip), r.URL.Path)

	raw := ticketFromRequest(r, dir.CookieName, engine.MinTicketSize(), engine.MaxTicketSize())
	d, err := engine.Authenticate(ctx, raw, ip, dir.Policy())
	if err != nil {
		switch {
		case errors.Is(err, goPubtkt.ErrVerifyRateLimited):
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		case errors.Is(err, goPubtkt.ErrTicketMissing):
			o.debug(ctx, dir, "no ticket presented")
		default:
			o.debug(ctx, dir, "ticket rejected", slog.String("error", err.Error()))
		}
		redirectTo(w, r, dir, dir.LoginURL, o.trustForwardedProto)
		return
	}

	switch d.Result {
	case goPubtkt.Valid:
	case goPubtkt.Expired:
		target := dir.TimeoutURL
		if r.Method == http.MethodPost && dir.PostTimeoutURL != "" {
			target = dir.PostTimeoutURL
		}
		if target == "" {
			target = dir.LoginURL
		}
		o.debug(ctx, dir, "ticket expired", slog.String("uid", d.Ticket.UID))
		redirectTo(w, r, dir, target, o.trustForwardedProto)
		return
	case goPubtkt.IPMismatch:
		o.debug(ctx, dir, "ticket client ip mismatch", slog.String("uid", d.Ticket.UID), slog.String("ip", ip))
		redirectTo(w, r, dir, dir.LoginURL, o.trustForwardedProto)
		return
	case goPubtkt.MissingRequiredTokens:
		o.debug(ctx, dir, "ticket lacks required tokens", slog.String("uid", d.Ticket.UID))
		if dir.UnauthURL == "" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		redirectTo(w, r, dir, dir.UnauthURL, o.trustForwardedProto)
		return
	}

	res := &AuthResult{
		UID:        d.Ticket.UID,
		Tokens:     d.Ticket.TokenList(),
		UserData:   d.Ticket.UserData,
		ValidUntil: time.Unix(int64(d.Ticket.ValidUntil), 0),
		Cached:     d.Cached,
	}

	r = r.WithContext(context.WithValue(r.Context(), authResultContextKey{}, res))
	if o.forwardIdentity {
		r.Header.Del(HeaderRemoteUser)
		r.Header.Del(HeaderRemoteUserTokens)
		r.Header.Del(HeaderRemoteUserData)
		r.Header.Set(HeaderRemoteUser, res.UID)
		if d.Ticket.Tokens != "" {
			r.Header.Set(HeaderRemoteUserTokens, d.Ticket.Tokens)
		}
		if res.UserData != "" {
			r.Header.Set(HeaderRemoteUserData, res.UserData)
		}
	}
	next.ServeHTTP(w, r)
}

func (o *options) debug(ctx context.Context, dir goPubtkt.Directory, msg string, attrs ...slog.Attr) {
	if !dir.Debug {
		return
	}
	attrs = append(attrs, slog.String("directory", dir.Path))
	o.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

// ticketFromRequest returns the first cookie named name whose unescaped
// value has an acceptable length, falling back to a query parameter of the
// same name. Values outside [minLen, maxLen] are treated as absent; a zero
// maxLen means no upper bound.
func ticketFromRequest(r *http.Request, name string, minLen, maxLen int) string {
	accept := func(v string) (string, bool) {
		v = strings.Trim(v, `"`)
		if u, err := url.PathUnescape(v); err == nil {
			v = u
		}
		if len(v) < minLen || (maxLen > 0 && len(v) > maxLen) {
			return "", false
		}
		return v, true
	}

	for _, c := range r.Cookies() {
		if c.Name != name {
			continue
		}
		if v, ok := accept(c.Value); ok {
			return v
		}
	}

	for _, kv := range strings.Split(r.URL.RawQuery, "&") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k != name {
			continue
		}
		if v, ok := accept(v); ok {
			return v
		}
	}
	return ""
}

func redirectTo(w http.ResponseWriter, r *http.Request, dir goPubtkt.Directory, target string, trustProto bool) {
	if target == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	back := dir.BackArgName
	if back == "" {
		back = goPubtkt.DefaultBackArgName
	}
	location := target + sep + back + "=" + goPubtkt.Escape(requestURL(r, trustProto))

	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusFound)
}

func requestURL(r *http.Request, trustProto bool) string {
	scheme := "http"
	if isTLS(r, trustProto) {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func isTLS(r *http.Request, trustProto bool) bool {
	if r.TLS != nil {
		return true
	}
	return trustProto && strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func remoteAddrIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
