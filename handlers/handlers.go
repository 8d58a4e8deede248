package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	bearauth "github.com/bearauth/bearauth"
	"github.com/bearauth/bearauth/internal/flows"
)

// Authenticator verifies the credentials carried by a login request and
// returns the principal ID they belong to. Returning an error denies the
// login with 401.
type Authenticator func(r *http.Request) (string, error)

// PrincipalSerializer renders the principal field of a login response.
// The default emits {"id": ..., "username": ...}.
type PrincipalSerializer func(p *bearauth.Principal) any

// ExpiryFormatter renders expiry timestamps in responses. The default is
// RFC 3339 in UTC; a nil expiry (non-expiring token) is always JSON null.
type ExpiryFormatter func(t time.Time) any

// API serves the token lifecycle endpoints for one Engine.
type API struct {
	engine       *bearauth.Engine
	authenticate Authenticator
	serialize    PrincipalSerializer
	formatExpiry ExpiryFormatter
}

// New creates an [API]. authenticate is required for the login endpoint;
// passing nil disables it (login returns 404).
func New(engine *bearauth.Engine, authenticate Authenticator) *API {
	return &API{
		engine:       engine,
		authenticate: authenticate,
		serialize:    defaultSerializer,
		formatExpiry: defaultExpiryFormat,
	}
}

// WithPrincipalSerializer overrides the principal rendering in login
// responses.
func (a *API) WithPrincipalSerializer(s PrincipalSerializer) *API {
	if s != nil {
		a.serialize = s
	}
	return a
}

// WithExpiryFormatter overrides expiry rendering in login responses.
func (a *API) WithExpiryFormatter(f ExpiryFormatter) *API {
	if f != nil {
		a.formatExpiry = f
	}
	return a
}

// Mount registers all endpoints on mux under the given prefix (for example
// "/auth"). An empty prefix mounts at the root.
func (a *API) Mount(mux *http.ServeMux, prefix string) {
	prefix = strings.TrimSuffix(prefix, "/")
	mux.Handle("POST "+prefix+"/login", http.HandlerFunc(a.Login))
	mux.Handle("POST "+prefix+"/logout", http.HandlerFunc(a.Logout))
	mux.Handle("POST "+prefix+"/logoutall", http.HandlerFunc(a.LogoutAll))
	mux.Handle("POST "+prefix+"/refresh", http.HandlerFunc(a.Refresh))
}

type loginResponse struct {
	Expiry       any    `json:"expiry"`
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Principal    any    `json:"user,omitempty"`
}

// Login verifies credentials through the configured [Authenticator] and
// issues a token. A "ttl" query parameter (Go duration syntax) requests a
// per-login lifetime override.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	if a.authenticate == nil {
		http.NotFound(w, r)
		return
	}

	principalID, err := a.authenticate(r)
	if err != nil || principalID == "" {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	opts := bearauth.LoginOptions{}
	if raw := r.URL.Query().Get("ttl"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl < 0 {
			http.Error(w, "invalid ttl", http.StatusBadRequest)
			return
		}
		opts = bearauth.LoginOptions{TTL: ttl, HasTTL: true}
	}

	result, err := a.engine.LoginWithOptions(r.Context(), principalID, opts)
	if err != nil {
		a.writeLoginError(w, err)
		return
	}

	a.setCookie(w, result.Token, result.Expiry)

	resp := loginResponse{
		Expiry:       a.expiryField(result.Expiry),
		Token:        result.Token,
		RefreshToken: result.RefreshToken,
	}
	if result.Principal != nil {
		resp.Principal = a.serialize(result.Principal)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout revokes the presented token and clears the cookie carrier.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	tokenStr, err := a.requestToken(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	if err := a.engine.Logout(r.Context(), tokenStr); err != nil {
		a.writeAuthError(w, err)
		return
	}

	a.clearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll revokes every token held by the authenticated principal.
func (a *API) LogoutAll(w http.ResponseWriter, r *http.Request) {
	tokenStr, err := a.requestToken(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	res, err := a.engine.AuthenticateToken(r.Context(), tokenStr)
	if err != nil {
		a.writeAuthError(w, err)
		return
	}

	if err := a.engine.LogoutAll(r.Context(), res.PrincipalID); err != nil {
		http.Error(w, "logout failed", http.StatusServiceUnavailable)
		return
	}

	a.clearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a new pair.
func (a *API) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		http.Error(w, "refresh_token required", http.StatusBadRequest)
		return
	}

	result, err := a.engine.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, bearauth.ErrRefreshDisabled):
			http.NotFound(w, r)
		case errors.Is(err, bearauth.ErrRotationThrottled):
			http.Error(w, "too many requests", http.StatusTooManyRequests)
		case errors.Is(err, bearauth.ErrStoreUnavailable):
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		default:
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}
		return
	}

	a.setCookie(w, result.Token, result.Expiry)

	resp := loginResponse{
		Expiry:       a.expiryField(result.Expiry),
		Token:        result.Token,
		RefreshToken: result.RefreshToken,
	}
	if result.Principal != nil {
		resp.Principal = a.serialize(result.Principal)
	}
	writeJSON(w, http.StatusOK, resp)
}

// requestToken extracts the credential from the Authorization header or,
// when the cookie carrier is enabled, from the cookie. Malformed headers
// under our scheme keep the distinct transport-layer errors the engine's
// Authenticate produces.
func (a *API) requestToken(r *http.Request) (string, error) {
	cfg := a.engine.Config()

	credential, failure := flows.ParseAuthorizationHeader(r.Header.Get("Authorization"), cfg.Token.HeaderScheme)
	switch failure {
	case flows.ValidateFailureNone:
		return credential, nil
	case flows.ValidateFailureNoCredentials:
		return "", bearauth.ErrNoCredentials
	case flows.ValidateFailureTokenContainsSpaces:
		return "", bearauth.ErrTokenContainsSpaces
	}

	// No header, or another authenticator's scheme: fall back to the
	// cookie carrier.
	if cfg.Cookie.Enabled {
		if c, err := r.Cookie(cfg.Cookie.Name); err == nil && c.Value != "" {
			return c.Value, nil
		}
	}
	return "", bearauth.ErrNoCredentials
}

func (a *API) writeLoginError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bearauth.ErrTokenLimitExceeded):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, bearauth.ErrTTLTooLong):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, bearauth.ErrLoginThrottled):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, bearauth.ErrPrincipalInactive), errors.Is(err, bearauth.ErrPrincipalNotFound):
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	case errors.Is(err, bearauth.ErrStoreUnavailable):
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "login failed", http.StatusInternalServerError)
	}
}

func (a *API) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bearauth.ErrPrincipalInactive):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, bearauth.ErrStoreUnavailable):
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
}

func (a *API) setCookie(w http.ResponseWriter, tokenStr string, expiry time.Time) {
	cfg := a.engine.Config()
	if !cfg.Cookie.Enabled {
		return
	}
	cookie := &http.Cookie{
		Name:     cfg.Cookie.Name,
		Value:    tokenStr,
		Path:     cfg.Cookie.Path,
		Secure:   cfg.Cookie.Secure,
		HttpOnly: cfg.Cookie.HTTPOnly,
		SameSite: cfg.Cookie.SameSite,
	}
	if !expiry.IsZero() {
		cookie.Expires = expiry
	}
	http.SetCookie(w, cookie)
}

func (a *API) clearCookie(w http.ResponseWriter) {
	cfg := a.engine.Config()
	if !cfg.Cookie.Enabled {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Cookie.Name,
		Value:    "",
		Path:     cfg.Cookie.Path,
		Secure:   cfg.Cookie.Secure,
		HttpOnly: cfg.Cookie.HTTPOnly,
		SameSite: cfg.Cookie.SameSite,
		MaxAge:   -1,
	})
}

func (a *API) expiryField(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return a.formatExpiry(t)
}

func defaultSerializer(p *bearauth.Principal) any {
	return map[string]string{
		"id":       p.ID,
		"username": p.Username,
	}
}

func defaultExpiryFormat(t time.Time) any {
	return t.UTC().Format(time.RFC3339)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
