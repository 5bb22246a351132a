package web

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// SessionCookie carries the token issued by a successful login
const SessionCookie = "terio_session"

var (
	ErrBadPassword     = errors.New("incorrect password")
	ErrTooManyAttempts = errors.New("too many login attempts")
)

// Gate protects the API with a single shared password. A nil Gate lets every
// request through.
type Gate struct {
	mu       sync.Mutex
	hash     []byte
	attempts map[string]*rate.Limiter // per client address
	limit    rate.Limit
	burst    int
	tokens   map[string]time.Time
	ttl      time.Duration
	now      func() time.Time
}

// NewGate hashes password; an empty password disables the gate
func NewGate(password string) (*Gate, error) {
	if password == "" {
		return nil, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &Gate{
		hash:     hash,
		attempts: make(map[string]*rate.Limiter),
		// Five attempts in a burst, then one every two seconds
		limit:  rate.Every(2 * time.Second),
		burst:  5,
		tokens: make(map[string]time.Time),
		ttl:    12 * time.Hour,
		now:    time.Now,
	}, nil
}

// SetPassword replaces the password and ends every open session
func (g *Gate) SetPassword(password string) error {
	if g == nil {
		return errors.New("login is disabled; restart to enable it")
	}
	if password == "" {
		return errors.New("empty password; restart to disable login")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	g.mu.Lock()
	g.hash = hash
	g.tokens = make(map[string]time.Time)
	g.mu.Unlock()
	return nil
}

// Enabled reports whether requests need a session
func (g *Gate) Enabled() bool {
	return g != nil
}

// Login checks password for client and issues a session token. Attempts are
// throttled per client so one noisy address cannot lock out the others.
func (g *Gate) Login(client, password string) (string, error) {
	if g == nil {
		return "", nil
	}
	now := g.now()

	g.mu.Lock()
	g.sweep(now)
	lim, ok := g.attempts[client]
	if !ok {
		lim = rate.NewLimiter(g.limit, g.burst)
		g.attempts[client] = lim
	}
	allowed := lim.AllowN(now, 1)
	hash := g.hash
	g.mu.Unlock()

	if !allowed {
		return "", ErrTooManyAttempts
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", ErrBadPassword
	}

	token := uuid.NewString()
	g.mu.Lock()
	g.tokens[token] = now.Add(g.ttl)
	g.mu.Unlock()
	return token, nil
}

// sweep drops expired sessions and limiters that have refilled. Caller holds g.mu.
func (g *Gate) sweep(now time.Time) {
	for token, expires := range g.tokens {
		if now.After(expires) {
			delete(g.tokens, token)
		}
	}
	for client, lim := range g.attempts {
		if lim.TokensAt(now) >= float64(g.burst) {
			delete(g.attempts, client)
		}
	}
}

// Valid reports whether token belongs to a live session
func (g *Gate) Valid(token string) bool {
	if g == nil {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	expires, ok := g.tokens[token]
	if !ok {
		return false
	}
	if g.now().After(expires) {
		delete(g.tokens, token)
		return false
	}
	return true
}

// Logout forgets token
func (g *Gate) Logout(token string) {
	if g == nil {
		return
	}
	g.mu.Lock()
	delete(g.tokens, token)
	g.mu.Unlock()
}

// Middleware rejects requests without a valid session cookie
func (g *Gate) Middleware(next http.Handler) http.Handler {
	if g == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil || !g.Valid(c.Value) {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "login required", Code: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.gate.Enabled() {
		writeJSON(w, http.StatusOK, loginResponse{Enabled: false})
		return
	}
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	token, err := s.gate.Login(clientAddr(r), req.Password)
	if err != nil {
		s.log.Warn("login rejected", "remote", r.RemoteAddr, "error", err)
		writeError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{Enabled: true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		s.gate.Logout(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:   SessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

// clientAddr is the remote host without its port
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
