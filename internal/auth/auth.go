package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"Trestle/internal/repo"
)

type contextKey string

const (
	userIDKey    contextKey = "userID"
	userLoginKey contextKey = "userLogin"
)

const (
	cookieName = "session_token"
	defaultTTL = 30 * 24 * time.Hour
)

var errBadToken = errors.New("invalid token")

// UserID returns the authenticated user of a request context.
func UserID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(userIDKey).(int)
	return id, ok && id != 0
}

// UserLogin returns the login of the authenticated user.
func UserLogin(ctx context.Context) string {
	login, _ := ctx.Value(userLoginKey).(string)
	return login
}

// WithUser attaches a user to ctx the way AuthMiddleware does.
func WithUser(ctx context.Context, id int, login string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, id)
	return context.WithValue(ctx, userLoginKey, login)
}

type Authenv struct {
	JWTkey []byte
	Repo   repo.Repository
	// TTL is the session lifetime; zero means thirty days.
	TTL time.Duration
	// Insecure drops the Secure cookie flag for plain HTTP deployments.
	Insecure bool
}

type IPRateLimiter struct {
	ips map[string]*rate.Limiter
	mu  sync.RWMutex
	r   rate.Limit
	b   int
}

type Loginrequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type Registerrequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// TokenResponse is returned by login and registration so API clients can
// send the token as a bearer header instead of the cookie.
type TokenResponse struct {
	UserID    int       `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: make(map[string]*rate.Limiter),
		r:   r,
		b:   b,
	}
}

func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists := i.ips[ip]
	if !exists {
		limiter = rate.NewLimiter(i.r, i.b)
		i.ips[ip] = limiter
	}
	return limiter
}

// LimitMiddleware rejects requests above the per-IP rate.
func (i *IPRateLimiter) LimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !i.getLimiter(ip).Allow() {
			http.Error(w, "Too Many Requests. Try again later.", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func (env *Authenv) ttl() time.Duration {
	if env.TTL <= 0 {
		return defaultTTL
	}
	return env.TTL
}

func (env *Authenv) RedirectIfLoggedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(cookieName)
		if err == nil {
			if _, _, err := env.parse(cookie.Value); err == nil {
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (env *Authenv) parse(tokenString string) (int, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return env.JWTkey, nil
	})
	if err != nil {
		return 0, "", err
	}
	if !token.Valid {
		return 0, "", errBadToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", errBadToken
	}
	userID, ok := claims["user_id"].(float64)
	if !ok || userID == 0 {
		return 0, "", errBadToken
	}
	login, ok := claims["login"].(string)
	if !ok || login == "" {
		return 0, "", errBadToken
	}
	return int(userID), login, nil
}

func tokenOf(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// AuthMiddleware guards pages: unauthenticated visitors go to the login page.
func (env *Authenv) AuthMiddleware(next http.Handler) http.Handler {
	return env.guard(next, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/auth/", http.StatusSeeOther)
	})
}

// APIMiddleware guards API routes and answers 401 instead of redirecting.
func (env *Authenv) APIMiddleware(next http.Handler) http.Handler {
	return env.guard(next, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}

func (env *Authenv) guard(next http.Handler, deny http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := tokenOf(r)
		if tok == "" {
			deny(w, r)
			return
		}
		id, login, err := env.parse(tok)
		if err != nil {
			log.WithError(err).Debug("rejected session token")
			deny(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), id, login)))
	})
}

// NewToken signs a session token.
func (env *Authenv) NewToken(userID int, login string) (string, time.Time, error) {
	exp := time.Now().Add(env.ttl())
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"login":   login,
		"exp":     exp.Unix(),
	})
	s, err := token.SignedString(env.JWTkey)
	return s, exp, err
}

func (env *Authenv) addCookie(w http.ResponseWriter, userID int, login string) (TokenResponse, error) {
	tokenString, exp, err := env.NewToken(userID, login)
	if err != nil {
		return TokenResponse{}, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    tokenString,
		Expires:  exp,
		Path:     "/",
		HttpOnly: true,
		Secure:   !env.Insecure,
		SameSite: http.SameSiteLaxMode,
	})
	return TokenResponse{UserID: userID, Token: tokenString, ExpiresAt: exp}, nil
}

func (env *Authenv) respond(w http.ResponseWriter, status, userID int, login string) {
	tr, err := env.addCookie(w, userID, login)
	if err != nil {
		log.WithError(err).Error("token signing failed")
		http.Error(w, "Token error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(tr)
}

func (env *Authenv) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req Registerrequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	req.Login = strings.TrimSpace(req.Login)
	req.Email = strings.TrimSpace(req.Email)
	if req.Login == "" || req.Email == "" || req.Password == "" {
		http.Error(w, "Login, email and password required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 6 {
		http.Error(w, "Password too short", http.StatusBadRequest)
		return
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}
	id, err := env.Repo.CreateUser(r.Context(), req.Login, req.Email, hashedPassword)
	if err != nil {
		log.WithError(err).WithField("login", req.Login).Warn("create user failed")
		http.Error(w, "User already exists or DB error", http.StatusConflict)
		return
	}

	env.respond(w, http.StatusCreated, id, req.Login)
}

func (env *Authenv) AuthHandler(w http.ResponseWriter, r *http.Request) {
	var req Loginrequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" || req.Password == "" {
		http.Error(w, "Login and password required", http.StatusBadRequest)
		return
	}

	id, storedHash, err := env.Repo.GetBylogin(r.Context(), req.Login)
	if err != nil {
		log.WithError(err).Error("user lookup failed")
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}
	if id == 0 || bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(req.Password)) != nil {
		http.Error(w, "Invalid login or password", http.StatusUnauthorized)
		return
	}
	env.respond(w, http.StatusOK, id, req.Login)
}
