package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/crypto/bcrypt"

	"github.com/sanskriti-setu/setu/backend/store"
)

// UserIDKey is the key type for storing user ID in context
type UserIDKey string

const userIDKey UserIDKey = "userID"

// userIDFrom returns the authenticated user id put in the context by
// authenticate.
func userIDFrom(ctx context.Context) int {
	id, _ := ctx.Value(userIDKey).(int)
	return id
}

type tokenClaims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// tokenAuth issues and checks HS256 session tokens.
type tokenAuth struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func newTokenAuth(secret []byte, ttl time.Duration) *tokenAuth {
	return &tokenAuth{secret: secret, ttl: ttl, now: time.Now}
}

func (a *tokenAuth) issue(userID int) (string, error) {
	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	})
	return token.SignedString(a.secret)
}

func (a *tokenAuth) parse(tokenStr string) (int, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return 0, err
	}
	if claims.UserID <= 0 {
		return 0, errors.New("token carries no user id")
	}
	return claims.UserID, nil
}

// getUserIDFromRequest reads the token from the Authorization header, or
// from the token query parameter for websockets (browsers can't set
// headers there).
func (a *tokenAuth) getUserIDFromRequest(r *http.Request) (int, bool) {
	tokenStr := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		tokenStr = strings.TrimPrefix(h, "Bearer ")
	} else if q := r.URL.Query().Get("token"); q != "" {
		tokenStr = q
	}
	if tokenStr == "" {
		return 0, false
	}
	id, err := a.parse(tokenStr)
	if err != nil {
		return 0, false
	}
	return id, true
}

// authenticate rejects requests without a valid token, refreshes the
// caller's presence and puts the user id in the context.
func authenticate(a *tokenAuth, st Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := a.getUserIDFromRequest(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if err := st.Touch(r.Context(), userID); err != nil {
				hlog.FromRequest(r).Warn().Err(err).Int("user_id", userID).Msg("failed to update last_online")
			}
			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
	ID    int    `json:"id"`
}

func avatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
}

func registerHandler(st Store, a *tokenAuth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if !decodeJSON(w, r, &req) {
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		req.Email = store.NormalizeEmail(req.Email)
		req.Password = strings.TrimSpace(req.Password)
		if req.Name == "" || req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "missing_fields")
			return
		}
		if len(req.Password) < 8 || len(req.Password) > 72 {
			writeError(w, http.StatusBadRequest, "invalid_password")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeInternal(w, r, "hash_error", err)
			return
		}

		id, err := st.CreateUser(r.Context(), store.NewUser{
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: string(hash),
			Avatar:       avatarURL(req.Name),
		})
		if errors.Is(err, store.ErrEmailExists) {
			writeError(w, http.StatusConflict, "email_exists")
			return
		}
		if err != nil {
			writeInternal(w, r, "register_error", err)
			return
		}

		token, err := a.issue(id)
		if err != nil {
			writeInternal(w, r, "token_generation_error", err)
			return
		}
		hlog.FromRequest(r).Info().Int("user_id", id).Msg("user registered")
		writeJSON(w, http.StatusCreated, tokenResponse{Token: token, ID: id})
	}
}

func loginHandler(st Store, a *tokenAuth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if !decodeJSON(w, r, &req) {
			return
		}

		req.Email = store.NormalizeEmail(req.Email)
		req.Password = strings.TrimSpace(req.Password)
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "missing_fields")
			return
		}

		u, err := st.UserByEmail(r.Context(), req.Email)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		if err != nil {
			writeInternal(w, r, "db_error", err)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}

		if err := st.Touch(r.Context(), u.ID); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("failed to update last_online")
		}

		token, err := a.issue(u.ID)
		if err != nil {
			writeInternal(w, r, "token_generation_error", err)
			return
		}
		writeJSON(w, http.StatusOK, tokenResponse{Token: token, ID: u.ID})
	}
}

// GET /me
func meHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := st.User(r.Context(), userIDFrom(r.Context()))
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		if err != nil {
			writeInternal(w, r, "db_error", fmt.Errorf("load me: %w", err))
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}
