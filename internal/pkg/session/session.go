package session

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/JobFox/internal/pkg/cache"
	"github.com/ManuelReschke/JobFox/internal/pkg/env"
)

const cookieName = "visitor_id"

var sessionStore *session.Store

func config() session.Config {
	return session.Config{
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		Expiration:     env.GetEnvDuration("SESSION_EXPIRATION", 30*24*time.Hour),
		KeyLookup:      "cookie:" + cookieName,
	}
}

// NewSessionStore keeps visitor sessions in Redis when the cache client is
// configured and in process memory otherwise.
func NewSessionStore() *session.Store {
	cfg := config()

	if cacheClient := cache.GetClient(); cacheClient != nil {
		host := "localhost"
		port := 6379
		password := env.GetEnv("CACHE_PASSWORD", "")
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
		// Sessions use their own database, the shared cache stays on CACHE_DB.
		cfg.Storage = redis.New(redis.Config{
			Host:     host,
			Port:     port,
			Password: password,
			Database: env.GetEnvInt("SESSION_DB", 1),
			Reset:    false,
		})
	}

	sessionStore = session.New(cfg)
	return sessionStore
}

// NewMemorySessionStore is used by tests and single-instance setups.
func NewMemorySessionStore() *session.Store {
	sessionStore = session.New(config())
	return sessionStore
}

func GetSessionStore() *session.Store {
	return sessionStore
}

// Visitor exposes the request's session as a key/value store. It returns nil
// when no session store is configured.
func Visitor(c *fiber.Ctx) cache.Store {
	if sessionStore == nil {
		return nil
	}
	return &visitorStore{store: sessionStore, c: c}
}

// VisitorKey identifies the visitor for grouping concurrent detections: the
// session cookie when present, the resolved client IP otherwise. clientIP
// should already account for proxy headers; the peer address is used only
// when it is empty.
func VisitorKey(c *fiber.Ctx, clientIP string) string {
	if id := c.Cookies(cookieName); id != "" {
		return "session:" + id
	}
	if clientIP == "" {
		clientIP = c.IP()
	}
	return "ip:" + clientIP
}

type visitorStore struct {
	store *session.Store
	c     *fiber.Ctx
}

func (v *visitorStore) Get(_ context.Context, key string) (string, bool, error) {
	sess, err := v.store.Get(v.c)
	if err != nil {
		return "", false, fmt.Errorf("failed to get session: %v", err)
	}
	value, ok := sess.Get(key).(string)
	return value, ok, nil
}

// Set saves immediately; a fiber session must not be used after Save, so
// every call fetches it again. The session id is written back into the
// request so a later Get in the same request finds a fresh visitor's data.
func (v *visitorStore) Set(_ context.Context, key, value string) error {
	sess, err := v.store.Get(v.c)
	if err != nil {
		return fmt.Errorf("failed to get session: %v", err)
	}
	id := sess.ID()
	sess.Set(key, value)
	if err := sess.Save(); err != nil {
		return err
	}
	v.c.Request().Header.SetCookie(cookieName, id)
	return nil
}
