package shared

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "fuelcast:session:"

// FlashMessage is a one-shot notice shown on the next rendered page.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// sessionState is the part of a session stored in Redis.
type sessionState struct {
	Values  map[string]string `json:"values"`
	Flashes []FlashMessage    `json:"flashes,omitempty"`
}

// Session is the per-browser UI state: the layout, the feed toggle, the
// CSRF token and pending toasts.
type Session struct {
	ID      string
	state   sessionState
	changed bool

	// Edits made during this request, replayed onto the stored state at
	// commit. A nil value deletes the key.
	edits  map[string]*string
	added  []FlashMessage
	popped int
	loaded int
}

// SessionManager loads and saves sessions keyed by an opaque cookie.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
}

// NewSessionManager constructs a SessionManager. The cookie carries the
// session id signed with secret.
func NewSessionManager(client *redis.Client, cookieName string, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		secret:     []byte(secret),
	}
}

// Load returns the session named by the request cookie. A missing or
// unsigned cookie, or an id Redis does not know, yields a fresh session.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return sm.fresh(), nil
	}
	if err != nil {
		return nil, err
	}
	id, ok := sm.verify(cookie.Value)
	if !ok {
		return sm.fresh(), nil
	}

	raw, err := sm.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return sm.fresh(), nil
	case err != nil:
		return nil, fmt.Errorf("session: load: %w", err)
	}

	sess := &Session{ID: id}
	if err := json.Unmarshal(raw, &sess.state); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	sess.loaded = len(sess.state.Flashes)
	return sess, nil
}

// Commit saves a changed session and refreshes the cookie.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return nil
	}
	if sess.ID == "" {
		sess.ID = newSessionID()
		sess.changed = true
	}
	if sess.changed {
		if err := sm.save(ctx, sess); err != nil {
			return err
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sm.sign(sess.ID),
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

const sessionSaveAttempts = 5

// save merges the request's edits into whatever is stored now, so a slow
// request does not overwrite changes another tab committed meanwhile.
func (sm *SessionManager) save(ctx context.Context, sess *Session) error {
	key := sessionKeyPrefix + sess.ID
	var merged sessionState
	apply := func(tx *redis.Tx) error {
		merged = sessionState{}
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, &merged); err != nil {
				return fmt.Errorf("session: decode: %w", err)
			}
		}
		sess.mergeInto(&merged)
		encoded, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("session: encode: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, sm.ttl)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < sessionSaveAttempts; attempt++ {
		err = sm.client.Watch(ctx, apply, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("session: save: %w", err)
	}

	sess.state = merged
	sess.changed = false
	sess.edits = nil
	sess.added = nil
	sess.popped = 0
	sess.loaded = len(merged.Flashes)
	return nil
}

func (s *Session) mergeInto(stored *sessionState) {
	for key, value := range s.edits {
		if value == nil {
			delete(stored.Values, key)
			continue
		}
		if stored.Values == nil {
			stored.Values = make(map[string]string)
		}
		stored.Values[key] = *value
	}
	drop := s.popped
	if drop > len(stored.Flashes) {
		drop = len(stored.Flashes)
	}
	stored.Flashes = append(stored.Flashes[drop:], s.added...)
}

func (sm *SessionManager) fresh() *Session {
	return &Session{ID: newSessionID(), changed: true}
}

func newSessionID() string {
	return uuid.NewString()
}

func (sm *SessionManager) mac(id string) string {
	h := hmac.New(sha256.New, sm.secret)
	_, _ = h.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (sm *SessionManager) sign(id string) string {
	return id + "." + sm.mac(id)
}

func (sm *SessionManager) verify(value string) (string, bool) {
	id, sig, found := strings.Cut(value, ".")
	if !found || id == "" {
		return "", false
	}
	return id, hmac.Equal([]byte(sig), []byte(sm.mac(id)))
}

// Set stores a value. Writing the current value is a no-op.
func (s *Session) Set(key, value string) {
	if current, ok := s.state.Values[key]; ok && current == value {
		return
	}
	if s.state.Values == nil {
		s.state.Values = make(map[string]string)
	}
	s.state.Values[key] = value
	s.record(key, &value)
}

// Get returns the value stored under key or "".
func (s *Session) Get(key string) string {
	return s.state.Values[key]
}

// Delete removes key.
func (s *Session) Delete(key string) {
	if _, ok := s.state.Values[key]; !ok {
		return
	}
	delete(s.state.Values, key)
	s.record(key, nil)
}

func (s *Session) record(key string, value *string) {
	if s.edits == nil {
		s.edits = make(map[string]*string)
	}
	s.edits[key] = value
	s.changed = true
}

// AddFlash queues a toast for the next page.
func (s *Session) AddFlash(msg FlashMessage) {
	s.state.Flashes = append(s.state.Flashes, msg)
	s.added = append(s.added, msg)
	s.changed = true
}

// PopFlash dequeues the oldest toast, nil when none is pending.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.state.Flashes) == 0 {
		return nil
	}
	msg := s.state.Flashes[0]
	s.state.Flashes = s.state.Flashes[1:]
	if s.popped < s.loaded {
		s.popped++
	} else {
		s.added = s.added[1:]
	}
	s.changed = true
	return &msg
}

type sessionKey struct{}

// ContextWithSession attaches sess to ctx for downstream handlers.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the request session or nil outside the session middleware.
func SessionFromContext(ctx context.Context) *Session {
	if sess, ok := ctx.Value(sessionKey{}).(*Session); ok {
		return sess
	}
	return nil
}
