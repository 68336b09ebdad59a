// session — общая клиентская библиотека сессии для приложений, которые
// делят токены auth-service (публичный сайт, админ-консоль, личный кабинет).
//
// Manager хранит копию токена приложения, восстанавливает её при старте,
// принимает токен, переданный другим приложением через ?token= (handoff),
// и через Poller сходится к «вышел» после отзыва токена в любом из приложений.
// Локальный выход приоритетнее серверного: сбой сервера никогда не оставляет
// пользователя «залогиненным» локально.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/pribylovaa/propertia-auth/internal/models"
	"github.com/pribylovaa/propertia-auth/internal/token"
	"github.com/pribylovaa/propertia-auth/pkg/authclient"
)

// HandoffParam — query-параметр, в котором приложение получает чужой токен.
const HandoffParam = "token"

// fallbackAdminName — имя и e-mail по умолчанию в админ-приложении,
// если ни сервер, ни claims их не дали.
const fallbackAdminName = "Admin"

// Remote — обращения к auth-service (реализуется *authclient.Client).
type Remote interface {
	Verifier
	Me(ctx context.Context, token string) (*models.Profile, error)
	Logout(ctx context.Context, token string) error
}

// Identity — снимок профиля владельца токена.
type Identity struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// Session — состояние сессии приложения.
type Session struct {
	Token         string    `json:"-"`
	Identity      *Identity `json:"identity,omitempty"`
	Authenticated bool      `json:"authenticated"`
	Loading       bool      `json:"loading"`
}

// InvalidationReason — почему сессия потеряна без явного выхода.
type InvalidationReason string

const (
	// InvalidatedExpired — сохранённый токен истёк (обнаружено локально).
	InvalidatedExpired InvalidationReason = "expired"
	// InvalidatedRejected — сервер отверг токен (отозван/недействителен).
	InvalidatedRejected InvalidationReason = "rejected"
)

// Options — параметры Manager.
type Options struct {
	// App — имя приложения; им же пространство ключей в Store.
	App string
	// AdminApp — приложение работает только с сессией, помеченной флагом администратора.
	AdminApp       bool
	PollInterval   time.Duration
	RequestTimeout time.Duration
	Logger         *slog.Logger
	// Now — источник времени для локальной проверки срока (для тестов).
	Now func() time.Time
}

// Manager — сессия одного экземпляра приложения.
type Manager struct {
	remote Remote
	store  Store
	opts   Options
	log    *slog.Logger
	poller *Poller

	mu        sync.RWMutex
	sess      Session
	listeners []func(InvalidationReason)
}

// NewManager создаёт Manager в состоянии Loading до вызова Start.
func NewManager(remote Remote, store Store, opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	m := &Manager{
		remote: remote,
		store:  store,
		opts:   opts,
		log:    opts.Logger.With(slog.String("app", opts.App)),
		sess:   Session{Loading: true},
	}
	m.poller = NewPoller(remote, m.token, m.invalidateRejected, opts.PollInterval, opts.RequestTimeout, m.log)

	return m
}

// Start восстанавливает сессию при запуске приложения, по приоритету:
//  1. токен из rawURL (handoff), если он разбирается и не истёк;
//  2. сохранённый токен (в админ-приложении только вместе с флагом администратора);
//  3. иначе сессии нет.
//
// Возвращает rawURL без параметра token; параметр удаляется всегда.
func (m *Manager) Start(ctx context.Context, rawURL string) (string, error) {
	defer m.finishLoading()

	clean, adopted, err := m.AcceptHandoff(ctx, rawURL)
	if err != nil {
		m.restore(ctx)
		return rawURL, err
	}

	if !adopted {
		m.restore(ctx)
	}

	return clean, nil
}

// AcceptHandoff принимает токен из параметра token в rawURL.
// adopted=false, если параметра нет или токен негоден (битый/истёкший).
func (m *Manager) AcceptHandoff(ctx context.Context, rawURL string) (clean string, adopted bool, err error) {
	const op = "session.AcceptHandoff"

	if rawURL == "" {
		return "", false, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	q := u.Query()
	if !q.Has(HandoffParam) {
		return rawURL, false, nil
	}

	tok := q.Get(HandoffParam)
	q.Del(HandoffParam)
	u.RawQuery = q.Encode()
	clean = u.String()

	claims, err := token.Decode(tok)
	if err != nil || claims.ExpiredAt(m.opts.Now()) {
		m.log.Info("handoff_token_ignored")
		return clean, false, nil
	}

	if err := m.persist(ctx, tok); err != nil {
		m.log.Warn("session_persist_failed", slog.String("err", err.Error()))
	}

	m.authenticate(tok, claims)
	m.log.Info("handoff_accepted")
	m.refreshIdentity(ctx, tok, claims)

	return clean, true, nil
}

// restore поднимает сохранённую сессию. Истёкший токен означает локальный
// выход без сетевых вызовов.
func (m *Manager) restore(ctx context.Context) {
	tok, ok, err := m.store.Get(ctx, TokenKey(m.opts.App))
	if err != nil {
		m.log.Warn("session_restore_failed", slog.String("err", err.Error()))
		return
	}
	if !ok || tok == "" {
		return
	}

	if m.opts.AdminApp {
		flag, _, err := m.store.Get(ctx, AdminKey(m.opts.App))
		if err != nil || flag != "true" {
			return
		}
	}

	claims, err := token.Decode(tok)
	if err != nil || claims.ExpiredAt(m.opts.Now()) {
		m.log.Info("persisted_token_expired")
		m.clearLocal(ctx)
		m.notify(InvalidatedExpired)
		return
	}

	m.authenticate(tok, claims)
	m.refreshIdentity(ctx, tok, claims)
}

// Login сохраняет токен и профиль и сразу помечает сессию аутентифицированной.
func (m *Manager) Login(ctx context.Context, tok string, id Identity) error {
	const op = "session.Login"

	if err := m.persist(ctx, tok); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	m.sess = Session{Token: tok, Identity: &id, Authenticated: true}
	m.mu.Unlock()

	m.log.Info("session_login")

	return nil
}

// Logout очищает локальную сессию, затем отзывает токен на сервере.
// Ошибка сервера только логируется: локальное состояние уже очищено.
func (m *Manager) Logout(ctx context.Context) {
	tok := m.token()
	m.clearLocal(ctx)

	if tok == "" {
		return
	}

	rctx, cancel := context.WithTimeout(ctx, m.opts.RequestTimeout)
	defer cancel()

	if err := m.remote.Logout(rctx, tok); err != nil {
		m.log.Warn("logout_remote_failed", slog.String("err", err.Error()))
		return
	}

	m.log.Info("session_logout")
}

// Current возвращает копию текущего состояния.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.sess
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}

	return s
}

// OnInvalidated подписывает fn на потерю сессии без явного выхода.
func (m *Manager) OnInvalidated(fn func(InvalidationReason)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners = append(m.listeners, fn)
}

// Run запускает фоновую перепроверку токена до отмены ctx.
func (m *Manager) Run(ctx context.Context) {
	m.poller.Run(ctx)
}

// Poller возвращает перепроверщик токена этого Manager.
func (m *Manager) Poller() *Poller {
	return m.poller
}

// MergeIdentity сводит два источника профиля: поля профиля с сервера
// перекрывают декодированные из токена, если они заданы. В админ-приложении
// пустые имя и e-mail заменяются на "Admin".
func MergeIdentity(server *models.Profile, claims token.Claims, adminApp bool) Identity {
	id := Identity{
		ID:      claims.SubjectID,
		Name:    claims.Name,
		Email:   claims.Email,
		IsAdmin: claims.IsAdmin,
	}

	if server != nil {
		if server.ID != "" {
			id.ID = server.ID
		}
		if server.Name != "" {
			id.Name = server.Name
		}
		if server.Email != "" {
			id.Email = server.Email
		}
		id.IsAdmin = id.IsAdmin || server.IsAdmin
	}

	if adminApp {
		if id.Name == "" {
			id.Name = fallbackAdminName
		}
		if id.Email == "" {
			id.Email = fallbackAdminName
		}
	}

	return id
}

func (m *Manager) token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sess.Token
}

func (m *Manager) authenticate(tok string, claims token.Claims) {
	id := MergeIdentity(nil, claims, m.opts.AdminApp)

	m.mu.Lock()
	m.sess = Session{Token: tok, Identity: &id, Authenticated: true, Loading: m.sess.Loading}
	m.mu.Unlock()
}

// refreshIdentity подтягивает профиль с сервера. 401 — авторитетный отказ,
// прочие ошибки оставляют профиль из claims.
func (m *Manager) refreshIdentity(ctx context.Context, tok string, claims token.Claims) {
	rctx, cancel := context.WithTimeout(ctx, m.opts.RequestTimeout)
	defer cancel()

	profile, err := m.remote.Me(rctx, tok)
	if err != nil {
		if errors.Is(err, authclient.ErrUnauthorized) {
			m.invalidateRejected(tok)
			return
		}

		m.log.Warn("identity_fetch_failed", slog.String("err", err.Error()))
		profile = nil
	}

	id := MergeIdentity(profile, claims, m.opts.AdminApp)

	m.mu.Lock()
	if m.sess.Token == tok {
		m.sess.Identity = &id
	}
	m.mu.Unlock()
}

// invalidateRejected — реакция на авторитетный отказ сервера.
func (m *Manager) invalidateRejected(tok string) {
	if m.token() != tok {
		return
	}

	m.clearLocal(context.Background())
	m.notify(InvalidatedRejected)
}

func (m *Manager) persist(ctx context.Context, tok string) error {
	if err := m.store.Set(ctx, TokenKey(m.opts.App), tok); err != nil {
		return err
	}

	if m.opts.AdminApp {
		return m.store.Set(ctx, AdminKey(m.opts.App), "true")
	}

	return nil
}

func (m *Manager) clearLocal(ctx context.Context) {
	m.mu.Lock()
	loading := m.sess.Loading
	m.sess = Session{Loading: loading}
	m.mu.Unlock()

	if err := m.store.Delete(context.WithoutCancel(ctx), TokenKey(m.opts.App), AdminKey(m.opts.App)); err != nil {
		m.log.Warn("session_clear_failed", slog.String("err", err.Error()))
	}
}

func (m *Manager) finishLoading() {
	m.mu.Lock()
	m.sess.Loading = false
	m.mu.Unlock()
}

func (m *Manager) notify(reason InvalidationReason) {
	m.mu.RLock()
	listeners := append([]func(InvalidationReason){}, m.listeners...)
	m.mu.RUnlock()

	for _, fn := range listeners {
		fn(reason)
	}
}
