package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pribylovaa/propertia-auth/pkg/authclient"
)

const (
	// DefaultPollInterval — период проверки токена по умолчанию.
	DefaultPollInterval = time.Second
	// DefaultRequestTimeout — таймаут одного обращения к auth-service.
	DefaultRequestTimeout = 5 * time.Second
)

// Verifier спрашивает сервер, действителен ли токен (реализуется *authclient.Client).
type Verifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

// Poller периодически перепроверяет токен приложения на сервере.
//
// Инварианты:
//   - одновременно выполняется не больше одной проверки, лишние тики отбрасываются;
//   - onInvalid вызывается только на авторитетный отказ (valid=false или 401)
//     и не больше одного раза на токен;
//   - любые другие ошибки считаются временными: состояние не меняется;
//   - после остановки результат незавершённой проверки отбрасывается.
type Poller struct {
	verifier  Verifier
	token     func() string
	onInvalid func(token string)
	interval  time.Duration
	timeout   time.Duration
	log       *slog.Logger

	inFlight atomic.Bool
	wg       sync.WaitGroup

	mu          sync.Mutex
	invalidated string
}

// NewPoller создаёт Poller. token возвращает текущий локальный токен
// (пустая строка — сессии нет).
func NewPoller(v Verifier, token func() string, onInvalid func(token string), interval, timeout time.Duration, log *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	return &Poller{
		verifier:  v,
		token:     token,
		onInvalid: onInvalid,
		interval:  interval,
		timeout:   timeout,
		log:       log,
	}
}

// Run делает первый тик сразу, затем каждые interval до отмены ctx.
// Незавершённая проверка не прерывается: она доживает на отвязанном
// контексте со своим таймаутом, а её результат игнорируется.
func (p *Poller) Run(ctx context.Context) {
	p.Tick(ctx)

	t := time.NewTicker(p.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.Tick(ctx)
		}
	}
}

// Tick запускает одну проверку в фоне. Возвращает false, если тик пропущен:
// ctx уже отменён, токена нет или предыдущая проверка ещё не вернулась.
// Если ctx отменён до ответа сервера, результат проверки отбрасывается.
func (p *Poller) Tick(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}

	tok := p.token()
	if tok == "" {
		return false
	}

	if !p.inFlight.CompareAndSwap(false, true) {
		p.log.Debug("poll_tick_skipped")
		return false
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.inFlight.Store(false)

		checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		valid, err := p.verifier.Verify(checkCtx, tok)
		if ctx.Err() != nil {
			return
		}
		p.handle(tok, valid, err)
	}()

	return true
}

// Wait ждёт завершения проверки, запущенной последним Tick.
// Вызывать после возврата Run: Tick не должен выполняться параллельно с Wait.
func (p *Poller) Wait() {
	p.wg.Wait()
}

func (p *Poller) handle(tok string, valid bool, err error) {
	switch {
	case err == nil && valid:
		return
	case err == nil, errors.Is(err, authclient.ErrUnauthorized):
	default:
		p.log.Debug("poll_verify_transient_error", slog.String("err", err.Error()))
		return
	}

	// Пока шла проверка, пользователь мог выйти или войти заново.
	if p.token() != tok {
		return
	}

	p.mu.Lock()
	if p.invalidated == tok {
		p.mu.Unlock()
		return
	}
	p.invalidated = tok
	p.mu.Unlock()

	p.log.Info("session_invalidated_remotely")
	p.onInvalid(tok)
}
