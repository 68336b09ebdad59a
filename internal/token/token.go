// token выпускает и разбирает подписанные bearer-токены (JWT HS256).
//
// Токен неизменяем после выпуска: «смерть» токена определяется снаружи
// часами (ExpiresAt) и реестром отзыва, а не полем внутри токена.
// Истёкшим считается токен, для которого now >= ExpiresAt, без какого-либо
// допуска (leeway).
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMalformed — строка не является корректно сформированным токеном.
	ErrMalformed = errors.New("malformed token")
	// ErrInvalidSignature — подпись не совпадает или алгоритм не HS256.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrExpired — срок действия токена истёк (now >= exp).
	ErrExpired = errors.New("token expired")
)

// Claims — полезная нагрузка токена в доменном виде.
type Claims struct {
	ID        string // jti, уникальная энтропия токена
	SubjectID string
	Email     string
	Name      string
	IsAdmin   bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ExpiredAt сообщает, истёк ли токен на момент now.
func (c Claims) ExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

type jwtClaims struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	IsAdmin bool   `json:"adm,omitempty"`
	jwt.RegisteredClaims
}

// Codec подписывает и проверяет токены общим секретом сервера.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Option настраивает Codec.
type Option func(*Codec)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// New создаёт Codec. issuer может быть пустым, тогда iss не проверяется.
func New(secret, issuer string, opts ...Option) *Codec {
	c := &Codec{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Issue выпускает подписанный токен для subjectID c абсолютным сроком now+ttl.
// Поля ID, SubjectID, IssuedAt и ExpiresAt из claims игнорируются и
// заполняются кодеком.
func (c *Codec) Issue(subjectID string, claims Claims, ttl time.Duration) (string, error) {
	const op = "token.Issue"

	if subjectID == "" {
		return "", fmt.Errorf("%s: empty subject", op)
	}

	if ttl <= 0 {
		return "", fmt.Errorf("%s: non-positive ttl %s", op, ttl)
	}

	now := c.now().UTC()

	jc := jwtClaims{
		Email:   claims.Email,
		Name:    claims.Name,
		IsAdmin: claims.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subjectID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jc).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// VerifySignature проверяет подпись и срок действия.
// При ErrExpired возвращает разобранные claims вместе с ошибкой.
func (c *Codec) VerifySignature(raw string) (Claims, error) {
	const op = "token.VerifySignature"

	var jc jwtClaims
	_, err := jwt.ParseWithClaims(raw, &jc,
		func(t *jwt.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		// Срок проверяем сами, с точностью часов кодека и без leeway.
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrTokenUnverifiable) {
			return Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidSignature)
		}

		return Claims{}, fmt.Errorf("%s: %w", op, ErrMalformed)
	}

	claims, err := fromJWT(&jc)
	if err != nil {
		return Claims{}, fmt.Errorf("%s: %w", op, err)
	}

	if c.issuer != "" && jc.Issuer != c.issuer {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidSignature)
	}

	if claims.ExpiredAt(c.now()) {
		return claims, fmt.Errorf("%s: %w", op, ErrExpired)
	}

	return claims, nil
}

// Decode разбирает токен без проверки подписи, срока и отзыва.
// Используется клиентами для локальной проверки срока.
func Decode(raw string) (Claims, error) {
	const op = "token.Decode"

	var jc jwtClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &jc); err != nil {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrMalformed)
	}

	claims, err := fromJWT(&jc)
	if err != nil {
		return Claims{}, fmt.Errorf("%s: %w", op, err)
	}

	return claims, nil
}

// fromJWT требует наличия sub и exp: без них токен непригоден.
func fromJWT(jc *jwtClaims) (Claims, error) {
	if jc.Subject == "" || jc.ExpiresAt == nil {
		return Claims{}, ErrMalformed
	}

	c := Claims{
		ID:        jc.ID,
		SubjectID: jc.Subject,
		Email:     jc.Email,
		Name:      jc.Name,
		IsAdmin:   jc.IsAdmin,
		ExpiresAt: jc.ExpiresAt.Time.UTC(),
	}
	if jc.IssuedAt != nil {
		c.IssuedAt = jc.IssuedAt.Time.UTC()
	}

	return c, nil
}
