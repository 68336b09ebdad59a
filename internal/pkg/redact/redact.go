// redact маскирует чувствительные значения перед записью в лог.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Email оставляет первые две руны локальной части и домен.
func Email(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***"
	}

	r := []rune(local)
	if len(r) > 2 {
		local = string(r[:2]) + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Token возвращает короткий отпечаток токена: по нему можно сопоставить
// записи разных сервисов, но нельзя восстановить сам токен.
func Token(raw string) string {
	if raw == "" {
		return "[EMPTY_TOKEN]"
	}

	sum := sha256.Sum256([]byte(raw))
	return "tok:" + hex.EncodeToString(sum[:5])
}

func Password() string { return "[REDACTED_PASSWORD]" }
