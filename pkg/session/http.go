package session

import (
	"net/http"
	"path"
	"strings"
)

// Protect пропускает запрос только при аутентифицированной сессии.
// Пока сессия восстанавливается, отвечает 503 с Retry-After вместо
// преждевременного редиректа; без сессии перенаправляет на loginPath.
func (m *Manager) Protect(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := m.Current()

			switch {
			case s.Loading:
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Verifying authentication...", http.StatusServiceUnavailable)
			case !s.Authenticated:
				http.Redirect(w, r, loginPath, http.StatusFound)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// Handoff принимает токен из ?token= на любом запросе и перенаправляет
// на тот же путь без параметра, чтобы токен не оставался в истории.
// Редирект всегда локальный: путь нормализуется localPath.
func (m *Manager) Handoff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !r.URL.Query().Has(HandoffParam) {
			next.ServeHTTP(w, r)
			return
		}

		target := localPath(r.URL.EscapedPath()) + "?" + r.URL.RawQuery

		clean, _, err := m.AcceptHandoff(r.Context(), target)
		if err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		http.Redirect(w, r, clean, http.StatusSeeOther)
	})
}

var backslashes = strings.NewReplacer(`\`, "/", "%5C", "/", "%5c", "/")

// localPath приводит путь запроса к абсолютному пути этого же origin.
// "//host/..." и "/\host/..." браузер понял бы как другой хост, поэтому
// обратные слэши и повторные разделители схлопываются.
func localPath(p string) string {
	p = backslashes.Replace(p)
	cleaned := path.Clean("/" + p)

	if cleaned != "/" && strings.HasSuffix(p, "/") {
		cleaned += "/"
	}

	return cleaned
}
