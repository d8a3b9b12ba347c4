package i18n

import "net/http"

// Middleware injects a localizer into every request context. The
// Accept-Language header wins when it names a supported language;
// otherwise lang is used.
func Middleware(lang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			use := lang
			if h := r.Header.Get("Accept-Language"); h != "" {
				use = Match(h)
			}
			ctx := WithLang(r.Context(), use)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
