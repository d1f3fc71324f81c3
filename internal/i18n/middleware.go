package i18n

import (
	"net/http"

	"golang.org/x/text/language"

	"github.com/vidyavistaar/portal/internal/model"
)

var matcher = language.NewMatcher(Supported)

// Middleware injects a localizer into every request context. The language
// comes from the "lang" query parameter, then Accept-Language, then def.
func Middleware(def string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := Resolve(def, r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
			ctx := WithLocalizer(r.Context(), NewLocalizer(tag))
			ctx = WithLanguage(ctx, model.LanguageFromTag(tag))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Resolve picks the catalog language for the given preferences. Query values
// may be tags ("pa") or language names ("punjabi").
func Resolve(def string, query, acceptLanguage string) string {
	switch query {
	case string(model.LanguagePunjabi):
		return "pa"
	case string(model.LanguageEnglish):
		return "en"
	}
	prefs := []string{query, acceptLanguage}
	for _, p := range prefs {
		if p == "" {
			continue
		}
		tags, _, err := language.ParseAcceptLanguage(p)
		if err != nil || len(tags) == 0 {
			continue
		}
		_, idx, conf := matcher.Match(tags...)
		if conf != language.No {
			base, _ := Supported[idx].Base()
			return base.String()
		}
	}
	return def
}
