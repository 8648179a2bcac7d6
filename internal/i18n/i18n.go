package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

type (
	ctxKey      struct{}
	languageKey struct{}
)

// Catalog holds the loaded translations and the languages they cover.
type Catalog struct {
	bundle    *i18n.Bundle
	matcher   language.Matcher
	langs     []language.Tag
	defaultLn string
}

// New loads every embedded locale file. lang is the fallback language for
// requests whose Accept-Language matches nothing.
func New(lang string) (*Catalog, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("parse language %q: %w", lang, err)
	}

	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale file %s: %w", e.Name(), err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, e.Name()); err != nil {
			return nil, fmt.Errorf("parse locale file %s: %w", e.Name(), err)
		}
		slog.Debug("loaded locale file", "file", e.Name())
	}

	// The default language goes first so the matcher falls back to it.
	langs := []language.Tag{tag}
	for _, t := range bundle.LanguageTags() {
		if t != tag {
			langs = append(langs, t)
		}
	}

	return &Catalog{
		bundle:    bundle,
		matcher:   language.NewMatcher(langs),
		langs:     langs,
		defaultLn: tag.String(),
	}, nil
}

// Languages returns the available languages, default first.
func (c *Catalog) Languages() []language.Tag {
	return c.langs
}

// Localizer returns a localizer for the preferred languages, in order.
func (c *Catalog) Localizer(langs ...string) *i18n.Localizer {
	return i18n.NewLocalizer(c.bundle, append(langs, c.defaultLn)...)
}

// Match picks the best supported language for the given language
// preferences, each a tag or an Accept-Language header value.
func (c *Catalog) Match(prefs ...string) string {
	var nonEmpty []string
	for _, p := range prefs {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	_, idx := language.MatchStrings(c.matcher, nonEmpty...)
	base, _ := c.langs[idx].Base()
	return base.String()
}

// LanguageCookie remembers a language picked with the "lang" query parameter.
const LanguageCookie = "lang"

// Middleware injects a localizer into every request context. A "lang" query
// parameter overrides the language cookie, which overrides the
// Accept-Language header; a query choice is stored in the cookie. The matched
// language and the available ones are stored too, for language switchers.
func (c *Catalog) Middleware(next http.Handler) http.Handler {
	available := make([]string, 0, len(c.Languages()))
	for _, tag := range c.Languages() {
		base, _ := tag.Base()
		available = append(available, base.String())
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var saved string
		if cookie, err := r.Cookie(LanguageCookie); err == nil {
			saved = cookie.Value
		}
		query := r.URL.Query().Get("lang")
		lang := c.Match(query, saved, r.Header.Get("Accept-Language"))
		if query != "" {
			http.SetCookie(w, &http.Cookie{
				Name:     LanguageCookie,
				Value:    lang,
				Path:     "/",
				MaxAge:   365 * 24 * 60 * 60,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := WithLocalizer(r.Context(), c.Localizer(lang))
		ctx = context.WithValue(ctx, languageKey{}, Languages{Current: lang, Available: available})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Languages describes the request language and the ones it could switch to.
type Languages struct {
	Current   string
	Available []string
}

// LanguagesFromContext returns the languages stored by Middleware, or the
// zero value outside a request.
func LanguagesFromContext(ctx context.Context) Languages {
	l, _ := ctx.Value(languageKey{}).(Languages)
	return l
}

// WithLocalizer stores a localizer in the context.
func WithLocalizer(ctx context.Context, loc *i18n.Localizer) context.Context {
	return context.WithValue(ctx, ctxKey{}, loc)
}

func localizerFromCtx(ctx context.Context) *i18n.Localizer {
	loc, _ := ctx.Value(ctxKey{}).(*i18n.Localizer)
	return loc
}

// T translates a message by ID. Without a localizer, or for an unknown ID,
// the ID itself is returned.
func T(ctx context.Context, msgID string) string {
	return Td(ctx, msgID, nil)
}

// Td translates a message by ID with template data.
func Td(ctx context.Context, msgID string, data map[string]any) string {
	loc := localizerFromCtx(ctx)
	if loc == nil {
		return msgID
	}
	s, err := loc.Localize(&i18n.LocalizeConfig{
		MessageID:    msgID,
		TemplateData: data,
	})
	if err != nil {
		slog.Warn("missing translation", "id", msgID, "error", err)
		return msgID
	}
	return s
}

// Tp translates a pluralized message by ID.
func Tp(ctx context.Context, msgID string, count int) string {
	loc := localizerFromCtx(ctx)
	if loc == nil {
		return msgID
	}
	s, err := loc.Localize(&i18n.LocalizeConfig{
		MessageID:    msgID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
	if err != nil {
		slog.Warn("missing translation", "id", msgID, "error", err)
		return msgID
	}
	return s
}
