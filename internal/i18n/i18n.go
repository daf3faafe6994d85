// Package i18n localises command output.
package i18n

import (
	"context"
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultLang is the fallback language
var DefaultLang = language.English

// SupportedLangs are the languages we support
var SupportedLangs = []language.Tag{
	language.English,
	language.German,
}

var matcher = language.NewMatcher(SupportedLangs)

// Message keys used by the command line. English text is the key itself.
const (
	MsgZonesLoaded   = "%d zones loaded, %d warnings\n"
	MsgConfigValid   = "configuration is valid\n"
	MsgDocApplied    = "%s: %s applied (%d chains, %d rules, %d removed)\n"
	MsgDocSkipped    = "%s: nothing to %s\n"
	MsgNoDifferences = "no differences\n"
	MsgNoHistory     = "no applied document for %s\n"
)

func init() {
	de := language.German
	message.SetString(de, MsgZonesLoaded, "%d Zonen geladen, %d Warnungen\n")
	message.SetString(de, MsgConfigValid, "Konfiguration ist gültig\n")
	message.SetString(de, MsgDocApplied, "%s: %s angewendet (%d Ketten, %d Regeln, %d entfernt)\n")
	message.SetString(de, MsgDocSkipped, "%s: nichts zu tun für %s\n")
	message.SetString(de, MsgNoDifferences, "keine Unterschiede\n")
	message.SetString(de, MsgNoHistory, "kein angewendetes Dokument für %s\n")
}

type contextKey struct{}

// printerKey is the key used to store the printer in the context
var printerKey = contextKey{}

// MatchLanguage returns the best matching language for an Accept-Language
// style list.
func MatchLanguage(acceptLang string) language.Tag {
	tags, _, _ := language.ParseAcceptLanguage(acceptLang)
	tag, _, _ := matcher.Match(tags...)
	return tag
}

// NewPrinter returns a message printer for the given language
func NewPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// WithPrinter returns a new context with the printer injected
func WithPrinter(ctx context.Context, p *message.Printer) context.Context {
	return context.WithValue(ctx, printerKey, p)
}

// GetPrinter returns the printer from the context, or a default one
func GetPrinter(ctx context.Context) *message.Printer {
	p, ok := ctx.Value(printerKey).(*message.Printer)
	if !ok {
		return message.NewPrinter(DefaultLang)
	}
	return p
}

// NewCLIPrinter returns a printer for the system's locale (from env vars)
func NewCLIPrinter() *message.Printer {
	return message.NewPrinter(localeTag(os.Getenv))
}

// localeTag maps LC_ALL or LANG (e.g. "de_DE.UTF-8") onto a supported tag.
func localeTag(getenv func(string) string) language.Tag {
	lang := getenv("LC_ALL")
	if lang == "" {
		lang = getenv("LANG")
	}
	if lang == "" || lang == "C" || lang == "POSIX" {
		return DefaultLang
	}

	if i := strings.IndexAny(lang, ".@"); i != -1 {
		lang = lang[:i]
	}
	lang = strings.ReplaceAll(lang, "_", "-")

	tag, err := language.Parse(lang)
	if err != nil {
		return MatchLanguage(lang)
	}
	tag, _, _ = matcher.Match(tag)
	return tag
}
