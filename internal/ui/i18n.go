package ui

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys.
const (
	msgActionSucceeded = "FiSucc"
	msgActionFailed    = "FiErr"
)

var supportedLanguages = []language.Tag{language.English, language.German}

var languageMatcher = language.NewMatcher(supportedLanguages)

func init() {
	for _, entry := range []struct {
		tag  language.Tag
		key  string
		text string
	}{
		{language.English, msgActionSucceeded, "%s finished successfully"},
		{language.English, msgActionFailed, "%s failed"},
		{language.English, "Prices_Predict", "Price prediction"},
		{language.English, "Model_Train", "Model training"},
		{language.German, msgActionSucceeded, "%s erfolgreich abgeschlossen"},
		{language.German, msgActionFailed, "%s fehlgeschlagen"},
		{language.German, "Prices_Predict", "Preisvorhersage"},
		{language.German, "Model_Train", "Modelltraining"},
	} {
		if err := message.SetString(entry.tag, entry.key, entry.text); err != nil {
			panic(err)
		}
	}
}

// SupportedLanguage maps tag onto a language with a message catalogue,
// English when none is close.
func SupportedLanguage(tag language.Tag) language.Tag {
	_, index, confidence := languageMatcher.Match(tag)
	if confidence == language.No {
		return language.English
	}
	return supportedLanguages[index]
}

// MatchLanguage picks the supported language closest to an Accept-Language
// header. Without a match the fallback is resolved the same way.
func MatchLanguage(acceptLanguage string, fallback language.Tag) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return SupportedLanguage(fallback)
	}
	_, index, confidence := languageMatcher.Match(tags...)
	if confidence == language.No {
		return SupportedLanguage(fallback)
	}
	return supportedLanguages[index]
}

// ActionToast renders the localized toast for an action outcome.
func ActionToast(tag language.Tag, action string, ok bool) string {
	p := message.NewPrinter(SupportedLanguage(tag))
	label := p.Sprintf(action)
	if ok {
		return p.Sprintf(msgActionSucceeded, label)
	}
	return p.Sprintf(msgActionFailed, label)
}
