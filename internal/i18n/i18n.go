package i18n

import (
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/iamwavecut/whosent/resources"
)

const translationsPath = "i18n/translations.yml"

// Translator resolves an English text key into the requested language.
type Translator interface {
	Get(key, lang string) string
}

// Bundle is a Translator backed by the embedded translations dictionary.
type Bundle struct {
	once sync.Once
	dict map[string]map[string]string
}

var defaultBundle = &Bundle{}

// Default returns the process wide bundle.
func Default() Translator {
	return defaultBundle
}

func Get(key, lang string) string {
	return defaultBundle.Get(key, lang)
}

func (b *Bundle) load() {
	b.dict = make(map[string]map[string]string)
	content, err := resources.FS.ReadFile(translationsPath)
	if err != nil {
		log.WithError(err).Errorln("cant load i18n")
		return
	}
	if err := yaml.Unmarshal(content, &b.dict); err != nil {
		log.WithError(err).Errorln("cant unmarshal i18n")
	}
}

func (b *Bundle) Get(key, lang string) string {
	if lang == "en" {
		return key
	}
	b.once.Do(b.load)
	if res, ok := b.dict[key][strings.ToUpper(lang)]; ok && res != "" {
		return res
	}
	log.Tracef(`no translation for key "%s"`, key)
	return key
}
