package tokenizer

import (
	"github.com/kljensen/snowball"
)

// Lemmatizer maps a normalised surface word to the form stored in the index
// vocabulary.
type Lemmatizer interface {
	Lemma(word string) string
}

// Lower keeps the normalised word as is.
type Lower struct{}

func (Lower) Lemma(word string) string {
	return Normalize(word)
}

// Snowball stems words with the snowball algorithms. With Language "auto"
// Cyrillic words use the russian stemmer and all others the english one.
type Snowball struct {
	Language string
}

func (s Snowball) Lemma(word string) string {
	word = Normalize(word)
	lang := s.Language
	if lang == "" || lang == "auto" {
		lang = "english"
		if IsCyrillic(word) {
			lang = "russian"
		}
	}
	stemmed, err := snowball.Stem(word, lang, true)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}

// Dictionary resolves words through the surface-form lists produced by the
// corpus lemmatizer, so query words land on exactly the lemmas the index was
// built from. Unknown words go to Fallback.
type Dictionary struct {
	forms    map[string]string
	Fallback Lemmatizer
}

func NewDictionary(fallback Lemmatizer) *Dictionary {
	if fallback == nil {
		fallback = Lower{}
	}
	return &Dictionary{
		forms:    make(map[string]string),
		Fallback: fallback,
	}
}

// Add registers lemma and its surface forms. The first lemma registered for
// a form wins.
func (d *Dictionary) Add(lemma string, forms ...string) {
	lemma = Normalize(lemma)
	if lemma == "" {
		return
	}
	if _, ok := d.forms[lemma]; !ok {
		d.forms[lemma] = lemma
	}
	for _, f := range forms {
		f = Normalize(f)
		if f == "" {
			continue
		}
		if _, ok := d.forms[f]; !ok {
			d.forms[f] = lemma
		}
	}
}

func (d *Dictionary) Len() int {
	return len(d.forms)
}

func (d *Dictionary) Lemma(word string) string {
	word = Normalize(word)
	if lemma, ok := d.forms[word]; ok {
		return lemma
	}
	return d.Fallback.Lemma(word)
}
