package nlu

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	emailPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	phonePattern  = regexp.MustCompile(`\b(\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	namePattern   = regexp.MustCompile(`\p{Lu}\p{Ll}+(?:[ \t]+\p{Lu}\p{Ll}+)*`)
	amountPattern = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d{2})?)\s*(TND|EUR|USD|DT)?\b`)
)

// nameStopwords are capitalized words that start commands or label fields and
// are never part of a person name.
var nameStopwords = map[string]struct{}{
	"bonjour": {}, "salut": {}, "hello": {}, "salam": {}, "aslema": {},
	"créer": {}, "ajouter": {}, "nouveau": {}, "nouvelle": {}, "chercher": {}, "rechercher": {},
	"trouver": {}, "liste": {}, "voir": {}, "afficher": {}, "envoyer": {},
	"client": {}, "cliente": {}, "devis": {}, "facture": {}, "article": {}, "produit": {},
	"email": {}, "mail": {}, "tel": {}, "tél": {}, "téléphone": {}, "phone": {},
	"contact": {}, "nom": {}, "montant": {}, "prix": {}, "total": {}, "merci": {},
}

// ExtractEntities runs the local detectors over text. Detectors are
// independent; the name detector ignores anything inside an e-mail address.
func ExtractEntities(text string) Entities {
	out := Entities{}

	emailSpans := emailPattern.FindAllStringIndex(text, -1)
	if len(emailSpans) > 0 {
		s := emailSpans[0]
		out[EntityEmail] = []Entity{{Value: text[s[0]:s[1]], Confidence: 1.0, Start: s[0], End: s[1]}}
	}

	if s := phonePattern.FindStringIndex(text); s != nil {
		out[EntityPhone] = []Entity{{Value: text[s[0]:s[1]], Confidence: 1.0, Start: s[0], End: s[1]}}
	}

	if name, start, end, ok := findName(text, emailSpans); ok {
		out[EntityName] = []Entity{{Value: name, Confidence: 0.8, Start: start, End: end}}
	}

	if m := amountPattern.FindStringSubmatchIndex(text); m != nil {
		raw := strings.Replace(text[m[2]:m[3]], ",", ".", 1)
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			out[EntityAmount] = []Entity{{
				Value:      strconv.FormatFloat(f, 'f', -1, 64),
				Confidence: 1.0,
				Start:      m[0],
				End:        m[1],
			}}
			if m[4] >= 0 {
				out[EntityCurrency] = []Entity{{
					Value:      strings.ToUpper(text[m[4]:m[5]]),
					Confidence: 1.0,
					Start:      m[4],
					End:        m[5],
				}}
			}
		}
	}

	return out
}

func findName(text string, exclude [][]int) (string, int, int, bool) {
	for _, m := range namePattern.FindAllStringIndex(text, -1) {
		if !wordBoundary(text, m[0], m[1]) || overlaps(m, exclude) {
			continue
		}
		if name, start, end, ok := trimStopwords(text, m[0], m[1]); ok {
			return name, start, end, true
		}
	}
	return "", 0, 0, false
}

// trimStopwords drops leading stopwords from the candidate at text[start:end].
func trimStopwords(text string, start, end int) (string, int, int, bool) {
	candidate := text[start:end]
	for {
		word, rest, _ := strings.Cut(candidate, " ")
		if _, stop := nameStopwords[strings.ToLower(strings.TrimSpace(word))]; !stop {
			break
		}
		if rest == "" {
			return "", 0, 0, false
		}
		trimmed := strings.TrimLeft(rest, " \t")
		start += len(candidate) - len(trimmed)
		candidate = trimmed
	}
	return candidate, start, end, true
}

func wordBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) || r == '@' || r == '.' {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) || r == '@' {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func overlaps(span []int, others [][]int) bool {
	for _, o := range others {
		if span[0] < o[1] && o[0] < span[1] {
			return true
		}
	}
	return false
}
