// File path: internal/search/messages.go
package search

import (
	"fmt"
	"strings"
)

// Result messages are a presentation concern coupled to this component:
// they must stay confidence-appropriate and cover English, Portuguese, and
// Spanish. Templates live in per-language tables so a language pack is one
// new map entry.

const (
	highConfidenceFloor   = 0.80
	mediumConfidenceFloor = 0.50
)

type messageSet struct {
	SingleHigh    string
	SingleMedium  string
	SingleLow     string
	Multiple      string
	PartialCaveat string
	NotFound      string
}

var messagesByLanguage = map[string]messageSet{
	"en": {
		SingleHigh:    "I found the document you're looking for: %s.",
		SingleMedium:  "This document looks like the best match: %s.",
		SingleLow:     "I'm not certain, but %s might be what you're looking for.",
		Multiple:      "I found %d documents that may match. The strongest is %s.",
		PartialCaveat: "No single document satisfies everything you asked for, so here are the closest partial matches.",
		NotFound:      "I couldn't find a document matching that. It may help to try different terms or check that the file finished processing.",
	},
	"pt": {
		SingleHigh:    "Encontrei o documento que você procura: %s.",
		SingleMedium:  "Este documento parece ser a melhor correspondência: %s.",
		SingleLow:     "Não tenho certeza, mas %s pode ser o que você procura.",
		Multiple:      "Encontrei %d documentos que podem corresponder. O mais forte é %s.",
		PartialCaveat: "Nenhum documento sozinho atende a tudo o que você pediu, então aqui estão as correspondências parciais mais próximas.",
		NotFound:      "Não encontrei um documento correspondente. Pode ajudar tentar outros termos ou verificar se o arquivo terminou de processar.",
	},
	"es": {
		SingleHigh:    "Encontré el documento que buscas: %s.",
		SingleMedium:  "Este documento parece ser la mejor coincidencia: %s.",
		SingleLow:     "No estoy seguro, pero %s podría ser lo que buscas.",
		Multiple:      "Encontré %d documentos que pueden coincidir. El más fuerte es %s.",
		PartialCaveat: "Ningún documento por sí solo cumple con todo lo que pediste, así que aquí están las coincidencias parciales más cercanas.",
		NotFound:      "No encontré un documento que coincida. Puede ayudar probar con otros términos o verificar que el archivo terminó de procesarse.",
	},
}

// languageMarkers detect the query language from its trigger phrasing.
var languageMarkers = map[string][]string{
	"pt": {"qual documento", "onde está", "encontre", "procure", "me mostre", "quanto é", "arquivo"},
	"es": {"qué documento", "cuál documento", "dónde está", "encuentra", "busca", "muéstrame", "cuánto es"},
}

// DetectLanguage returns "en", "pt", or "es" based on trigger phrases,
// defaulting to English.
func DetectLanguage(queryText string) string {
	lower := strings.ToLower(queryText)
	for lang, markers := range languageMarkers {
		for _, marker := range markers {
			if strings.Contains(lower, marker) {
				return lang
			}
		}
	}
	return "en"
}

func messagesFor(language string) messageSet {
	if set, ok := messagesByLanguage[language]; ok {
		return set
	}
	return messagesByLanguage["en"]
}

func singleMatchMessage(language, filename string, confidence float64) string {
	set := messagesFor(language)
	switch {
	case confidence >= highConfidenceFloor:
		return fmt.Sprintf(set.SingleHigh, filename)
	case confidence >= mediumConfidenceFloor:
		return fmt.Sprintf(set.SingleMedium, filename)
	default:
		return fmt.Sprintf(set.SingleLow, filename)
	}
}

func multipleMatchMessage(language string, count int, topFilename string) string {
	return fmt.Sprintf(messagesFor(language).Multiple, count, topFilename)
}

func partialMatchCaveat(language string) string {
	return messagesFor(language).PartialCaveat
}

func notFoundMessage(language string) string {
	return messagesFor(language).NotFound
}
