// File path: internal/validator/validator.go
package validator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/docuchat-ai/docuchat/internal/common"
	"github.com/docuchat-ai/docuchat/internal/common/telemetry"
	"github.com/docuchat-ai/docuchat/internal/rag"
)

// DocumentLister exposes the user's document set for ownership checks.
type DocumentLister interface {
	DocumentsForUser(ctx context.Context, userID string) ([]rag.Document, error)
}

// Issue is one flagged reference. Severity is three-tier: a reference to a
// retrieval source passes silently, a reference to an owned-but-unretrieved
// document is a warning, a reference to nothing the user owns is an error.
type Issue struct {
	Reference string `json:"reference"`
	Message   string `json:"message"`
}

// ValidationResult is the validator's verdict. CorrectedResponse is set
// only when hard errors were found; warnings never replace the response.
type ValidationResult struct {
	IsValid           bool     `json:"isValid"`
	Verified          []string `json:"verified,omitempty"`
	Warnings          []Issue  `json:"warnings,omitempty"`
	Errors            []Issue  `json:"errors,omitempty"`
	CorrectedResponse string   `json:"correctedResponse,omitempty"`
}

// referencePatterns extract document-like mentions from generated text.
// Each pattern captures the candidate name in group 1.
var referencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)according to (?:the )?([\w][\w\- ]{2,70}?)\s*[,.;:]`),
	regexp.MustCompile(`(?i)\bthe ([\w][\w\- ]{2,70}?) (?:shows|states|indicates|says|mentions|reports)\b`),
	regexp.MustCompile(`(?i)\bbased on (?:the )?([\w][\w\- ]{2,70}?)\s*[,.;:]`),
	regexp.MustCompile(`(?i)\bas (?:stated|described|mentioned|shown) in (?:the )?([\w][\w\- ]{2,70}?)\s*[,.;:]`),
	regexp.MustCompile(`(?i)\bin (?:the )?([\w][\w\- ]{2,70}?) document\b`),
	regexp.MustCompile(`(?i)\b([\w\-]{2,60}\.(?:pdf|docx?|xlsx?|pptx?|csv|txt|md))\b`),
}

// genericReferences are single words the patterns catch that never name a
// specific document.
var genericReferences = map[string]struct{}{
	"document": {}, "documents": {}, "report": {}, "file": {}, "data": {},
	"information": {}, "text": {}, "table": {}, "chart": {}, "above": {},
	"context": {}, "excerpt": {}, "excerpts": {}, "source": {}, "sources": {},
}

const (
	minReferenceLength = 3
	maxReferenceLength = 80
)

// Validator cross-checks document references in generated answers against
// what was actually retrieved and what the user owns.
type Validator struct {
	docs DocumentLister
}

func NewValidator(docs DocumentLister) *Validator {
	return &Validator{docs: docs}
}

// ValidateResponse extracts references from responseText and classifies
// each as verified, warning, or error. On hard errors it also produces a
// safe corrected response listing only the genuinely retrieved documents.
func (v *Validator) ValidateResponse(ctx context.Context, responseText, userID string, actualSourceDocs []string) ValidationResult {
	logger := common.Logger()
	result := ValidationResult{IsValid: true}

	references := ExtractReferences(responseText)
	if len(references) == 0 {
		return result
	}

	var owned []string
	ownershipKnown := true
	if v.docs != nil {
		docs, err := v.docs.DocumentsForUser(ctx, userID)
		if err != nil {
			logger.Warn("validator: document lookup failed; downgrading unmatched references to warnings", "error", err)
			ownershipKnown = false
		}
		for _, doc := range docs {
			owned = append(owned, doc.Filename)
		}
	} else {
		ownershipKnown = false
	}

	for _, ref := range references {
		switch {
		case matchesAny(ref, actualSourceDocs):
			result.Verified = append(result.Verified, ref)
		case matchesAny(ref, owned):
			result.Warnings = append(result.Warnings, Issue{
				Reference: ref,
				Message:   fmt.Sprintf("%q was not among the retrieved sources for this answer", ref),
			})
		case !ownershipKnown:
			// Without the ownership set we cannot prove fabrication.
			result.Warnings = append(result.Warnings, Issue{
				Reference: ref,
				Message:   fmt.Sprintf("%q could not be checked against your documents", ref),
			})
		default:
			result.Errors = append(result.Errors, Issue{
				Reference: ref,
				Message:   fmt.Sprintf("%q does not match any of your documents", ref),
			})
		}
	}

	telemetry.RecordValidation(len(result.Errors), len(result.Warnings))
	if len(result.Errors) > 0 {
		result.IsValid = false
		result.CorrectedResponse = safeResponse(actualSourceDocs)
		logger.Warn("validator: fabricated references detected",
			"errors", len(result.Errors), "warnings", len(result.Warnings))
	}
	return result
}

// ExtractReferences pulls candidate document names out of generated text
// and filters the obvious false positives.
func ExtractReferences(text string) []string {
	seen := map[string]struct{}{}
	var references []string
	for _, pattern := range referencePatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			candidate := strings.TrimSpace(m[1])
			if !plausibleReference(candidate) {
				continue
			}
			key := strings.ToLower(candidate)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			references = append(references, candidate)
		}
	}
	return references
}

func plausibleReference(candidate string) bool {
	if len(candidate) < minReferenceLength || len(candidate) > maxReferenceLength {
		return false
	}
	words := strings.Fields(strings.ToLower(candidate))
	for _, word := range words {
		if _, generic := genericReferences[word]; !generic {
			return true
		}
	}
	return false
}

// matchesAny applies the fuzzy rule: case-insensitive, extension-stripped,
// substring containment in either direction.
func matchesAny(reference string, names []string) bool {
	ref := normalizeName(reference)
	if ref == "" {
		return false
	}
	for _, name := range names {
		n := normalizeName(name)
		if n == "" {
			continue
		}
		if ref == n || strings.Contains(n, ref) || strings.Contains(ref, n) {
			return true
		}
	}
	return false
}

var extensionPattern = regexp.MustCompile(`(?i)\.(?:pdf|docx?|xlsx?|pptx?|csv|txt|md)$`)

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = extensionPattern.ReplaceAllString(name, "")
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}

func safeResponse(actualSourceDocs []string) string {
	if len(actualSourceDocs) == 0 {
		return "I couldn't verify the references in my previous answer against your documents, so please treat it with caution."
	}
	return fmt.Sprintf(
		"I can only confirm information from the documents actually consulted for this answer: %s. My previous answer referenced material I could not verify, so please rely on these sources.",
		strings.Join(actualSourceDocs, ", "))
}
