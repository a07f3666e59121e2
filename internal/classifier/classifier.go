// Package classifier maps fault codes and their text to a category and a
// severity using ordered, first-match-wins rule tables.
package classifier

import (
	"strings"

	"github.com/insightdelivered/diagnostic-report-parser/internal/models"
)

// Classification is the outcome of classifying one fault.
type Classification struct {
	Category models.Category
	Severity models.Severity
}

// Explanation names the rules that decided a classification. An empty rule
// name means the default applied.
type Explanation struct {
	Classification
	CategoryRule string
	SeverityRule string
	// FromContext is true when the category came from the surrounding text
	// rather than the code or description.
	FromContext bool
}

// Classify returns the category and severity for a fault.
//
// The category table is first evaluated against the code and description.
// Only when nothing matches is it evaluated again against surroundingText
// (module name, status detail, related codes). Severity is evaluated over the
// description and surrounding text together, with the chosen category
// available to category-based rules.
func Classify(code, description, surroundingText string) Classification {
	return Explain(code, description, surroundingText).Classification
}

// Explain is Classify with the names of the deciding rules.
func Explain(code, description, surroundingText string) Explanation {
	var ex Explanation
	code = strings.ToUpper(strings.TrimSpace(code))

	ex.Category = DefaultCategory
	if rule, ok := matchCategory(code, description); ok {
		ex.Category, ex.CategoryRule = rule.Category, rule.Name
	} else if rule, ok := matchContext(surroundingText); ok {
		ex.Category, ex.CategoryRule = rule.Category, rule.Name
		ex.FromContext = true
	}

	ex.Severity = DefaultSeverity
	text := description + " " + surroundingText
	for _, rule := range SeverityRules {
		if rule.matches(ex.Category, text) {
			ex.Severity, ex.SeverityRule = rule.Severity, rule.Name
			break
		}
	}
	return ex
}

func matchCategory(code, text string) (CategoryRule, bool) {
	for _, rule := range CategoryRules {
		if rule.matches(code, text) {
			return rule, true
		}
	}
	return CategoryRule{}, false
}

// matchContext evaluates the category table against surrounding text. Any
// OBD code quoted in that text is tried as a code as well.
func matchContext(text string) (CategoryRule, bool) {
	if strings.TrimSpace(text) == "" {
		return CategoryRule{}, false
	}
	for _, rule := range CategoryRules {
		if rule.Keywords != nil && rule.Keywords.MatchString(text) {
			return rule, true
		}
		if rule.Codes == nil {
			continue
		}
		for _, field := range strings.Fields(text) {
			if rule.Codes.MatchString(strings.ToUpper(field)) {
				return rule, true
			}
		}
	}
	return CategoryRule{}, false
}

// SurroundingText joins the context fields of a raw fault into the text the
// classifier falls back to.
func SurroundingText(f models.RawFault) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{f.Module, f.RelatedCode, f.Detail} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
