package recovery

import "strings"

// Classification is the classifier's verdict for one error.
type Classification struct {
	Severity Severity
	Category Category
}

// SeverityRule maps message substrings to a severity. Rules are evaluated
// in order; the first rule with any matching substring wins.
type SeverityRule struct {
	Substrings []string
	Severity   Severity
}

// CategoryRule maps message substrings to a category, same first-match
// semantics as SeverityRule.
type CategoryRule struct {
	Substrings []string
	Category   Category
}

// ServiceRule maps a service-name substring to a category. Service rules
// take precedence over message rules: where the failure happened is a
// stronger signal than what the message says.
type ServiceRule struct {
	Substring string
	Category  Category
}

// DefaultSeverityRules returns the built-in severity rule list.
func DefaultSeverityRules() []SeverityRule {
	return []SeverityRule{
		{Substrings: []string{"fatal", "critical"}, Severity: SeverityFatal},
		{Substrings: []string{"timeout", "unavailable"}, Severity: SeverityError},
		{Substrings: []string{"rate limit", "invalid"}, Severity: SeverityWarning},
	}
}

// DefaultServiceRules returns the built-in service-name rule list.
func DefaultServiceRules() []ServiceRule {
	return []ServiceRule{
		{Substring: "parser", Category: CategoryParsing},
		{Substring: "validator", Category: CategoryValidation},
		{Substring: "generator", Category: CategoryGeneration},
		{Substring: "template-engine", Category: CategoryTemplate},
		{Substring: "cache-manager", Category: CategoryCache},
		{Substring: "config-manager", Category: CategoryConfiguration},
	}
}

// DefaultCategoryRules returns the built-in message-based category rules.
func DefaultCategoryRules() []CategoryRule {
	return []CategoryRule{
		{Substrings: []string{"network", "connection"}, Category: CategoryNetwork},
		{Substrings: []string{"timeout"}, Category: CategoryTimeout},
		{Substrings: []string{"permission", "unauthorized"}, Category: CategoryAuthorization},
		{Substrings: []string{"file", "directory"}, Category: CategoryFileSystem},
	}
}

// EvaluateSeverity applies severity rules to a message, case-insensitively,
// first match wins. Unmatched messages default to ERROR.
func EvaluateSeverity(rules []SeverityRule, message string) Severity {
	lower := strings.ToLower(message)
	for _, rule := range rules {
		for _, sub := range rule.Substrings {
			if strings.Contains(lower, sub) {
				return rule.Severity
			}
		}
	}
	return SeverityError
}

// EvaluateCategory applies service rules then message rules, first match
// wins. Unmatched errors default to SYSTEM.
func EvaluateCategory(serviceRules []ServiceRule, messageRules []CategoryRule, service, message string) Category {
	lowerService := strings.ToLower(service)
	for _, rule := range serviceRules {
		if strings.Contains(lowerService, rule.Substring) {
			return rule.Category
		}
	}

	lower := strings.ToLower(message)
	for _, rule := range messageRules {
		for _, sub := range rule.Substrings {
			if strings.Contains(lower, sub) {
				return rule.Category
			}
		}
	}
	return CategorySystem
}

// Classifier maps an error plus its context to a severity and category
// using ordered, first-match-wins rule lists.
type Classifier struct {
	severityRules []SeverityRule
	serviceRules  []ServiceRule
	categoryRules []CategoryRule
}

// NewClassifier creates a classifier with the default rule lists.
func NewClassifier() *Classifier {
	return &Classifier{
		severityRules: DefaultSeverityRules(),
		serviceRules:  DefaultServiceRules(),
		categoryRules: DefaultCategoryRules(),
	}
}

// Classify returns the severity and category for an error in context.
func (c *Classifier) Classify(err error, errCtx ErrorContext) Classification {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return Classification{
		Severity: EvaluateSeverity(c.severityRules, message),
		Category: EvaluateCategory(c.serviceRules, c.categoryRules, errCtx.Service, message),
	}
}

// Suggestions returns remediation hints for a classification. Purely
// informational; they end up on the error record for operators.
func Suggestions(cls Classification) []string {
	switch cls.Category {
	case CategoryNetwork, CategoryTimeout:
		return []string{"check connectivity to upstream services", "verify timeout configuration"}
	case CategoryCache:
		return []string{"inspect cache health status", "consider invalidating stale entries"}
	case CategoryAuthorization:
		return []string{"verify credentials and permissions"}
	case CategoryFileSystem:
		return []string{"check that the path exists and is readable"}
	case CategoryParsing:
		return []string{"confirm the source files compile"}
	default:
		return nil
	}
}
