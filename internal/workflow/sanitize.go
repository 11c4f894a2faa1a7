package workflow

import (
	"html"
	"strings"

	"go-roundflow/internal/domain"

	"github.com/microcosm-cc/bluemonday"
)

// Metadata is pinned verbatim and rendered by other clients, so free-text
// fields carry no markup.
var textPolicy = bluemonday.StrictPolicy()

func sanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

func sanitizeProgramMetadata(m domain.ProgramMetadata) domain.ProgramMetadata {
	m.Name = sanitizeText(m.Name)
	m.Description = sanitizeText(m.Description)
	m.Website = strings.TrimSpace(m.Website)
	return m
}

func sanitizeRoundMetadata(m domain.RoundMetadata) domain.RoundMetadata {
	m.Name = sanitizeText(m.Name)
	m.Description = sanitizeText(m.Description)
	if m.Eligibility != nil {
		eligibility := make([]string, len(m.Eligibility))
		for i, e := range m.Eligibility {
			eligibility[i] = sanitizeText(e)
		}
		m.Eligibility = eligibility
	}
	if m.Support != nil {
		support := *m.Support
		support.Info = sanitizeText(support.Info)
		m.Support = &support
	}
	return m
}

func sanitizeApplicationMetadata(m domain.ApplicationMetadata) domain.ApplicationMetadata {
	if m.Questions == nil {
		return m
	}
	questions := make([]domain.ApplicationQuestion, len(m.Questions))
	for i, q := range m.Questions {
		q.Title = sanitizeText(q.Title)
		questions[i] = q
	}
	m.Questions = questions
	return m
}
