package logic

import (
	"sort"

	"formflow-service/internal/domain"
)

// NavAction is the outcome of pressing "Next" on the current page.
type NavAction int

const (
	// NavAdvance moves to the next page. Skips to a concrete question
	// need no special handling: the recomputed pages are already skip-
	// and visibility-aware, so one step lands on the target's page.
	NavAdvance NavAction = iota
	// NavComplete submits immediately (a skip rule resolved to END, or
	// the last page was reached).
	NavComplete
)

// SortQuestions returns the questions ordered by DisplayOrder. The sort
// is stable, so duplicate orders keep their stored relative order. The
// input slice is not modified.
func SortQuestions(questions []domain.Question) []domain.Question {
	sorted := make([]domain.Question, len(questions))
	copy(sorted, questions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DisplayOrder < sorted[j].DisplayOrder
	})
	return sorted
}

// ComputePages partitions the form's currently reachable questions into
// ordered pages: sort by display order, drop invisible questions,
// subtract the skip closure, then apply the display-style policy.
//
// Conversational style drops page breaks and emits one question per
// page. Freeform style starts a new page at every page break, consuming
// the break itself. When the walk yields no pages, the widget kind
// picks the convention: the form widget renders a single empty page,
// the survey widget a single page of the remaining non-break questions.
func ComputePages(form domain.Form, answers domain.AnswerSet) [][]domain.Question {
	sorted := SortQuestions(form.Questions)
	visible := FilterVisible(sorted, answers)
	skipped := ComputeSkipped(sorted, answers)

	remaining := make([]domain.Question, 0, len(visible))
	for _, q := range visible {
		if _, ok := skipped[q.ID]; ok {
			continue
		}
		remaining = append(remaining, q)
	}

	if form.DisplayStyle == domain.StyleConversational {
		return conversationalPages(remaining)
	}
	return freeformPages(remaining, form.Widget)
}

func conversationalPages(questions []domain.Question) [][]domain.Question {
	pages := make([][]domain.Question, 0, len(questions))
	for _, q := range questions {
		if q.Type == domain.TypePageBreak {
			continue
		}
		pages = append(pages, []domain.Question{q})
	}
	if len(pages) == 0 {
		return [][]domain.Question{{}}
	}
	return pages
}

func freeformPages(questions []domain.Question, widget domain.WidgetKind) [][]domain.Question {
	var pages [][]domain.Question
	var current []domain.Question
	for _, q := range questions {
		if q.Type == domain.TypePageBreak {
			if len(current) > 0 {
				pages = append(pages, current)
				current = nil
			}
			continue
		}
		current = append(current, q)
	}
	if len(current) > 0 {
		pages = append(pages, current)
	}
	if len(pages) > 0 {
		return pages
	}
	if widget == domain.WidgetSurvey {
		return [][]domain.Question{withoutPageBreaks(questions)}
	}
	return [][]domain.Question{{}}
}

func withoutPageBreaks(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if q.Type != domain.TypePageBreak {
			out = append(out, q)
		}
	}
	return out
}

// ValidatePage returns the IDs of required, answer-collecting questions
// on the page whose answers are still empty.
func ValidatePage(page []domain.Question, answers domain.AnswerSet) []string {
	var missing []string
	for _, q := range page {
		if !q.IsRequired || !q.CollectsAnswer() || q.ID == "" {
			continue
		}
		if isEmptyValue(answers[q.ID]) {
			missing = append(missing, q.ID)
		}
	}
	return missing
}

// NextForPage decides where "Next" goes from the given page: the first
// answered question whose skip resolves to END completes the form
// immediately; everything else advances one page.
func NextForPage(page []domain.Question, answers domain.AnswerSet) NavAction {
	for _, q := range page {
		if q.ID == "" || !hasTriggerAnswer(answers, q.ID) {
			continue
		}
		if target, ok := skipTarget(q, answers); ok && target == domain.SkipToEnd {
			return NavComplete
		}
	}
	return NavAdvance
}
