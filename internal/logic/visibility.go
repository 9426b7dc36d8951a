package logic

import "formflow-service/internal/domain"

// IsVisible decides whether a single question is currently shown. A
// missing or disabled rule means always visible.
func IsVisible(q domain.Question, answers domain.AnswerSet) bool {
	if q.Logic == nil || q.Logic.Visibility == nil || !q.Logic.Visibility.Enabled {
		return true
	}
	rule := q.Logic.Visibility
	return EvaluateConditionSet(rule.Conditions, rule.Combinator, answers)
}

// FilterVisible returns the ordered subsequence of visible questions,
// preserving relative order.
func FilterVisible(questions []domain.Question, answers domain.AnswerSet) []domain.Question {
	visible := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if IsVisible(q, answers) {
			visible = append(visible, q)
		}
	}
	return visible
}
