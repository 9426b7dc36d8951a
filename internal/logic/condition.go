// Package logic implements the conditional logic and pagination engine
// for embeddable forms and surveys. Every function here is a pure,
// total function of (questions, rules, answers): malformed rules
// degrade to documented defaults instead of failing, so a broken logic
// rule can never block rendering of an otherwise valid form.
package logic

import (
	"strings"

	"formflow-service/internal/domain"
)

// EvaluateCondition resolves one atomic condition against the answer
// set. Missing question IDs, unknown operators, and non-coercible
// numeric comparisons all evaluate to false (fail-closed).
func EvaluateCondition(c domain.Condition, answers domain.AnswerSet) bool {
	if c.QuestionID == "" {
		return false
	}
	answer := answers[c.QuestionID]

	switch c.Operator {
	case domain.OpEquals:
		return equalsAnswer(answer, c.Value)
	case domain.OpNotEquals:
		return !equalsAnswer(answer, c.Value)
	case domain.OpContains:
		return containsAnswer(answer, c.Value)
	case domain.OpNotContains:
		return !containsAnswer(answer, c.Value)
	case domain.OpGreaterThan:
		return compareNumeric(answer, c.Value, func(a, b float64) bool { return a > b })
	case domain.OpLessThan:
		return compareNumeric(answer, c.Value, func(a, b float64) bool { return a < b })
	case domain.OpGreaterThanOrEqual:
		return compareNumeric(answer, c.Value, func(a, b float64) bool { return a >= b })
	case domain.OpLessThanOrEqual:
		return compareNumeric(answer, c.Value, func(a, b float64) bool { return a <= b })
	case domain.OpIsEmpty:
		return isEmptyValue(answer)
	case domain.OpIsNotEmpty:
		return !isEmptyValue(answer)
	case domain.OpStartsWith:
		return affixMatch(answer, c.Value, strings.HasPrefix)
	case domain.OpEndsWith:
		return affixMatch(answer, c.Value, strings.HasSuffix)
	case domain.OpInList:
		return inList(answer, c.Value)
	case domain.OpNotInList:
		return !inList(answer, c.Value)
	}
	return false
}

// EvaluateConditionSet combines conditions with AND/OR. An empty or
// absent condition list is true (fail-open), so "no rules" never blocks
// visibility.
func EvaluateConditionSet(conditions []domain.Condition, combinator domain.Combinator, answers domain.AnswerSet) bool {
	if len(conditions) == 0 {
		return true
	}
	if combinator == domain.CombinatorOr {
		for _, c := range conditions {
			if EvaluateCondition(c, answers) {
				return true
			}
		}
		return false
	}
	for _, c := range conditions {
		if !EvaluateCondition(c, answers) {
			return false
		}
	}
	return true
}

// equalsAnswer: an array answer equals a scalar only when it holds
// exactly that one element; otherwise strict equality.
func equalsAnswer(answer, value any) bool {
	if items, ok := asSlice(answer); ok {
		return len(items) == 1 && equalValues(items[0], value)
	}
	return equalValues(answer, value)
}

func containsAnswer(answer, value any) bool {
	if items, ok := asSlice(answer); ok {
		for _, item := range items {
			if equalValues(item, value) {
				return true
			}
		}
		return false
	}
	as, aok := answer.(string)
	vs, vok := value.(string)
	if !aok || !vok {
		return false
	}
	return strings.Contains(strings.ToLower(as), strings.ToLower(vs))
}

func compareNumeric(answer, value any, cmp func(a, b float64) bool) bool {
	a, ok := toNumber(answer)
	if !ok {
		return false
	}
	b, ok := toNumber(value)
	if !ok {
		return false
	}
	return cmp(a, b)
}

func affixMatch(answer, value any, match func(s, affix string) bool) bool {
	as, aok := answer.(string)
	vs, vok := value.(string)
	if !aok || !vok {
		return false
	}
	return match(strings.ToLower(as), strings.ToLower(vs))
}

// inList: the condition value must be a list; an array answer matches on
// any intersection, a scalar on membership.
func inList(answer, value any) bool {
	list, ok := asSlice(value)
	if !ok {
		return false
	}
	if items, isArr := asSlice(answer); isArr {
		for _, item := range items {
			for _, candidate := range list {
				if equalValues(item, candidate) {
					return true
				}
			}
		}
		return false
	}
	for _, candidate := range list {
		if equalValues(answer, candidate) {
			return true
		}
	}
	return false
}
