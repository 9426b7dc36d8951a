package logic

import "formflow-service/internal/domain"

// ResolveSkip evaluates a question's conditional skip entries in array
// order and returns the target of the first entry whose condition set
// matches. First match wins. The second return is false when no rule is
// configured, the rule is disabled, or nothing matches.
//
// UnconditionalTarget is deliberately not consulted here: callers apply
// its precedence once the question carries a trigger answer (see
// skipTarget and the service-layer Next handling).
func ResolveSkip(q domain.Question, answers domain.AnswerSet) (string, bool) {
	if q.Logic == nil || q.Logic.SkipTo == nil || !q.Logic.SkipTo.Enabled {
		return "", false
	}
	for _, entry := range q.Logic.SkipTo.Rules {
		if EvaluateConditionSet(entry.Conditions, entry.Combinator, answers) {
			return entry.Target, true
		}
	}
	return "", false
}

// skipTarget applies the full precedence for an answered question: an
// unconditional target fires without consulting the conditional entries.
func skipTarget(q domain.Question, answers domain.AnswerSet) (string, bool) {
	if q.Logic == nil || q.Logic.SkipTo == nil || !q.Logic.SkipTo.Enabled {
		return "", false
	}
	if t := q.Logic.SkipTo.UnconditionalTarget; t != "" {
		return t, true
	}
	return ResolveSkip(q, answers)
}

// ComputeSkipped walks the display-order-sorted question list once,
// left to right, and returns the transitive set of question IDs hidden
// by upstream skip decisions.
//
// A skip to a later question T marks everything strictly between the
// trigger and T. A dangling or backward target marks nothing. A skip to
// END marks every remaining question and stops the pass.
//
// Note: a question already marked skipped can still trigger its own
// skip rule later in the same pass if it happens to carry an answer;
// the pass never re-checks the accumulating set when selecting
// triggers. Kept intentionally — downstream widgets depend on the
// resulting closure.
func ComputeSkipped(sorted []domain.Question, answers domain.AnswerSet) map[string]struct{} {
	skipped := make(map[string]struct{})
	for i, q := range sorted {
		if q.ID == "" || !hasTriggerAnswer(answers, q.ID) {
			continue
		}
		target, ok := skipTarget(q, answers)
		if !ok {
			continue
		}
		if target == domain.SkipToEnd {
			for _, rest := range sorted[i+1:] {
				if rest.ID != "" {
					skipped[rest.ID] = struct{}{}
				}
			}
			break
		}
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].ID == target {
				for _, between := range sorted[i+1 : j] {
					if between.ID != "" {
						skipped[between.ID] = struct{}{}
					}
				}
				break
			}
		}
	}
	return skipped
}
