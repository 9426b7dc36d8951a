package logic

import (
	"reflect"
	"testing"

	"formflow-service/internal/domain"
)

func pageBreak(id string, order int) domain.Question {
	return domain.Question{ID: id, DisplayOrder: order, Type: domain.TypePageBreak}
}

func fourQuestionForm(style domain.DisplayStyle) domain.Form {
	return domain.Form{
		ID:           "f1",
		DisplayStyle: style,
		Widget:       domain.WidgetForm,
		Questions: []domain.Question{
			question("q1", 0),
			question("q2", 1),
			pageBreak("pb", 2),
			question("q3", 3),
		},
	}
}

func pageIDs(pages [][]domain.Question) [][]string {
	out := make([][]string, len(pages))
	for i, page := range pages {
		ids := make([]string, len(page))
		for j, q := range page {
			ids[j] = q.ID
		}
		out[i] = ids
	}
	return out
}

func TestFreeformPageBreakPartitioning(t *testing.T) {
	pages := ComputePages(fourQuestionForm(domain.StyleFreeform), domain.AnswerSet{})
	want := [][]string{{"q1", "q2"}, {"q3"}}
	if got := pageIDs(pages); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestConversationalFlattening(t *testing.T) {
	pages := ComputePages(fourQuestionForm(domain.StyleConversational), domain.AnswerSet{})
	want := [][]string{{"q1"}, {"q2"}, {"q3"}}
	if got := pageIDs(pages); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected page break dropped and one question per page, got %v", got)
	}
}

func TestComputePagesSortsByDisplayOrder(t *testing.T) {
	form := domain.Form{
		ID:     "f1",
		Widget: domain.WidgetForm,
		Questions: []domain.Question{
			question("q3", 30),
			question("q1", 10),
			question("q2", 20),
		},
	}
	pages := ComputePages(form, domain.AnswerSet{})
	want := [][]string{{"q1", "q2", "q3"}}
	if got := pageIDs(pages); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected display-order sort, got %v", got)
	}
}

func TestVisibilityInteractsWithPaging(t *testing.T) {
	form := fourQuestionForm(domain.StyleFreeform)
	form.Questions[1].Logic = &domain.LogicRules{
		Visibility: &domain.VisibilityRule{
			Enabled:    true,
			Combinator: domain.CombinatorAnd,
			Conditions: []domain.Condition{cond("q1", domain.OpEquals, "show")},
		},
	}

	pages := ComputePages(form, domain.AnswerSet{})
	want := [][]string{{"q1"}, {"q3"}}
	if got := pageIDs(pages); !reflect.DeepEqual(got, want) {
		t.Fatalf("hidden question must not appear in any page, got %v", got)
	}

	pages = ComputePages(form, domain.AnswerSet{"q1": "show"})
	want = [][]string{{"q1", "q2"}, {"q3"}}
	if got := pageIDs(pages); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected q2 back once its condition is met, got %v", got)
	}
}

func TestSkipToEndOmitsLaterPages(t *testing.T) {
	form := fourQuestionForm(domain.StyleFreeform)
	form.Questions[0].Logic = &domain.LogicRules{
		SkipTo: &domain.SkipRule{
			Enabled: true,
			Rules:   []domain.SkipRuleEntry{skipWhen("q1", "done", domain.SkipToEnd)},
		},
	}
	pages := ComputePages(form, domain.AnswerSet{"q1": "done"})
	want := [][]string{{"q1"}}
	if got := pageIDs(pages); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected everything after the END trigger gone, got %v", got)
	}
}

func TestEmptyPageConventions(t *testing.T) {
	breaksOnly := []domain.Question{pageBreak("pb1", 0), pageBreak("pb2", 1)}

	formWidget := domain.Form{ID: "f1", Widget: domain.WidgetForm, Questions: breaksOnly}
	pages := ComputePages(formWidget, domain.AnswerSet{})
	if len(pages) != 1 || len(pages[0]) != 0 {
		t.Fatalf("form widget must render a single empty page, got %v", pageIDs(pages))
	}

	surveyWidget := domain.Form{ID: "s1", Widget: domain.WidgetSurvey, Questions: breaksOnly}
	pages = ComputePages(surveyWidget, domain.AnswerSet{})
	if len(pages) != 1 {
		t.Fatalf("survey widget must render a single page, got %d", len(pages))
	}
	for _, q := range pages[0] {
		if q.Type == domain.TypePageBreak {
			t.Fatalf("survey fallback page must not contain page breaks")
		}
	}
}

func TestComputePagesDeterminism(t *testing.T) {
	form := fourQuestionForm(domain.StyleFreeform)
	answers := domain.AnswerSet{"q1": "a", "q2": []string{"b"}}
	first := ComputePages(form, answers)
	for i := 0; i < 5; i++ {
		if got := ComputePages(form, answers); !reflect.DeepEqual(got, first) {
			t.Fatalf("expected identical output on repeated calls, got %v vs %v", got, first)
		}
	}
}

func TestValidatePage(t *testing.T) {
	required := question("q1", 0)
	required.IsRequired = true
	block := domain.Question{ID: "cb", DisplayOrder: 1, Type: domain.TypeContentBlock, IsRequired: true}
	optional := question("q2", 2)
	page := []domain.Question{required, block, optional}

	missing := ValidatePage(page, domain.AnswerSet{})
	if !reflect.DeepEqual(missing, []string{"q1"}) {
		t.Fatalf("expected only q1 missing (content blocks never validate), got %v", missing)
	}
	if missing := ValidatePage(page, domain.AnswerSet{"q1": "ok"}); len(missing) != 0 {
		t.Fatalf("expected no missing answers, got %v", missing)
	}
	if missing := ValidatePage(page, domain.AnswerSet{"q1": "   "}); !reflect.DeepEqual(missing, []string{"q1"}) {
		t.Fatalf("whitespace-only answers must not satisfy required questions, got %v", missing)
	}
}

func TestNextForPage(t *testing.T) {
	end := withSkip(question("q1", 0), &domain.SkipRule{
		Enabled: true,
		Rules:   []domain.SkipRuleEntry{skipWhen("q1", "done", domain.SkipToEnd)},
	})
	page := []domain.Question{end, question("q2", 1)}

	if action := NextForPage(page, domain.AnswerSet{"q1": "done"}); action != NavComplete {
		t.Fatalf("expected END skip to complete, got %v", action)
	}
	if action := NextForPage(page, domain.AnswerSet{"q1": "other"}); action != NavAdvance {
		t.Fatalf("expected unmatched skip to advance, got %v", action)
	}
	if action := NextForPage(page, domain.AnswerSet{}); action != NavAdvance {
		t.Fatalf("expected unanswered page to advance, got %v", action)
	}
}
