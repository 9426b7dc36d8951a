package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// QuestionType discriminates how a question is rendered and answered.
type QuestionType string

const (
	TypeText         QuestionType = "text"
	TypeTextarea     QuestionType = "textarea"
	TypeRadio        QuestionType = "radio"
	TypeCheckbox     QuestionType = "checkbox"
	TypeSelect       QuestionType = "select"
	TypeRating       QuestionType = "rating"
	TypeRanking      QuestionType = "ranking"
	TypeNumber       QuestionType = "number"
	TypePageBreak    QuestionType = "page_break"
	TypeContentBlock QuestionType = "content_block"
)

// Combinator joins a list of conditions into a single boolean.
type Combinator string

const (
	CombinatorAnd Combinator = "AND"
	CombinatorOr  Combinator = "OR"
)

// Operator is the closed set of condition operators.
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpContains           Operator = "contains"
	OpNotContains        Operator = "not_contains"
	OpGreaterThan        Operator = "greater_than"
	OpLessThan           Operator = "less_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
	OpIsEmpty            Operator = "is_empty"
	OpIsNotEmpty         Operator = "is_not_empty"
	OpStartsWith         Operator = "starts_with"
	OpEndsWith           Operator = "ends_with"
	OpInList             Operator = "in_list"
	OpNotInList          Operator = "not_in_list"
)

// SkipToEnd is the skip target that terminates the form early.
const SkipToEnd = "END"

// Condition compares a recorded answer against a value.
type Condition struct {
	QuestionID string   `json:"questionId"`
	Operator   Operator `json:"operator"`
	Value      any      `json:"value"`
}

// VisibilityRule controls whether a question is shown at all.
// Disabled or absent rules never hide a question.
type VisibilityRule struct {
	Enabled    bool        `json:"enabled"`
	Combinator Combinator  `json:"combinator"`
	Conditions []Condition `json:"conditions"`
}

// SkipRuleEntry is one conditional jump; Target is a question ID or SkipToEnd.
type SkipRuleEntry struct {
	Conditions []Condition `json:"conditions"`
	Combinator Combinator  `json:"combinator"`
	Target     string      `json:"target"`
}

// SkipRule controls whether answering a question jumps the flow forward.
// UnconditionalTarget, when set, takes precedence over Rules once the
// question carries a non-empty answer.
type SkipRule struct {
	Enabled             bool            `json:"enabled"`
	UnconditionalTarget string          `json:"unconditionalTarget,omitempty"`
	Rules               []SkipRuleEntry `json:"rules,omitempty"`
}

// LogicRules groups the per-question logic configuration.
type LogicRules struct {
	Visibility *VisibilityRule `json:"visibility,omitempty"`
	SkipTo     *SkipRule       `json:"skipTo,omitempty"`
}

// Option is one selectable choice for radio/checkbox/select questions.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Question is one item of a form definition. DisplayOrder defines the
// canonical sequence; stored order is not trusted.
type Question struct {
	ID           string       `json:"id,omitempty"`
	DisplayOrder int          `json:"displayOrder"`
	Type         QuestionType `json:"type"`
	Label        string       `json:"label,omitempty"`
	IsRequired   bool         `json:"isRequired,omitempty"`
	Options      []Option     `json:"options,omitempty"`
	Logic        *LogicRules  `json:"logicRules,omitempty"`
}

// CollectsAnswer reports whether the question records an answer.
// Page breaks and content blocks are structural placeholders.
func (q Question) CollectsAnswer() bool {
	return q.Type != TypePageBreak && q.Type != TypeContentBlock
}

// DisplayStyle selects the pagination policy.
type DisplayStyle string

const (
	StyleFreeform       DisplayStyle = "freeform"
	StyleConversational DisplayStyle = "conversational"
)

// WidgetKind distinguishes the two embeddable widgets. They share the
// engine but keep their own empty-page convention.
type WidgetKind string

const (
	WidgetForm   WidgetKind = "form"
	WidgetSurvey WidgetKind = "survey"
)

// Form is a full form/survey definition, immutable for the duration of a
// rendering session.
type Form struct {
	ID           string       `json:"id"`
	Title        string       `json:"title,omitempty"`
	DisplayStyle DisplayStyle `json:"displayStyle,omitempty"`
	Widget       WidgetKind   `json:"widget,omitempty"`
	Questions    []Question   `json:"questions"`
}

// AnswerSet maps question IDs to recorded answer values. Unanswered
// questions have no entry; absence, not nil, signals "no answer".
type AnswerSet map[string]any

// Clone returns a shallow copy safe to hand to the engine while the
// original keeps mutating.
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Response is a completed submission ready for persistence.
type Response struct {
	ID          string    `json:"id"`
	FormID      string    `json:"formId"`
	SessionID   string    `json:"sessionId"`
	Answers     AnswerSet `json:"answers"`
	CompletedAt time.Time `json:"completedAt"`
}

// EnsureIDs assigns a deterministic ID to every question that lacks one,
// derived from the form ID, display order, and label. Skip targets and
// answer keys then stay stable across reloads instead of falling back to
// positional indexing.
func EnsureIDs(form Form) Form {
	questions := make([]Question, len(form.Questions))
	copy(questions, form.Questions)
	for i := range questions {
		if questions[i].ID != "" {
			continue
		}
		seed := form.ID + "/" + strconv.Itoa(questions[i].DisplayOrder) + "/" + questions[i].Label
		questions[i].ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
	}
	form.Questions = questions
	return form
}
