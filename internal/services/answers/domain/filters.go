package domain

import "github.com/louisbranch/answerdesk/internal/platform/filter"

// AnswerFilter declares the identifiers accepted when listing answers.
var AnswerFilter = filter.MustSchema(
	filter.Field{Name: "is_approved", Column: "is_approved", Type: filter.TypeBool},
	filter.Field{Name: "is_accepted", Column: "is_accepted", Type: filter.TypeBool},
	filter.Field{Name: "expert_id", Column: "expert_id", Type: filter.TypeString},
)

// ActionFilter declares the identifiers accepted when listing answer actions.
var ActionFilter = filter.MustSchema(
	filter.Field{Name: "kind", Column: "kind", Type: filter.TypeString},
)
