package answers

import (
	"time"

	apperrors "github.com/louisbranch/answerdesk/internal/platform/errors"
	"github.com/louisbranch/answerdesk/internal/services/answers/domain"
)

type socialPostView struct {
	Platform    string    `json:"platform"`
	PostID      string    `json:"post_id"`
	PublishedAt time.Time `json:"published_at"`
}

type answerView struct {
	ID                string           `json:"id"`
	QuestionID        string           `json:"question_id"`
	ExpertID          string           `json:"expert_id"`
	Content           string           `json:"content"`
	IsApproved        bool             `json:"is_approved"`
	WasApproved       bool             `json:"was_approved"`
	IsAccepted        bool             `json:"is_accepted"`
	ModeratedBy       string           `json:"moderated_by,omitempty"`
	ModeratedAt       *time.Time       `json:"moderated_at,omitempty"`
	ModerationComment string           `json:"moderation_comment,omitempty"`
	Likes             int              `json:"likes"`
	SocialPosts       []socialPostView `json:"social_posts"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

type pageView struct {
	Answers       []answerView `json:"answers"`
	NextPageToken string       `json:"next_page_token,omitempty"`
}

type actionView struct {
	Seq  int               `json:"seq"`
	Kind string            `json:"kind"`
	Info map[string]string `json:"info,omitempty"`
	At   time.Time         `json:"at"`
}

type actionsView struct {
	Actions []actionView `json:"actions"`
}

type bulkItemView struct {
	AnswerID string         `json:"answer_id"`
	Answer   *answerView    `json:"answer,omitempty"`
	Error    *errorResponse `json:"error,omitempty"`
}

type bulkView struct {
	Total   int            `json:"total"`
	Success int            `json:"success"`
	Errors  int            `json:"errors"`
	Results []bulkItemView `json:"results"`
}

func answerToView(answer domain.Answer) answerView {
	view := answerView{
		ID:                answer.ID,
		QuestionID:        answer.QuestionID,
		ExpertID:          answer.ExpertID,
		Content:           answer.Content,
		IsApproved:        answer.IsApproved,
		WasApproved:       answer.WasApproved,
		IsAccepted:        answer.IsAccepted,
		ModeratedBy:       answer.ModeratedBy,
		ModeratedAt:       answer.ModeratedAt,
		ModerationComment: answer.ModerationComment,
		Likes:             answer.Likes,
		SocialPosts:       make([]socialPostView, 0, len(answer.SocialPosts)),
		CreatedAt:         answer.CreatedAt,
		UpdatedAt:         answer.UpdatedAt,
	}
	for _, post := range answer.TrackedPosts() {
		view.SocialPosts = append(view.SocialPosts, socialPostView{
			Platform:    string(post.Platform),
			PostID:      post.PostID,
			PublishedAt: post.PublishedAt,
		})
	}
	return view
}

func actionToView(action domain.Action) actionView {
	return actionView{Seq: action.Seq, Kind: string(action.Kind), Info: action.Info, At: action.At}
}

func bulkToView(result domain.BulkResult) bulkView {
	view := bulkView{
		Total:   result.Total,
		Success: result.Success,
		Errors:  result.Errors,
		Results: make([]bulkItemView, 0, len(result.Results)),
	}
	for _, item := range result.Results {
		entry := bulkItemView{AnswerID: item.AnswerID}
		if item.Err != nil {
			code := apperrors.CodeOf(item.Err)
			description := "internal error"
			if code != apperrors.CodeUnknown {
				description = item.Err.Error()
			}
			entry.Error = &errorResponse{Error: string(code), ErrorDescription: description}
		} else {
			answer := answerToView(item.Answer)
			entry.Answer = &answer
		}
		view.Results = append(view.Results, entry)
	}
	return view
}
