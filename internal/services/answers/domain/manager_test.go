package domain

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	apperrors "github.com/louisbranch/answerdesk/internal/platform/errors"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store      *fakeStore
	syndicator *fakeSyndicator
	notifier   *recordingNotifier
	manager    *Manager
}

func newFixture(t *testing.T, ids ...string) *fixture {
	t.Helper()
	store := newFakeStore()
	store.putUser(User{ID: "expert-1", DisplayName: "Ada", Role: RoleExpert})
	store.putUser(User{ID: "expert-2", DisplayName: "Grace", Role: RoleExpert})
	store.putUser(User{ID: "asker-1", DisplayName: "Sam", Role: RoleMember})
	store.putUser(User{ID: "mod-1", DisplayName: "Mo", Role: RoleModerator})
	store.putUser(User{ID: "admin-1", DisplayName: "Root", Role: RoleAdmin})
	store.putQuestion(Question{ID: "q-1", Slug: "how-to-brew", Title: "How to brew?", AuthorID: "asker-1", Status: QuestionPending})

	if len(ids) == 0 {
		ids = []string{"a-1", "a-2", "a-3"}
	}
	syndicator := &fakeSyndicator{platforms: []Platform{PlatformFacebook, PlatformLinkedIn}}
	notifier := &recordingNotifier{}
	manager := NewManager(Deps{
		Answers:    store,
		Questions:  store,
		Users:      store,
		Syndicator: syndicator,
		Notifier:   notifier,
		Events:     discardEvents{},
		Clock:      fixedClock(testNow),
		NewID:      sequentialIDGenerator(ids...),
	})
	return &fixture{store: store, syndicator: syndicator, notifier: notifier, manager: manager}
}

func content(n int) string {
	return strings.Repeat("a", n)
}

func (f *fixture) create(t *testing.T, expertID string) Answer {
	t.Helper()
	answer, err := f.manager.Create(context.Background(), CreateInput{QuestionID: "q-1", ExpertID: expertID, Content: content(60)})
	if err != nil {
		t.Fatalf("create answer for %s: %v", expertID, err)
	}
	return answer
}

func (f *fixture) approve(t *testing.T, answerID string) Answer {
	t.Helper()
	answer, err := f.manager.Moderate(context.Background(), ModerateInput{AnswerID: answerID, ModeratorID: "admin-1", Approve: true, Comment: "ok"})
	if err != nil {
		t.Fatalf("approve %s: %v", answerID, err)
	}
	return answer
}

func assertCode(t *testing.T, err error, want apperrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := apperrors.CodeOf(err); got != want {
		t.Fatalf("error code = %s, want %s (err=%v)", got, want, err)
	}
}

func countKind(actions []Action, kind ActionKind) int {
	n := 0
	for _, action := range actions {
		if action.Kind == kind {
			n++
		}
	}
	return n
}

func TestCreate_RecordsUnapprovedAnswerWithCreateAction(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	answer := f.create(t, "expert-1")
	if answer.IsApproved || answer.WasApproved {
		t.Fatalf("answer approval = %v/%v, want false/false", answer.IsApproved, answer.WasApproved)
	}
	if got := answer.Actions.Kinds(); !reflect.DeepEqual(got, []ActionKind{ActionCreate}) {
		t.Fatalf("actions = %v, want [create]", got)
	}
	stored, ok := f.store.storedAnswer(answer.ID)
	if !ok {
		t.Fatal("answer was not stored")
	}
	if got := stored.Actions.Kinds(); !reflect.DeepEqual(got, []ActionKind{ActionCreate}) {
		t.Fatalf("stored actions = %v, want [create]", got)
	}
	if len(stored.Actions.Pending()) != 0 {
		t.Fatal("stored log should have no pending entries")
	}
	if q := f.store.question("q-1"); q.AnswersCount != 0 || q.Status != QuestionPending {
		t.Fatalf("question = %+v, want untouched", q)
	}
	if got := f.notifier.kinds(); !reflect.DeepEqual(got, []EventKind{EventAnswerCreated}) {
		t.Fatalf("notifications = %v", got)
	}
}

func TestCreate_RejectsInvalidRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input CreateInput
		setup func(f *fixture)
		want  apperrors.Code
	}{
		{
			name:  "content too short",
			input: CreateInput{QuestionID: "q-1", ExpertID: "expert-1", Content: content(49)},
			want:  apperrors.CodeValidationFailed,
		},
		{
			name:  "content too long",
			input: CreateInput{QuestionID: "q-1", ExpertID: "expert-1", Content: content(MaxContentLength + 1)},
			want:  apperrors.CodeValidationFailed,
		},
		{
			name:  "missing question",
			input: CreateInput{QuestionID: "q-404", ExpertID: "expert-1", Content: content(60)},
			want:  apperrors.CodeNotFound,
		},
		{
			name:  "moderator cannot answer",
			input: CreateInput{QuestionID: "q-1", ExpertID: "mod-1", Content: content(60)},
			want:  apperrors.CodePermissionDenied,
		},
		{
			name: "self answer",
			input: CreateInput{QuestionID: "q-2", ExpertID: "expert-1", Content: content(60)},
			setup: func(f *fixture) {
				f.store.putQuestion(Question{ID: "q-2", AuthorID: "expert-1", Status: QuestionPending})
			},
			want: apperrors.CodeAnswerSelfAnswer,
		},
		{
			name:  "duplicate answer",
			input: CreateInput{QuestionID: "q-1", ExpertID: "expert-1", Content: content(60)},
			setup: func(f *fixture) {
				if _, err := f.manager.Create(context.Background(), CreateInput{QuestionID: "q-1", ExpertID: "expert-1", Content: content(60)}); err != nil {
					panic(err)
				}
			},
			want: apperrors.CodeAnswerDuplicate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			_, err := f.manager.Create(context.Background(), tt.input)
			assertCode(t, err, tt.want)
		})
	}
}

func TestCreate_MapsStoreConflictToDuplicate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.store.commitErr = ErrConflict

	_, err := f.manager.Create(context.Background(), CreateInput{QuestionID: "q-1", ExpertID: "expert-1", Content: content(60)})
	assertCode(t, err, apperrors.CodeAnswerDuplicate)
}

func TestModerate_ApproveCountsAnswerAndSyndicates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	created := f.create(t, "expert-1")

	answer := f.approve(t, created.ID)
	if !answer.IsApproved || !answer.WasApproved {
		t.Fatalf("approval = %v/%v, want true/true", answer.IsApproved, answer.WasApproved)
	}
	if answer.ModeratedBy != "admin-1" || answer.ModerationComment != "ok" || answer.ModeratedAt == nil {
		t.Fatalf("moderation stamp = %q %q %v", answer.ModeratedBy, answer.ModerationComment, answer.ModeratedAt)
	}
	q := f.store.question("q-1")
	if q.AnswersCount != 1 || q.Status != QuestionAnswered {
		t.Fatalf("question count/status = %d/%s, want 1/answered", q.AnswersCount, q.Status)
	}
	if len(f.syndicator.syncs) != 1 {
		t.Fatalf("sync calls = %d, want 1", len(f.syndicator.syncs))
	}
	if subject := f.syndicator.subjects[0]; subject.Expert.DisplayName != "Ada" || subject.Question.Slug != "how-to-brew" {
		t.Fatalf("subject = %+v", subject)
	}

	stored, _ := f.store.storedAnswer(created.ID)
	entries := stored.Actions.Entries()
	if got := countKind(entries, ActionApprove); got != 1 {
		t.Fatalf("approve actions = %d, want 1", got)
	}
	if got := countKind(entries, ActionSocialPublish); got != 2 {
		t.Fatalf("publish actions = %d, want one per platform", got)
	}
	if len(stored.SocialPosts) != 2 {
		t.Fatalf("tracked posts = %d, want 2", len(stored.SocialPosts))
	}
}

func TestModerate_RequiresModeratorAndStateChange(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	created := f.create(t, "expert-1")

	_, err := f.manager.Moderate(context.Background(), ModerateInput{AnswerID: created.ID, ModeratorID: "expert-2", Approve: true})
	assertCode(t, err, apperrors.CodePermissionDenied)

	_, err = f.manager.Moderate(context.Background(), ModerateInput{AnswerID: created.ID, ModeratorID: "mod-1", Approve: false})
	assertCode(t, err, apperrors.CodeAnswerStateUnchanged)

	f.approve(t, created.ID)
	_, err = f.manager.Moderate(context.Background(), ModerateInput{AnswerID: created.ID, ModeratorID: "mod-1", Approve: true})
	assertCode(t, err, apperrors.CodeAnswerStateUnchanged)
	if q := f.store.question("q-1"); q.AnswersCount != 1 {
		t.Fatalf("answers count = %d, want 1", q.AnswersCount)
	}

	_, err = f.manager.Moderate(context.Background(), ModerateInput{AnswerID: "missing", ModeratorID: "mod-1", Approve: true})
	assertCode(t, err, apperrors.CodeNotFound)
}

// staleAnswerStore serves a fixed snapshot from GetAnswer, as a concurrent
// request that read the answer before another one wrote it would see.
type staleAnswerStore struct {
	*fakeStore
	snapshot Answer
}

func (s staleAnswerStore) GetAnswer(context.Context, string) (Answer, error) {
	return s.snapshot, nil
}

func TestModerate_StaleApprovalConflictsWithoutCountingTwice(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	created := f.create(t, "expert-1")
	snapshot, _ := f.store.storedAnswer(created.ID)
	f.approve(t, created.ID)

	syndicator := &fakeSyndicator{platforms: []Platform{PlatformFacebook}}
	stale := NewManager(Deps{
		Answers:    staleAnswerStore{fakeStore: f.store, snapshot: snapshot},
		Questions:  f.store,
		Users:      f.store,
		Syndicator: syndicator,
		Events:     discardEvents{},
		Clock:      fixedClock(testNow),
	})

	_, err := stale.Moderate(context.Background(), ModerateInput{AnswerID: created.ID, ModeratorID: "mod-1", Approve: true})
	assertCode(t, err, apperrors.CodeAnswerStateUnchanged)
	if q := f.store.question("q-1"); q.AnswersCount != 1 {
		t.Fatalf("answers count = %d, want 1", q.AnswersCount)
	}
	stored, _ := f.store.storedAnswer(created.ID)
	if got := countKind(stored.Actions.Entries(), ActionApprove); got != 1 {
		t.Fatalf("approve actions = %d, want 1", got)
	}
	if len(syndicator.syncs) != 0 {
		t.Fatalf("sync calls = %d, want none for a conflicting approval", len(syndicator.syncs))
	}

	approved, _ := f.store.storedAnswer(created.ID)
	rejecter := NewManager(Deps{
		Answers:   staleAnswerStore{fakeStore: f.store, snapshot: approved},
		Questions: f.store,
		Users:     f.store,
		Events:    discardEvents{},
		Clock:     fixedClock(testNow),
	})
	if _, err := f.manager.Moderate(context.Background(), ModerateInput{AnswerID: created.ID, ModeratorID: "mod-1", Approve: false}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	_, err = rejecter.Moderate(context.Background(), ModerateInput{AnswerID: created.ID, ModeratorID: "mod-1", Approve: false})
	assertCode(t, err, apperrors.CodeAnswerStateUnchanged)
	if q := f.store.question("q-1"); q.AnswersCount != 0 {
		t.Fatalf("answers count = %d, want 0", q.AnswersCount)
	}
}

func TestUpdate_StaleAuthorEditConflicts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	created := f.create(t, "expert-1")
	f.approve(t, created.ID)
	approved, _ := f.store.storedAnswer(created.ID)
	if _, err := f.manager.Moderate(context.Background(), ModerateInput{AnswerID: created.ID, ModeratorID: "mod-1", Approve: false}); err != nil {
		t.Fatalf("reject: %v", err)
	}

	stale := NewManager(Deps{
		Answers:   staleAnswerStore{fakeStore: f.store, snapshot: approved},
		Questions: f.store,
		Users:     f.store,
		Events:    discardEvents{},
		Clock:     fixedClock(testNow),
	})
	_, err := stale.Update(context.Background(), UpdateInput{AnswerID: created.ID, ActorID: "expert-1", Content: content(80)})
	assertCode(t, err, apperrors.CodeAnswerStateUnchanged)
	if q := f.store.question("q-1"); q.AnswersCount != 0 {
		t.Fatalf("answers count = %d, want 0", q.AnswersCount)
	}
}

func TestModerate_RejectDecrementsAndDeletesPosts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	created := f.create(t, "expert-1")
	f.approve(t, created.ID)

	answer, err := f.manager.Moderate(context.Background(), ModerateInput{AnswerID: created.ID, ModeratorID: "mod-1", Approve: false, Comment: "off topic"})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if answer.IsApproved || !answer.WasApproved {
		t.Fatalf("approval = %v/%v, want false/true", answer.IsApproved, answer.WasApproved)
	}
	if len(answer.SocialPosts) != 0 {
		t.Fatalf("tracked posts = %d, want 0", len(answer.SocialPosts))
	}
	q := f.store.question("q-1")
	if q.AnswersCount != 0 || q.Status != QuestionPending {
		t.Fatalf("question count/status = %d/%s, want 0/pending", q.AnswersCount, q.Status)
	}
	stored, _ := f.store.storedAnswer(created.ID)
	if got := countKind(stored.Actions.Entries(), ActionReject); got != 1 {
		t.Fatalf("reject actions = %d, want 1", got)
	}
	if got := countKind(stored.Actions.Entries(), ActionSocialDelete); got != 1 {
		t.Fatalf("delete actions = %d, want 1", got)
	}
	if got := f.notifier.kinds(); !reflect.DeepEqual(got, []EventKind{EventAnswerCreated, EventAnswerApproved, EventAnswerRejected}) {
		t.Fatalf("notifications = %v", got)
	}
}

func TestModerate_StatusStaysAnsweredWhileAnotherApprovedAnswerRemains(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	first := f.create(t, "expert-1")
	second := f.create(t, "expert-2")
	f.approve(t, first.ID)
	f.approve(t, second.ID)

	if _, err := f.manager.Moderate(context.Background(), ModerateInput{AnswerID: first.ID, ModeratorID: "mod-1", Approve: false}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	q := f.store.question("q-1")
	if q.AnswersCount != 1 || q.Status != QuestionAnswered {
		t.Fatalf("question count/status = %d/%s, want 1/answered", q.AnswersCount, q.Status)
	}
}

func TestModerate_NeverOverwritesClosedStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	created := f.create(t, "expert-1")
	q := f.store.question("q-1")
	q.Status = QuestionClosed
	f.store.putQuestion(q)

	f.approve(t, created.ID)
	if got := f.store.question("q-1"); got.Status != QuestionClosed || got.AnswersCount != 1 {
		t.Fatalf("question = %+v, want closed with one answer", got)
	}
}

func TestModerate_NotifierFailureDoesNotFailApproval(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	created := f.create(t, "expert-1")
	f.notifier.err = errors.New("broker down")

	answer := f.approve(t, created.ID)
	if !answer.IsApproved {
		t.Fatal("expected approval to stick")
	}
}

func TestAccept_MarksAnswerAndRejectsSecondAccept(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	first := f.create(t, "expert-1")
	second := f.create(t, "expert-2")
	f.approve(t, first.ID)
	f.approve(t, second.ID)

	accepted, err := f.manager.Accept(context.Background(), AcceptInput{AnswerID: first.ID, ActorID: "asker-1"})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !accepted.IsAccepted {
		t.Fatal("expected answer to be accepted")
	}
	q := f.store.question("q-1")
	if !q.HasAcceptedAnswer || q.AcceptedAnswerID != first.ID || q.Status != QuestionAnswered {
		t.Fatalf("question = %+v", q)
	}
	if got := f.store.reputation["expert-1"]; got != AcceptedAnswerReputation {
		t.Fatalf("reputation delta = %d, want %d", got, AcceptedAnswerReputation)
	}

	_, err = f.manager.Accept(context.Background(), AcceptInput{AnswerID: second.ID, ActorID: "asker-1"})
	assertCode(t, err, apperrors.CodeAnswerAlreadyAccepted)
	if !errors.Is(err, ErrAlreadyAccepted) {
		t.Fatal("expected errors.Is match on ErrAlreadyAccepted")
	}
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Fatalf("kind = %s, want conflict", apperrors.KindOf(err))
	}

	stored, _ := f.store.storedAnswer(second.ID)
	if stored.IsAccepted {
		t.Fatal("second answer must not be accepted")
	}
}

func TestAccept_StoreConflictMapsToAlreadyAccepted(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	first := f.create(t, "expert-1")
	second := f.create(t, "expert-2")
	f.approve(t, first.ID)
	f.approve(t, second.ID)

	// Simulate a concurrent accept that landed after the precondition read.
	store := &racingAcceptStore{fakeStore: f.store}
	manager := NewManager(Deps{Answers: store, Questions: f.store, Users: f.store, Events: discardEvents{}, Clock: fixedClock(testNow)})
	_, err := manager.Accept(context.Background(), AcceptInput{AnswerID: second.ID, ActorID: "asker-1"})
	assertCode(t, err, apperrors.CodeAnswerAlreadyAccepted)
}

type racingAcceptStore struct {
	*fakeStore
}

func (s *racingAcceptStore) AcceptAnswer(ctx context.Context, answer Answer, question Question) error {
	s.mu.Lock()
	q := s.questions[question.ID]
	q.HasAcceptedAnswer = true
	q.AcceptedAnswerID = "someone-else"
	s.questions[question.ID] = q
	s.mu.Unlock()
	return s.fakeStore.AcceptAnswer(ctx, answer, question)
}

func TestAccept_Preconditions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	created := f.create(t, "expert-1")

	_, err := f.manager.Accept(context.Background(), AcceptInput{AnswerID: created.ID, ActorID: "asker-1"})
	assertCode(t, err, apperrors.CodeAnswerNotApproved)

	f.approve(t, created.ID)
	_, err = f.manager.Accept(context.Background(), AcceptInput{AnswerID: created.ID, ActorID: "expert-2"})
	assertCode(t, err, apperrors.CodePermissionDenied)

	if _, err := f.manager.Accept(context.Background(), AcceptInput{AnswerID: created.ID, ActorID: "admin-1"}); err != nil {
		t.Fatalf("admin accept: %v", err)
	}
}

func TestModerate_RejectingAcceptedAnswerReleasesQuestion(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	created := f.create(t, "expert-1")
	f.approve(t, created.ID)
	if _, err := f.manager.Accept(context.Background(), AcceptInput{AnswerID: created.ID, ActorID: "asker-1"}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	answer, err := f.manager.Moderate(context.Background(), ModerateInput{AnswerID: created.ID, ModeratorID: "mod-1", Approve: false})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if answer.IsAccepted {
		t.Fatal("rejected answer must not stay accepted")
	}
	q := f.store.question("q-1")
	if q.HasAcceptedAnswer || q.AcceptedAnswerID != "" || q.Status != QuestionPending {
		t.Fatalf("question = %+v, want released and pending", q)
	}
}

func TestUpdate_AuthorEditRevokesApproval(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	created := f.create(t, "expert-1")
	f.approve(t, created.ID)

	answer, err := f.manager.Update(context.Background(), UpdateInput{AnswerID: created.ID, ActorID: "expert-1", Content: content(70)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if answer.IsApproved || !answer.WasApproved {
		t.Fatalf("approval = %v/%v, want false/true", answer.IsApproved, answer.WasApproved)
	}
	if answer.ModeratedBy != "" || answer.ModeratedAt != nil || answer.ModerationComment != "" {
		t.Fatal("expected moderation metadata to be cleared")
	}
	q := f.store.question("q-1")
	if q.AnswersCount != 0 || q.Status != QuestionPending {
		t.Fatalf("question count/status = %d/%s, want 0/pending", q.AnswersCount, q.Status)
	}
	if !reflect.DeepEqual(f.syndicator.deletes, []string{created.ID}) {
		t.Fatalf("delete calls = %v", f.syndicator.deletes)
	}
	stored, _ := f.store.storedAnswer(created.ID)
	if stored.Content != content(70) {
		t.Fatal("content was not persisted")
	}
	if len(stored.SocialPosts) != 0 {
		t.Fatalf("tracked posts = %d, want 0", len(stored.SocialPosts))
	}
	if got := countKind(stored.Actions.Entries(), ActionUpdate); got != 1 {
		t.Fatalf("update actions = %d, want 1", got)
	}
}

func TestUpdate_AdminEditKeepsApprovalAndRepublishes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	created := f.create(t, "expert-1")
	f.approve(t, created.ID)

	answer, err := f.manager.Update(context.Background(), UpdateInput{AnswerID: created.ID, ActorID: "admin-1", Content: content(80)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !answer.IsApproved {
		t.Fatal("admin edit must keep approval")
	}
	if q := f.store.question("q-1"); q.AnswersCount != 1 || q.Status != QuestionAnswered {
		t.Fatalf("question = %+v, want unchanged", q)
	}
	if len(f.syndicator.syncs) != 2 {
		t.Fatalf("sync calls = %d, want 2", len(f.syndicator.syncs))
	}
	if len(f.syndicator.deletes) != 0 {
		t.Fatalf("delete calls = %d, want 0", len(f.syndicator.deletes))
	}
}

func TestUpdate_UnapprovedEditDoesNotSyndicate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	created := f.create(t, "expert-1")

	if _, err := f.manager.Update(context.Background(), UpdateInput{AnswerID: created.ID, ActorID: "expert-1", Content: content(55)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(f.syndicator.syncs)+len(f.syndicator.deletes) != 0 {
		t.Fatal("expected no syndication for unapproved edit")
	}

	_, err := f.manager.Update(context.Background(), UpdateInput{AnswerID: created.ID, ActorID: "expert-2", Content: content(55)})
	assertCode(t, err, apperrors.CodePermissionDenied)

	_, err = f.manager.Update(context.Background(), UpdateInput{AnswerID: created.ID, ActorID: "expert-1", Content: "  short  "})
	assertCode(t, err, apperrors.CodeValidationFailed)
}

func TestDelete_Permissions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	draft := f.create(t, "expert-1")

	err := f.manager.Delete(context.Background(), DeleteInput{AnswerID: draft.ID, ActorID: "expert-2"})
	assertCode(t, err, apperrors.CodePermissionDenied)

	if err := f.manager.Delete(context.Background(), DeleteInput{AnswerID: draft.ID, ActorID: "expert-1"}); err != nil {
		t.Fatalf("author delete of draft: %v", err)
	}
	if _, ok := f.store.storedAnswer(draft.ID); ok {
		t.Fatal("expected answer to be removed")
	}

	approved := f.create(t, "expert-2")
	f.approve(t, approved.ID)
	if _, err := f.manager.Moderate(context.Background(), ModerateInput{AnswerID: approved.ID, ModeratorID: "mod-1", Approve: false}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	err = f.manager.Delete(context.Background(), DeleteInput{AnswerID: approved.ID, ActorID: "expert-2"})
	assertCode(t, err, apperrors.CodePermissionDenied)
	if !errors.Is(err, ErrDeleteAfterApprove) {
		t.Fatalf("err = %v, want delete-after-approve", err)
	}
}

func TestDelete_AdminRemovesAcceptedAnswer(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	created := f.create(t, "expert-1")
	f.approve(t, created.ID)
	if _, err := f.manager.Accept(context.Background(), AcceptInput{AnswerID: created.ID, ActorID: "asker-1"}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if err := f.manager.Delete(context.Background(), DeleteInput{AnswerID: created.ID, ActorID: "admin-1"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	q := f.store.question("q-1")
	if q.HasAcceptedAnswer || q.AnswersCount != 0 || q.Status != QuestionPending {
		t.Fatalf("question = %+v, want released, zero, pending", q)
	}
	if !reflect.DeepEqual(f.syndicator.deletes, []string{created.ID}) {
		t.Fatalf("delete calls = %v", f.syndicator.deletes)
	}
}

func TestBulkModerate_IsolatesFailures(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	first := f.create(t, "expert-1")
	second := f.create(t, "expert-2")

	result, err := f.manager.BulkModerate(context.Background(), BulkModerateInput{
		AnswerIDs:   []string{first.ID, "nonexistent", second.ID},
		ModeratorID: "mod-1",
		Approve:     true,
	})
	if err != nil {
		t.Fatalf("bulk moderate: %v", err)
	}
	if result.Total != 3 || result.Success != 2 || result.Errors != 1 {
		t.Fatalf("result = %d/%d/%d, want 3/2/1", result.Total, result.Success, result.Errors)
	}
	if result.Results[1].Err == nil || result.Results[2].Err != nil {
		t.Fatalf("per-item errors = %v, %v", result.Results[1].Err, result.Results[2].Err)
	}
	if !result.Results[2].Answer.IsApproved {
		t.Fatal("third item should be approved")
	}
	if q := f.store.question("q-1"); q.AnswersCount != 2 {
		t.Fatalf("answers count = %d, want 2", q.AnswersCount)
	}

	if _, err := f.manager.BulkModerate(context.Background(), BulkModerateInput{ModeratorID: "mod-1"}); err == nil {
		t.Fatal("expected validation error for empty id list")
	}
}

func TestListForQuestion_HidesOthersUnapprovedAnswers(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	first := f.create(t, "expert-1")
	f.create(t, "expert-2")
	f.approve(t, first.ID)

	page, err := f.manager.ListForQuestion(context.Background(), ListInput{QuestionID: "q-1", ViewerID: "asker-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Answers) != 1 || page.Answers[0].ID != first.ID {
		t.Fatalf("visible answers = %d, want only the approved one", len(page.Answers))
	}

	page, err = f.manager.ListForQuestion(context.Background(), ListInput{QuestionID: "q-1", ViewerID: "expert-2"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Answers) != 2 {
		t.Fatalf("author sees %d answers, want 2", len(page.Answers))
	}

	page, err = f.manager.ListForQuestion(context.Background(), ListInput{QuestionID: "q-1", ViewerID: "mod-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Answers) != 2 {
		t.Fatalf("moderator sees %d answers, want 2", len(page.Answers))
	}

	_, err = f.manager.ListForQuestion(context.Background(), ListInput{QuestionID: "q-1", Filter: "title = \"x\""})
	assertCode(t, err, apperrors.CodeValidationFailed)
}

func TestListActions_RequiresModerator(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	created := f.create(t, "expert-1")
	f.approve(t, created.ID)

	_, err := f.manager.ListActions(context.Background(), ListActionsInput{AnswerID: created.ID, ActorID: "expert-1"})
	assertCode(t, err, apperrors.CodePermissionDenied)

	actions, err := f.manager.ListActions(context.Background(), ListActionsInput{AnswerID: created.ID, ActorID: "mod-1", Filter: `kind = "approve"`})
	if err != nil {
		t.Fatalf("list actions: %v", err)
	}
	if len(actions) == 0 || actions[0].Kind != ActionCreate || actions[0].Seq != 1 {
		t.Fatalf("actions = %+v", actions)
	}
}

func TestManager_RequiresStores(t *testing.T) {
	t.Parallel()

	manager := NewManager(Deps{})
	if _, err := manager.Create(context.Background(), CreateInput{}); !errors.Is(err, ErrStoreNotConfigured) {
		t.Fatalf("err = %v, want ErrStoreNotConfigured", err)
	}
}
