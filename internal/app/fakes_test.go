package app_test

import (
	"context"
	"sync"

	"dsa-tracker/internal/app"
	"dsa-tracker/internal/client"
	"dsa-tracker/internal/domain"
)

// fakeAPI stands in for the HTTP client. It records calls in order and writes
// tokens to the shared storage exactly like the real client does.
type fakeAPI struct {
	mu      sync.Mutex
	storage app.Storage
	session *app.Session

	calls       []string
	marks       []domain.Completion
	loadingSeen []bool

	user      domain.User
	userErr   error
	signupErr error
	loginErr  error
	markErr   error
	topics    []domain.Topic
	topicsErr error
	token     string
}

func newFakeAPI(storage app.Storage) *fakeAPI {
	return &fakeAPI{storage: storage, token: "tok-1"}
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.session != nil {
		f.loadingSeen = append(f.loadingSeen, f.session.IsLoading())
	}
}

func (f *fakeAPI) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) Signup(ctx context.Context, _ client.SignupPayload) (client.TokenResponse, error) {
	f.record("signup")
	if f.signupErr != nil {
		return client.TokenResponse{}, f.signupErr
	}
	_ = f.storage.Set(ctx, app.TokenKey, f.token)
	return client.TokenResponse{Token: f.token}, nil
}

func (f *fakeAPI) Login(ctx context.Context, _ client.LoginPayload) (client.TokenResponse, error) {
	f.record("login")
	if f.loginErr != nil {
		return client.TokenResponse{}, f.loginErr
	}
	_ = f.storage.Set(ctx, app.TokenKey, f.token)
	return client.TokenResponse{Token: f.token}, nil
}

func (f *fakeAPI) GetUserData(_ context.Context) (domain.User, error) {
	f.record("me")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user, f.userErr
}

func (f *fakeAPI) GetTopics(_ context.Context) ([]domain.Topic, error) {
	f.record("topics")
	return f.topics, f.topicsErr
}

func (f *fakeAPI) MarkTopicAsComplete(_ context.Context, c domain.Completion) error {
	f.record("mark")
	f.mu.Lock()
	f.marks = append(f.marks, c)
	f.mu.Unlock()
	return f.markErr
}

func sampleUser() domain.User {
	return domain.User{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
		CompletedTopics: []domain.CompletedTopic{
			{TopicID: "arrays", SubtopicIDs: []int{1, 2}},
		},
	}
}

func sampleTopics() []domain.Topic {
	return []domain.Topic{
		{
			ID:    "arrays",
			Title: "Arrays",
			Subtopics: []domain.Subtopic{
				{ID: 1, Title: "Two Sum", Difficulty: domain.Easy, LeetcodeLink: "https://leetcode.com/problems/two-sum/"},
				{ID: 2, Title: "3Sum", Difficulty: domain.Medium},
				{ID: 3, Title: "Trapping Rain Water", Difficulty: domain.Hard},
			},
		},
	}
}
