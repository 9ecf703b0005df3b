package app_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"dsa-tracker/internal/app"
	"dsa-tracker/internal/domain"
	"dsa-tracker/internal/infra/memory"
)

func TestToggleSequence(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKVStore()
	session := app.NewSession(store)
	api := newFakeAPI(store)
	api.session = session
	api.user = domain.User{
		Name:            "Ada",
		CompletedTopics: []domain.CompletedTopic{{TopicID: "arrays", SubtopicIDs: []int{3}}},
	}

	var waits []time.Duration
	var callsBeforeWait []string
	after := func(d time.Duration) <-chan time.Time {
		waits = append(waits, d)
		callsBeforeWait = api.callLog()
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}

	h := app.NewToggleHandlerWithTimer(api, session, app.DefaultReconcileDelay, 1, after)
	if err := h.Toggle(ctx, "arrays", 3, true); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	if want := []domain.Completion{{TopicID: "arrays", SubtopicID: 3, IsComplete: true}}; !reflect.DeepEqual(api.marks, want) {
		t.Fatalf("expected exact triple, got %+v", api.marks)
	}
	if !reflect.DeepEqual(waits, []time.Duration{500 * time.Millisecond}) {
		t.Fatalf("expected a single 500ms wait, got %v", waits)
	}
	if !reflect.DeepEqual(callsBeforeWait, []string{"mark"}) {
		t.Fatalf("expected wait to start after the mutation resolved, calls before wait: %v", callsBeforeWait)
	}
	if calls := api.callLog(); !reflect.DeepEqual(calls, []string{"mark", "me"}) {
		t.Fatalf("unexpected call order %v", calls)
	}
	if !reflect.DeepEqual(api.loadingSeen, []bool{true, true}) {
		t.Fatalf("expected loading held during mark and refetch, got %v", api.loadingSeen)
	}
	if session.IsLoading() {
		t.Fatalf("expected loading cleared at the end")
	}
	if u := session.User(); u == nil || !u.IsCompleted("arrays", 3) {
		t.Fatalf("expected reconciled user committed, got %+v", u)
	}
	if _, ok, _ := store.Get(ctx, app.UserKey); !ok {
		t.Fatalf("expected reconciled user persisted")
	}
}

func TestToggleWaitsRealDelay(t *testing.T) {
	store := memory.NewKVStore()
	session := app.NewSession(store)
	api := newFakeAPI(store)
	api.user = sampleUser()

	h := app.NewToggleHandler(api, session, 50*time.Millisecond, 1)
	start := time.Now()
	if err := h.Toggle(context.Background(), "arrays", 1, true); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("expected at least the reconcile delay, took %v", elapsed)
	}
}

func TestToggleMarkFailureSkipsReconcile(t *testing.T) {
	store := memory.NewKVStore()
	session := app.NewSession(store)
	before := sampleUser()
	_ = session.UpdateUser(context.Background(), &before)

	api := newFakeAPI(store)
	api.markErr = errors.New("network down")

	h := app.NewToggleHandlerWithTimer(api, session, time.Second, 1, immediate)
	if err := h.Toggle(context.Background(), "arrays", 3, true); err == nil {
		t.Fatalf("expected error from failed mark")
	}
	if calls := api.callLog(); !reflect.DeepEqual(calls, []string{"mark"}) {
		t.Fatalf("expected no refetch after failed mark, got %v", calls)
	}
	if u := session.User(); !reflect.DeepEqual(*u, before) {
		t.Fatalf("expected local user untouched, got %+v", u)
	}
	if session.IsLoading() {
		t.Fatalf("expected loading cleared after failure")
	}
}

func TestTogglePollsUntilServerReflectsRequest(t *testing.T) {
	store := memory.NewKVStore()
	session := app.NewSession(store)
	api := &laggingAPI{fakeAPI: newFakeAPI(store), staleReads: 2}

	h := app.NewToggleHandlerWithTimer(api, session, time.Millisecond, 5, immediate)
	if err := h.Toggle(context.Background(), "arrays", 3, true); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if api.reads != 3 {
		t.Fatalf("expected 3 reads (2 stale + 1 fresh), got %d", api.reads)
	}
	if u := session.User(); !u.IsCompleted("arrays", 3) {
		t.Fatalf("expected final user to reflect completion")
	}
}

func TestToggleStopsAfterAttemptBudget(t *testing.T) {
	store := memory.NewKVStore()
	session := app.NewSession(store)
	api := &laggingAPI{fakeAPI: newFakeAPI(store), staleReads: 10}

	h := app.NewToggleHandlerWithTimer(api, session, time.Millisecond, 2, immediate)
	if err := h.Toggle(context.Background(), "arrays", 3, true); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if api.reads != 2 {
		t.Fatalf("expected reads capped at 2, got %d", api.reads)
	}
}

// Two toggles race; the second's refetch resolves first, so the first's later
// refetch overwrites it. This pins current last-write-wins behaviour.
func TestToggleRaceLastWriteWins(t *testing.T) {
	store := memory.NewKVStore()
	session := app.NewSession(store)
	api := &blockingAPI{calls: make(chan chan domain.User)}

	h := app.NewToggleHandlerWithTimer(api, session, app.DefaultReconcileDelay, 1, immediate)

	var wg sync.WaitGroup
	toggle := func(subtopic int) <-chan struct{} {
		done := make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(done)
			if err := h.Toggle(context.Background(), "arrays", subtopic, true); err != nil {
				t.Errorf("toggle %d: %v", subtopic, err)
			}
		}()
		return done
	}

	firstDone := toggle(1)
	firstReply := <-api.calls
	secondDone := toggle(2)
	secondReply := <-api.calls

	fromFirst := domain.User{Name: "first", CompletedTopics: []domain.CompletedTopic{{TopicID: "arrays", SubtopicIDs: []int{1}}}}
	fromSecond := domain.User{Name: "second", CompletedTopics: []domain.CompletedTopic{{TopicID: "arrays", SubtopicIDs: []int{1, 2}}}}

	secondReply <- fromSecond
	<-secondDone
	if u := session.User(); u.Name != "second" {
		t.Fatalf("expected second refetch committed first, got %+v", u)
	}

	firstReply <- fromFirst
	<-firstDone
	wg.Wait()

	if u := session.User(); u.Name != "first" || u.IsCompleted("arrays", 2) {
		t.Fatalf("expected later-resolving first refetch to win, got %+v", u)
	}
}

func TestReconcileAfterLogoutStillCommits(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKVStore()
	session := app.NewSession(store)
	api := &blockingAPI{calls: make(chan chan domain.User)}
	h := app.NewToggleHandlerWithTimer(api, session, app.DefaultReconcileDelay, 1, immediate)

	done := make(chan error, 1)
	go func() { done <- h.Toggle(ctx, "arrays", 1, true) }()

	reply := <-api.calls
	if err := session.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	reply <- sampleUser()
	if err := <-done; err != nil {
		t.Fatalf("toggle: %v", err)
	}

	if session.User() == nil {
		t.Fatalf("expected pending reconciliation to write into the cleared session")
	}
}

func TestToggleHonoursContextDuringDelay(t *testing.T) {
	store := memory.NewKVStore()
	session := app.NewSession(store)
	api := newFakeAPI(store)

	never := func(time.Duration) <-chan time.Time { return make(chan time.Time) }
	h := app.NewToggleHandlerWithTimer(api, session, time.Hour, 1, never)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.Toggle(ctx, "arrays", 1, true); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if calls := api.callLog(); !reflect.DeepEqual(calls, []string{"mark"}) {
		t.Fatalf("expected no refetch after cancellation, got %v", calls)
	}
}

func immediate(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

// laggingAPI serves staleReads users without the completion before the real one.
type laggingAPI struct {
	*fakeAPI
	staleReads int
	reads      int
}

func (l *laggingAPI) GetUserData(ctx context.Context) (domain.User, error) {
	l.reads++
	if l.reads <= l.staleReads {
		return domain.User{Name: "stale", CompletedTopics: []domain.CompletedTopic{}}, nil
	}
	return domain.User{Name: "fresh", CompletedTopics: []domain.CompletedTopic{{TopicID: "arrays", SubtopicIDs: []int{3}}}}, nil
}

// blockingAPI hands each refetch's reply channel to the test.
type blockingAPI struct {
	calls chan chan domain.User
}

func (b *blockingAPI) MarkTopicAsComplete(context.Context, domain.Completion) error { return nil }

func (b *blockingAPI) GetUserData(context.Context) (domain.User, error) {
	reply := make(chan domain.User)
	b.calls <- reply
	return <-reply, nil
}
