package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/heroverse/apiserver/internal/store"
	"github.com/heroverse/apiserver/internal/store/memstore"
	"github.com/heroverse/apiserver/types"
)

type recordingSink struct {
	mu     sync.Mutex
	events []types.UserEvent
	err    error
}

func (s *recordingSink) Publish(ctx context.Context, event types.UserEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) eventTypes() []types.UserEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.UserEventType, 0, len(s.events))
	for _, event := range s.events {
		out = append(out, event.Type)
	}
	return out
}

func seedUser(t *testing.T, repo UserRepository, username, name string) types.User {
	t.Helper()

	user, err := repo.Create(context.Background(), types.User{
		Username: username,
		Name:     name,
		Nickname: username,
		Power:    []string{},
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("create %s: %v", username, err)
	}
	return user
}

func TestSubscribeAddsActorOnce(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	sink := &recordingSink{}
	svc := NewSubscriptionService(repo, sink, nil)

	wade := seedUser(t, repo, "wade", "Wade Wilson")
	logan := seedUser(t, repo, "logan", "Logan Howlett")

	ids, err := svc.Subscribe(ctx, logan.ID, wade.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if len(ids) != 1 || ids[0] != logan.ID {
		t.Fatalf("unexpected subscribers: %v", ids)
	}

	if _, err := svc.Subscribe(ctx, logan.ID, wade.ID); !errors.Is(err, ErrAlreadySubscribed) {
		t.Fatalf("expected ErrAlreadySubscribed, got %v", err)
	}

	account, err := svc.GetSelf(ctx, wade.ID)
	if err != nil {
		t.Fatalf("get self: %v", err)
	}
	if len(account.Subscribers) != 1 {
		t.Fatalf("duplicate subscribe changed the set: %v", account.Subscribers)
	}
	if account.SubscriptionsAmount != len(account.Subscribers) {
		t.Fatalf("count %d does not match set size %d", account.SubscriptionsAmount, len(account.Subscribers))
	}

	got := sink.eventTypes()
	if len(got) != 1 || got[0] != types.EventUserSubscribed {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestSubscribeRejectsSelf(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	svc := NewSubscriptionService(repo, nil, nil)
	wade := seedUser(t, repo, "wade", "Wade Wilson")

	if _, err := svc.Subscribe(ctx, wade.ID, wade.ID); !errors.Is(err, ErrSelfSubscription) {
		t.Fatalf("expected ErrSelfSubscription, got %v", err)
	}
	if _, err := svc.Unsubscribe(ctx, wade.ID, wade.ID); !errors.Is(err, ErrSelfSubscription) {
		t.Fatalf("expected ErrSelfSubscription on unsubscribe, got %v", err)
	}

	account, err := svc.GetSelf(ctx, wade.ID)
	if err != nil {
		t.Fatalf("get self: %v", err)
	}
	if account.HasSubscriber(wade.ID) {
		t.Fatalf("user subscribed to themselves")
	}
}

func TestSubscribeUnknownTarget(t *testing.T) {
	repo := memstore.NewUserRepository()
	svc := NewSubscriptionService(repo, nil, nil)
	wade := seedUser(t, repo, "wade", "Wade Wilson")

	if _, err := svc.Subscribe(context.Background(), wade.ID, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUnsubscribeUnknownTarget(t *testing.T) {
	repo := memstore.NewUserRepository()
	svc := NewSubscriptionService(repo, nil, nil)
	wade := seedUser(t, repo, "wade", "Wade Wilson")

	if _, err := svc.Unsubscribe(context.Background(), wade.ID, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubscribeThenUnsubscribeRestoresSet(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	svc := NewSubscriptionService(repo, nil, nil)

	wade := seedUser(t, repo, "wade", "Wade Wilson")
	logan := seedUser(t, repo, "logan", "Logan Howlett")
	tony := seedUser(t, repo, "tony", "Tony Stark")

	if _, err := svc.Subscribe(ctx, tony.ID, wade.ID); err != nil {
		t.Fatalf("subscribe tony: %v", err)
	}
	before, err := repo.GetByID(ctx, wade.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if _, err := svc.Subscribe(ctx, logan.ID, wade.ID); err != nil {
		t.Fatalf("subscribe logan: %v", err)
	}
	ids, err := svc.Unsubscribe(ctx, logan.ID, wade.ID)
	if err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}

	if fmt.Sprint(ids) != fmt.Sprint(before.Subscribers) {
		t.Fatalf("expected %v after round trip, got %v", before.Subscribers, ids)
	}
}

func TestUnsubscribeNonMemberIsNoop(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	svc := NewSubscriptionService(repo, nil, nil)

	wade := seedUser(t, repo, "wade", "Wade Wilson")
	logan := seedUser(t, repo, "logan", "Logan Howlett")

	ids, err := svc.Unsubscribe(ctx, logan.ID, wade.ID)
	if err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty set, got %v", ids)
	}
}

func TestConcurrentSubscribesAreNotLost(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	svc := NewSubscriptionService(repo, nil, nil)

	target := seedUser(t, repo, "target", "Target User")
	actors := make([]types.User, 20)
	for i := range actors {
		actors[i] = seedUser(t, repo, fmt.Sprintf("actor%d", i), "Actor")
	}

	var wg sync.WaitGroup
	for _, actor := range actors {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := svc.Subscribe(ctx, id, target.ID); err != nil {
				t.Errorf("subscribe %s: %v", id, err)
			}
		}(actor.ID)
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, target.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Subscribers) != len(actors) {
		t.Fatalf("expected %d subscribers, got %d", len(actors), len(got.Subscribers))
	}
}

func TestGetSubscribersPaginates(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	svc := NewSubscriptionService(repo, nil, nil)

	target := seedUser(t, repo, "target", "Target User")
	var ids []string
	for i := 0; i < 25; i++ {
		sub := seedUser(t, repo, fmt.Sprintf("sub%02d", i), fmt.Sprintf("First%02d Last%02d", i, i))
		if _, err := svc.Subscribe(ctx, sub.ID, target.ID); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
		ids = append(ids, sub.ID)
	}

	page, err := svc.GetSubscribers(ctx, target.ID, 1, 10)
	if err != nil {
		t.Fatalf("get subscribers: %v", err)
	}
	if len(page.Items) != 10 || page.Total != 25 || page.Pages != 3 {
		t.Fatalf("unexpected first page: items=%d total=%d pages=%d", len(page.Items), page.Total, page.Pages)
	}
	if page.Items[0].ID != ids[0] || page.Items[0].FirstName != "First00" || page.Items[0].LastName != "Last00" {
		t.Fatalf("unexpected first item: %+v", page.Items[0])
	}

	last, err := svc.GetSubscribers(ctx, target.ID, 3, 10)
	if err != nil {
		t.Fatalf("get page 3: %v", err)
	}
	if len(last.Items) != 5 || last.Items[4].ID != ids[24] {
		t.Fatalf("unexpected last page: %d items", len(last.Items))
	}

	beyond, err := svc.GetSubscribers(ctx, target.ID, 4, 10)
	if err != nil {
		t.Fatalf("get page 4: %v", err)
	}
	if len(beyond.Items) != 0 || beyond.Total != 25 {
		t.Fatalf("expected empty page past the end, got %d items", len(beyond.Items))
	}
}

func TestGetSubscribersDefaults(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	svc := NewSubscriptionService(repo, nil, nil)
	target := seedUser(t, repo, "target", "Target User")

	page, err := svc.GetSubscribers(ctx, target.ID, 0, -5)
	if err != nil {
		t.Fatalf("get subscribers: %v", err)
	}
	if page.Page != DefaultPage || page.Size != DefaultPageSize {
		t.Fatalf("expected defaults, got page=%d size=%d", page.Page, page.Size)
	}
	if page.Items == nil || len(page.Items) != 0 || page.Pages != 0 {
		t.Fatalf("expected empty non-nil page, got %+v", page)
	}
}

func TestGetSubscribersUnknownUser(t *testing.T) {
	svc := NewSubscriptionService(memstore.NewUserRepository(), nil, nil)
	if _, err := svc.GetSubscribers(context.Background(), "missing", 1, 10); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeletedSubscriberDisappearsFromListing(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	svc := NewSubscriptionService(repo, nil, nil)
	accounts := NewAccountService(repo, nil, nil, nil, "http://localhost:3000/assets", 64, 0)

	wade := seedUser(t, repo, "wade", "Wade Wilson")
	logan := seedUser(t, repo, "logan", "Logan Howlett")
	if _, err := svc.Subscribe(ctx, logan.ID, wade.ID); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := accounts.Delete(ctx, logan.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	page, err := svc.GetSubscribers(ctx, wade.ID, 1, 10)
	if err != nil {
		t.Fatalf("get subscribers: %v", err)
	}
	if page.Total != 0 || len(page.Items) != 0 {
		t.Fatalf("deleted subscriber still listed: %+v", page)
	}
}

func TestListUsersPaginates(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	svc := NewSubscriptionService(repo, nil, nil)
	for i := 0; i < 12; i++ {
		seedUser(t, repo, fmt.Sprintf("user%02d", i), "Some One")
	}

	profiles, total, err := svc.ListUsers(ctx, 2, 10)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if total != 12 || len(profiles) != 2 || profiles[0].Username != "user10" {
		t.Fatalf("unexpected page: total=%d len=%d", total, len(profiles))
	}
}

func TestPageFarPastEndIsEmpty(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	svc := NewSubscriptionService(repo, nil, nil)

	target := seedUser(t, repo, "target", "Target User")
	for i := 0; i < 25; i++ {
		fan := seedUser(t, repo, fmt.Sprintf("fan%02d", i), "Some Fan")
		if _, err := svc.Subscribe(ctx, fan.ID, target.ID); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}

	page, err := svc.GetSubscribers(ctx, target.ID, math.MaxInt, 10)
	if err != nil {
		t.Fatalf("get subscribers: %v", err)
	}
	if len(page.Items) != 0 || page.Total != 25 || page.Pages != 3 {
		t.Fatalf("unexpected page: items=%d total=%d pages=%d", len(page.Items), page.Total, page.Pages)
	}

	profiles, total, err := svc.ListUsers(ctx, math.MaxInt, 10)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(profiles) != 0 || total != 26 {
		t.Fatalf("unexpected list: len=%d total=%d", len(profiles), total)
	}
}

func TestNormalizePage(t *testing.T) {
	cases := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, 10},
		{-1, -1, 1, 10},
		{3, 25, 3, 25},
		{1, 1000, 1, MaxPageSize},
	}
	for _, tc := range cases {
		page, size := NormalizePage(tc.page, tc.size)
		if page != tc.wantPage || size != tc.wantSize {
			t.Fatalf("NormalizePage(%d, %d) = %d, %d", tc.page, tc.size, page, size)
		}
	}
}

func TestEventSinkFailureDoesNotFailSubscribe(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	sink := &recordingSink{err: errors.New("broker down")}
	svc := NewSubscriptionService(repo, EventSinks{sink, nil}, nil)

	wade := seedUser(t, repo, "wade", "Wade Wilson")
	logan := seedUser(t, repo, "logan", "Logan Howlett")

	if _, err := svc.Subscribe(ctx, logan.ID, wade.ID); err != nil {
		t.Fatalf("subscribe should succeed when publishing fails: %v", err)
	}
	if len(sink.eventTypes()) != 1 {
		t.Fatalf("expected sink to be called once")
	}
}
