package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/heroverse/apiserver/internal/store"
	"github.com/heroverse/apiserver/internal/store/memstore"
	"github.com/heroverse/apiserver/types"
)

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string][]byte)}
}

func (m *memObjects) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memObjects) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func strPtr(s string) *string { return &s }

func TestUpdateProfileAppliesPatch(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	sink := &recordingSink{}
	svc := NewAccountService(repo, nil, sink, nil, "http://localhost:3000/assets", 64, 0)
	wade := seedUser(t, repo, "wade", "Wade Wilson")

	power := []string{"Healing Factor"}
	account, err := svc.UpdateProfile(ctx, wade.ID, types.ProfilePatch{
		Nickname: strPtr("Deadpool"),
		Power:    &power,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if account.Nickname != "Deadpool" || len(account.Power) != 1 || account.Name != "Wade Wilson" {
		t.Fatalf("unexpected account: %+v", account)
	}
	if got := sink.eventTypes(); len(got) != 1 || got[0] != types.EventUserUpdated {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestUpdateProfileKeepsSubscribers(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	subs := NewSubscriptionService(repo, nil, nil)
	svc := NewAccountService(repo, nil, nil, nil, "http://localhost:3000/assets", 64, 0)

	wade := seedUser(t, repo, "wade", "Wade Wilson")
	logan := seedUser(t, repo, "logan", "Logan Howlett")
	if _, err := subs.Subscribe(ctx, logan.ID, wade.ID); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	account, err := svc.UpdateProfile(ctx, wade.ID, types.ProfilePatch{Description: strPtr("Merc with a mouth")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if account.SubscriptionsAmount != 1 || !account.HasSubscriber(logan.ID) {
		t.Fatalf("profile update dropped subscribers: %+v", account.Subscribers)
	}
}

func TestUpdateProfileRejectsEmptyPatch(t *testing.T) {
	repo := memstore.NewUserRepository()
	svc := NewAccountService(repo, nil, nil, nil, "", 64, 0)
	wade := seedUser(t, repo, "wade", "Wade Wilson")

	if _, err := svc.UpdateProfile(context.Background(), wade.ID, types.ProfilePatch{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := svc.UpdateProfile(context.Background(), wade.ID, types.ProfilePatch{Nickname: strPtr(" ")}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank nickname, got %v", err)
	}
}

func TestUploadAvatarStoresResizedImage(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	objects := newMemObjects()
	svc := NewAccountService(repo, objects, nil, nil, "http://localhost:3000/assets/", 64, 0)
	wade := seedUser(t, repo, "wade", "Wade Wilson")

	first, err := svc.UploadAvatar(ctx, wade.ID, testPNG(t, 200, 100))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	prefix := "http://localhost:3000/assets/avatars/" + wade.ID + "/"
	if !strings.HasPrefix(first.Avatar, prefix) || !strings.HasSuffix(first.Avatar, ".png") {
		t.Fatalf("unexpected avatar url %q", first.Avatar)
	}

	key := strings.TrimPrefix(first.Avatar, "http://localhost:3000/assets/")
	stored, ok := objects.objects[key]
	if !ok {
		t.Fatalf("avatar %q not stored", key)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(stored))
	if err != nil {
		t.Fatalf("decode stored avatar: %v", err)
	}
	if cfg.Width != 64 || cfg.Height != 64 {
		t.Fatalf("expected 64x64 avatar, got %dx%d", cfg.Width, cfg.Height)
	}

	second, err := svc.UploadAvatar(ctx, wade.ID, testPNG(t, 50, 50))
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if second.Avatar == first.Avatar {
		t.Fatalf("expected a new avatar key")
	}
	if len(objects.deleted) != 1 || objects.deleted[0] != key {
		t.Fatalf("previous avatar not removed: %v", objects.deleted)
	}
}

func TestUploadAvatarKeepsForeignAvatar(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	objects := newMemObjects()
	svc := NewAccountService(repo, objects, nil, nil, "http://localhost:3000/assets", 64, 0)

	wade, err := repo.Create(ctx, types.User{Username: "wade", Avatar: "https://example.com/deadpool.png"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UploadAvatar(ctx, wade.ID, testPNG(t, 10, 10)); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(objects.deleted) != 0 {
		t.Fatalf("foreign avatar should not be deleted: %v", objects.deleted)
	}
}

func TestUploadAvatarRejectsNonImage(t *testing.T) {
	repo := memstore.NewUserRepository()
	svc := NewAccountService(repo, newMemObjects(), nil, nil, "http://localhost:3000/assets", 64, 0)
	wade := seedUser(t, repo, "wade", "Wade Wilson")

	if _, err := svc.UploadAvatar(context.Background(), wade.ID, []byte("not an image")); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := svc.UploadAvatar(context.Background(), wade.ID, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty body, got %v", err)
	}
}

func TestUploadAvatarRejectsOversizedImage(t *testing.T) {
	repo := memstore.NewUserRepository()
	objects := newMemObjects()
	svc := NewAccountService(repo, objects, nil, nil, "http://localhost:3000/assets", 64, 100*100)
	wade := seedUser(t, repo, "wade", "Wade Wilson")

	if _, err := svc.UploadAvatar(context.Background(), wade.ID, testPNG(t, 200, 100)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(objects.objects) != 0 {
		t.Fatalf("oversized image should not be stored: %v", objects.objects)
	}
}

func TestStaleProfileUpdateKeepsNewAvatar(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	svc := NewAccountService(repo, newMemObjects(), nil, nil, "http://localhost:3000/assets", 64, 0)
	wade := seedUser(t, repo, "wade", "Wade Wilson")

	stale, err := repo.GetByID(ctx, wade.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	uploaded, err := svc.UploadAvatar(ctx, wade.ID, testPNG(t, 20, 20))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	stale.Nickname = "Deadpool"
	if _, err := repo.Update(ctx, stale); err != nil {
		t.Fatalf("update: %v", err)
	}

	account, err := svc.UpdateProfile(ctx, wade.ID, types.ProfilePatch{Description: strPtr("Merc")})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if account.Avatar != uploaded.Avatar || account.Nickname != "Deadpool" {
		t.Fatalf("avatar reverted or nickname lost: %+v", account)
	}
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()
	repo := memstore.NewUserRepository()
	sink := &recordingSink{}
	svc := NewAccountService(repo, nil, sink, nil, "", 64, 0)
	wade := seedUser(t, repo, "wade", "Wade Wilson")

	if err := svc.Delete(ctx, wade.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, wade.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected deleted user to be gone, got %v", err)
	}
	if err := svc.Delete(ctx, wade.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if got := sink.eventTypes(); len(got) != 1 || got[0] != types.EventUserDeleted {
		t.Fatalf("unexpected events: %v", got)
	}
}
