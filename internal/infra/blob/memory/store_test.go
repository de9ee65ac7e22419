package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"flowcore/internal/blob/core"
)

func TestStorePutGetRoundTrip(t *testing.T) {
	store := New()
	ctx := context.Background()

	info, err := store.Put(ctx, "a.txt", strings.NewReader("hello"), core.PutOptions{ContentType: "text/plain"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "a.txt" || info.Size != 5 || info.ContentType != "text/plain" {
		t.Fatalf("unexpected info %+v", info)
	}

	got, rc, err := store.Get(ctx, "a.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil || string(content) != "hello" {
		t.Fatalf("unexpected content %q err=%v", content, err)
	}
	if got.Key != "a.txt" {
		t.Fatalf("unexpected info %+v", got)
	}
}

func TestStorePutRefusesOverwrite(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Put(ctx, "a.txt", strings.NewReader("one"), core.PutOptions{}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if _, err := store.Put(ctx, "a.txt", strings.NewReader("two"), core.PutOptions{}); err == nil {
		t.Fatal("second put must fail")
	}
}

func TestStoreDelete(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Put(ctx, "a.txt", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	existed, err := store.Delete(ctx, "a.txt")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	existed, err = store.Delete(ctx, "a.txt")
	if err != nil || existed {
		t.Fatalf("repeat delete: existed=%v err=%v", existed, err)
	}
}

func TestStoreListByPrefix(t *testing.T) {
	store := New()
	ctx := context.Background()
	for _, key := range []string{"messages/m1/a.txt", "messages/m2/b.txt"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "messages/m1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 1 || infos[0].Key != "messages/m1/a.txt" {
		t.Fatalf("unexpected listing %v", infos)
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Put(ctx, "a.txt", strings.NewReader("immutable"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, rc, err := store.Get(ctx, "a.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	first, _ := io.ReadAll(rc)
	rc.Close()
	for i := range first {
		first[i] = 'x'
	}
	_, rc, err = store.Get(ctx, "a.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, _ := io.ReadAll(rc)
	rc.Close()
	if string(second) != "immutable" {
		t.Fatalf("stored content mutated: %q", second)
	}
}

func TestStorePresignUnsupported(t *testing.T) {
	store := New()
	if _, err := store.PresignURL(context.Background(), "a.txt", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if got := store.Driver(); got != core.DriverMemory {
		t.Fatalf("unexpected driver %q", got)
	}
}
