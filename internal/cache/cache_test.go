package cache

import (
	"context"
	"errors"
	"testing"
)

func TestNoopAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var s Store = Noop{}
	if err := s.Set(ctx, "catalog:tree", map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "catalog:tree"); !errors.Is(err, ErrMiss) {
		t.Fatalf("want ErrMiss, got %v", err)
	}
	var dst map[string]int
	if Load(ctx, s, "catalog:tree", &dst) {
		t.Fatal("Load should report a miss")
	}
}

type mapStore map[string][]byte

func (m mapStore) Get(_ context.Context, k string) ([]byte, error) {
	if b, ok := m[k]; ok {
		return b, nil
	}
	return nil, ErrMiss
}
func (m mapStore) Set(context.Context, string, any) error       { return nil }
func (m mapStore) DeleteByPrefix(context.Context, string) error { return nil }

func TestLoadDecodesJSON(t *testing.T) {
	s := mapStore{"k": []byte(`{"a":2}`), "bad": []byte(`{`)}
	var dst map[string]int
	if !Load(context.Background(), s, "k", &dst) || dst["a"] != 2 {
		t.Fatalf("decode failed: %v", dst)
	}
	if Load(context.Background(), s, "bad", &dst) {
		t.Fatal("corrupt entry must count as a miss")
	}
}
