package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/apiproject/userapi/internal/model"
)

// runStoreContract exercises the behaviour every backend must share.
// newStore must return an empty store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()

	t.Run("create then get returns the same user", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		created, err := s.Create(ctx, "Alice", "alice@example.com")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if created.ID == 0 {
			t.Fatal("expected store-assigned id")
		}
		if created.CreatedAt.IsZero() {
			t.Fatal("expected store-assigned created_at")
		}

		got, err := s.GetByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		assertUserEqual(t, created, got)
	})

	t.Run("duplicate email is rejected without changing the count", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		if _, err := s.Create(ctx, "Alice", "shared@example.com"); err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := s.Create(ctx, "Bob", "shared@example.com"); !errors.Is(err, ErrEmailExists) {
			t.Fatalf("expected ErrEmailExists, got %v", err)
		}

		users, err := s.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(users) != 1 {
			t.Fatalf("expected 1 user, got %d", len(users))
		}
	})

	t.Run("delete succeeds exactly once", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		user, err := s.Create(ctx, "Carol", "carol@example.com")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := s.Delete(ctx, user.ID); err != nil {
			t.Fatalf("first delete: %v", err)
		}
		if err := s.Delete(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound on second delete, got %v", err)
		}
		if _, err := s.GetByID(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound after delete, got %v", err)
		}
	})

	t.Run("list count tracks creates minus deletes", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		users, err := s.List(ctx)
		if err != nil {
			t.Fatalf("list empty: %v", err)
		}
		if users == nil || len(users) != 0 {
			t.Fatalf("expected empty non-nil list, got %#v", users)
		}

		var ids []int64
		for i := 0; i < 5; i++ {
			u, err := s.Create(ctx, fmt.Sprintf("user-%d", i), fmt.Sprintf("user-%d@example.com", i))
			if err != nil {
				t.Fatalf("create %d: %v", i, err)
			}
			ids = append(ids, u.ID)
		}
		for _, id := range ids[:2] {
			if err := s.Delete(ctx, id); err != nil {
				t.Fatalf("delete %d: %v", id, err)
			}
		}

		users, err = s.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(users) != 3 {
			t.Fatalf("expected 3 users, got %d", len(users))
		}
		for i := 1; i < len(users); i++ {
			if users[i-1].ID >= users[i].ID {
				t.Fatalf("list not in id order: %d before %d", users[i-1].ID, users[i].ID)
			}
		}
	})

	t.Run("ids are not reused after deletion", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		first, err := s.Create(ctx, "Dan", "dan@example.com")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := s.Delete(ctx, first.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		second, err := s.Create(ctx, "Dan", "dan@example.com")
		if err != nil {
			t.Fatalf("recreate: %v", err)
		}
		if second.ID <= first.ID {
			t.Fatalf("expected new id greater than %d, got %d", first.ID, second.ID)
		}
	})

	t.Run("concurrent creates with one email admit a single winner", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		const workers = 16
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			dupes     int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.Create(ctx, fmt.Sprintf("racer-%d", i), "race@example.com")
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, ErrEmailExists):
					dupes++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		wg.Wait()

		if successes != 1 || dupes != workers-1 {
			t.Fatalf("successes=%d dupes=%d, want 1 and %d", successes, dupes, workers-1)
		}
	})

	t.Run("alice and bob scenario", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		alice, err := s.Create(ctx, "Alice", "a@x.com")
		if err != nil {
			t.Fatalf("create alice: %v", err)
		}
		if alice.ID != 1 {
			t.Fatalf("expected alice id 1, got %d", alice.ID)
		}
		if _, err := s.Create(ctx, "Bob", "a@x.com"); !errors.Is(err, ErrEmailExists) {
			t.Fatalf("expected ErrEmailExists for bob, got %v", err)
		}

		users, err := s.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(users) != 1 || users[0].Name != "Alice" {
			t.Fatalf("expected [Alice], got %+v", users)
		}

		got, err := s.GetByID(ctx, 1)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		assertUserEqual(t, alice, got)

		if err := s.Delete(ctx, 1); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.GetByID(ctx, 1); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("long name and email are stored unchanged", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		name := strings.Repeat("n", 1000)
		email := strings.Repeat("e", 240) + "@example.com"

		created, err := s.Create(ctx, name, email)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		got, err := s.GetByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		assertUserEqual(t, created, got)
		if got.Name != name || got.Email != email {
			t.Fatal("long values were altered")
		}
	})

	t.Run("emails differing only in case are distinct", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		if _, err := s.Create(ctx, "Alice", "A@x.com"); err != nil {
			t.Fatalf("create upper: %v", err)
		}
		if _, err := s.Create(ctx, "Alice", "a@x.com"); err != nil {
			t.Fatalf("create lower: %v", err)
		}
	})

	t.Run("mutation with cancelled context is not started", func(t *testing.T) {
		s := newStore(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := s.Create(ctx, "Eve", "eve@example.com"); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}

		users, err := s.List(context.Background())
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(users) != 0 {
			t.Fatalf("expected no users, got %d", len(users))
		}
	})
}

func assertUserEqual(t *testing.T, want, got *model.User) {
	t.Helper()
	if want.ID != got.ID || want.Name != got.Name || want.Email != got.Email {
		t.Fatalf("user mismatch: want %+v, got %+v", want, got)
	}
	if !want.CreatedAt.Equal(got.CreatedAt) {
		t.Fatalf("created_at mismatch: want %v, got %v", want.CreatedAt, got.CreatedAt)
	}
}
