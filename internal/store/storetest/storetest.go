// Package storetest holds a conformance suite run against every store.Store
// backend.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/Yoshino-s/hitokoto-api/internal/store"
)

// Run exercises s against the store.Store contract. The store must be empty.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) {
		s := open(t)
		if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("SetGetOverwrite", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if err := s.Set(ctx, "k", []byte("one")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := s.Set(ctx, "k", []byte("two")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, err := s.Get(ctx, "k")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != "two" {
			t.Errorf("Get = %q, want %q", got, "two")
		}
	})

	t.Run("JSONHelpers", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		in := map[string]int{"min": 3, "max": 7}
		if err := store.SetJSON(ctx, s, "range", in); err != nil {
			t.Fatalf("SetJSON failed: %v", err)
		}
		var out map[string]int
		if err := store.GetJSON(ctx, s, "range", &out); err != nil {
			t.Fatalf("GetJSON failed: %v", err)
		}
		if out["min"] != 3 || out["max"] != 7 {
			t.Errorf("GetJSON = %v, want min=3 max=7", out)
		}
	})

	t.Run("SortedSetCountAndRange", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		for _, m := range []store.Member{{Member: "u1", Score: 3}, {Member: "u2", Score: 5}, {Member: "u3", Score: 5}, {Member: "u4", Score: 7}} {
			if err := s.ZAdd(ctx, "idx", m.Score, m.Member); err != nil {
				t.Fatalf("ZAdd(%s) failed: %v", m.Member, err)
			}
		}

		n, err := s.ZCount(ctx, "idx", 0, store.ScoreInf)
		if err != nil {
			t.Fatalf("ZCount failed: %v", err)
		}
		if n != 4 {
			t.Errorf("ZCount[0,+inf] = %d, want 4", n)
		}

		n, err = s.ZCount(ctx, "idx", 4, 6)
		if err != nil {
			t.Fatalf("ZCount failed: %v", err)
		}
		if n != 2 {
			t.Errorf("ZCount[4,6] = %d, want 2", n)
		}

		members, err := s.ZRangeByScore(ctx, "idx", 5, store.ScoreInf)
		if err != nil {
			t.Fatalf("ZRangeByScore failed: %v", err)
		}
		want := []string{"u2", "u3", "u4"}
		if len(members) != len(want) {
			t.Fatalf("ZRangeByScore returned %d members, want %d", len(members), len(want))
		}
		for i, m := range members {
			if m.Member != want[i] {
				t.Errorf("member[%d] = %s, want %s", i, m.Member, want[i])
			}
		}
	})

	t.Run("ZAddUpdatesScore", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if err := s.ZAdd(ctx, "idx", 3, "u1"); err != nil {
			t.Fatalf("ZAdd failed: %v", err)
		}
		if err := s.ZAdd(ctx, "idx", 9, "u1"); err != nil {
			t.Fatalf("ZAdd failed: %v", err)
		}
		members, err := s.ZRangeByScore(ctx, "idx", store.ScoreNegInf, store.ScoreInf)
		if err != nil {
			t.Fatalf("ZRangeByScore failed: %v", err)
		}
		if len(members) != 1 || members[0].Score != 9 {
			t.Errorf("members = %v, want single u1 with score 9", members)
		}
	})

	t.Run("DelRemovesValuesAndSets", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if err := s.Set(ctx, "v", []byte("x")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := s.ZAdd(ctx, "z", 1, "m"); err != nil {
			t.Fatalf("ZAdd failed: %v", err)
		}
		if err := s.Del(ctx, "v", "z", "never-existed"); err != nil {
			t.Fatalf("Del failed: %v", err)
		}
		if _, err := s.Get(ctx, "v"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Get after Del error = %v, want ErrNotFound", err)
		}
		n, err := s.ZCount(ctx, "z", store.ScoreNegInf, store.ScoreInf)
		if err != nil {
			t.Fatalf("ZCount failed: %v", err)
		}
		if n != 0 {
			t.Errorf("ZCount after Del = %d, want 0", n)
		}
	})

	t.Run("UpdateCommits", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		err := s.Update(ctx, func(tx store.Tx) error {
			if err := tx.Set(ctx, "a", []byte("1")); err != nil {
				return err
			}
			if err := tx.ZAdd(ctx, "z", 2, "m"); err != nil {
				return err
			}
			// Reads inside the batch see its own writes.
			n, err := tx.ZCount(ctx, "z", 0, store.ScoreInf)
			if err != nil {
				return err
			}
			if n != 1 {
				t.Errorf("ZCount inside tx = %d, want 1", n)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if _, err := s.Get(ctx, "a"); err != nil {
			t.Errorf("Get after commit failed: %v", err)
		}
	})

	t.Run("UpdateRollsBack", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if err := s.Set(ctx, "a", []byte("before")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		boom := errors.New("boom")
		err := s.Update(ctx, func(tx store.Tx) error {
			if err := tx.Set(ctx, "a", []byte("after")); err != nil {
				return err
			}
			if err := tx.ZAdd(ctx, "z", 1, "m"); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Update error = %v, want boom", err)
		}
		got, err := s.Get(ctx, "a")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != "before" {
			t.Errorf("Get = %q after rollback, want %q", got, "before")
		}
		n, _ := s.ZCount(ctx, "z", store.ScoreNegInf, store.ScoreInf)
		if n != 0 {
			t.Errorf("ZCount = %d after rollback, want 0", n)
		}
	})

	t.Run("Namespace", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		a := store.Namespace(s, "a:")
		b := store.Namespace(s, "b:")
		if err := a.Set(ctx, "k", []byte("A")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := b.Update(ctx, func(tx store.Tx) error {
			return tx.Set(ctx, "k", []byte("B"))
		}); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		for prefix, want := range map[string]string{"a:k": "A", "b:k": "B"} {
			got, err := s.Get(ctx, prefix)
			if err != nil {
				t.Fatalf("Get(%s) failed: %v", prefix, err)
			}
			if string(got) != want {
				t.Errorf("Get(%s) = %q, want %q", prefix, got, want)
			}
		}
	})
}
