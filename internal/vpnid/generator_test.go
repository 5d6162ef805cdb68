package vpnid

import (
	"errors"
	"sync"
	"testing"
)

func TestNextProducesWellFormedIDs(t *testing.T) {
	g := NewWithSeed(1)
	none := func(string) (bool, error) { return false, nil }
	for i := 0; i < 100; i++ {
		id, err := g.Next(none)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !Valid(id) {
			t.Fatalf("malformed id %q", id)
		}
	}
}

func TestNextSkipsTakenIDs(t *testing.T) {
	g := NewWithSeed(2)
	taken := map[string]bool{}
	check := func(id string) (bool, error) { return taken[id], nil }

	seen := map[string]bool{}
	for i := 0; i < SpaceSize; i++ {
		id, err := g.Next(check)
		if err != nil {
			t.Fatalf("allocation %d: %v", i, err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q at allocation %d", id, i)
		}
		seen[id] = true
		taken[id] = true
	}
	if len(seen) != SpaceSize {
		t.Fatalf("allocated %d ids, want %d", len(seen), SpaceSize)
	}
}

func TestNextExhaustion(t *testing.T) {
	g := NewWithSeed(3)
	all := func(string) (bool, error) { return true, nil }
	if _, err := g.Next(all); !errors.Is(err, ErrSpaceExhausted) {
		t.Fatalf("err = %v, want ErrSpaceExhausted", err)
	}
}

func TestNextPropagatesCheckError(t *testing.T) {
	g := NewWithSeed(4)
	boom := errors.New("db down")
	failing := func(string) (bool, error) { return false, boom }
	if _, err := g.Next(failing); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}

func TestConcurrentAllocationIsUnique(t *testing.T) {
	g := NewWithSeed(5)

	var mu sync.Mutex
	taken := map[string]bool{}

	// Serialized check-and-reserve, mirroring the advisory lock the store
	// holds around allocation.
	allocate := func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		id, err := g.Next(func(id string) (bool, error) { return taken[id], nil })
		if err != nil {
			return "", err
		}
		taken[id] = true
		return id, nil
	}

	const workers = 50
	ids := make(chan string, workers)
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := allocate()
			if err != nil {
				errs <- err
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		t.Fatalf("allocate: %v", err)
	}
	seen := map[string]bool{}
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %q issued concurrently", id)
		}
		seen[id] = true
	}
	if len(seen) != workers {
		t.Fatalf("got %d ids, want %d", len(seen), workers)
	}
}
