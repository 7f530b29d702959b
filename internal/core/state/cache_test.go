package state

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestProjectKeyCacheLoadsOnce(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	c := NewProjectKeyCache(func(ctx context.Context) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []string{"OPS", "WEB"}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := c.Contains(context.Background(), "OPS")
			if err != nil || !ok {
				t.Errorf("Expected OPS to be known, got %v %v", ok, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if _, err := c.Contains(context.Background(), "WEB"); err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected exactly 1 fetch, got %d", got)
	}
	if !c.Loaded() {
		t.Error("Expected cache to be loaded")
	}
}

func TestProjectKeyCacheRetriesAfterFailure(t *testing.T) {
	attempts := 0
	c := NewProjectKeyCache(func(ctx context.Context) ([]string, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("jira down")
		}
		return []string{"OPS"}, nil
	})

	if _, err := c.Contains(context.Background(), "OPS"); err == nil {
		t.Fatal("Expected first lookup to fail")
	}
	if c.Loaded() {
		t.Error("Expected failed fetch not to be cached")
	}

	ok, err := c.Contains(context.Background(), "OPS")
	if err != nil || !ok {
		t.Errorf("Expected retry to succeed, got %v %v", ok, err)
	}
	ok, _ = c.Contains(context.Background(), "ABC")
	if ok {
		t.Error("Expected unknown key to be rejected")
	}

	keys, _ := c.Keys(context.Background())
	sort.Strings(keys)
	if len(keys) != 1 || keys[0] != "OPS" {
		t.Errorf("Unexpected keys %v", keys)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}
