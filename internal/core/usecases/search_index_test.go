package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/samirrijal/parcelview/internal/core/domain"
	"github.com/samirrijal/parcelview/internal/core/usecases"
)

func TestSearchIndex_EmptyUntilRefresh(t *testing.T) {
	idx := usecases.NewSearchIndex(&mockPropertyRepo{})
	if idx.Index() != nil {
		t.Error("expected nil index before refresh")
	}
	if _, ok := idx.BuiltAt(); ok {
		t.Error("expected no build time before refresh")
	}

	n, err := idx.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || idx.Index() == nil {
		t.Errorf("expected empty loaded index, got n=%d index=%v", n, idx.Index())
	}
}

func TestSearchIndex_FailedRefreshKeepsPrevious(t *testing.T) {
	fail := false
	repo := &mockPropertyRepo{
		listLocationsFn: func(ctx context.Context) ([]domain.LocationRecord, error) {
			if fail {
				return nil, errors.New("db down")
			}
			return []domain.LocationRecord{{ID: "a", Point: bilbao}}, nil
		},
	}
	idx := usecases.NewSearchIndex(repo)
	if _, err := idx.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	fail = true
	if _, err := idx.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if idx.Index() == nil || idx.Index().Len() != 1 {
		t.Error("expected previous index to survive a failed refresh")
	}
}

func TestSearchIndex_ConcurrentReadsDuringRefresh(t *testing.T) {
	repo := &mockPropertyRepo{
		listLocationsFn: func(ctx context.Context) ([]domain.LocationRecord, error) {
			return []domain.LocationRecord{{ID: "a", Point: bilbao}}, nil
		},
	}
	idx := usecases.NewSearchIndex(repo)
	if _, err := idx.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = idx.Refresh(context.Background())
		}()
		go func() {
			defer wg.Done()
			ids, err := idx.Index().FindWithin(domain.DistanceQuery{Point: bilbao, RadiusMeters: 1})
			if err != nil || len(ids) != 1 {
				t.Errorf("unexpected result %v, %v", ids, err)
			}
		}()
	}
	wg.Wait()
}
