package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/codyseavey/bag-of-holding/backend/internal/database"
	"github.com/codyseavey/bag-of-holding/backend/internal/models"
	"github.com/codyseavey/bag-of-holding/backend/internal/services"
)

// unsupportedRequest is a variant the worker has no handler for
type unsupportedRequest struct{}

func (unsupportedRequest) Kind() string { return "bogus-kind" }
func (unsupportedRequest) isRequest()   {}

func newTestClient(t *testing.T, start bool) (*Client, *Worker) {
	t.Helper()
	store, err := services.NewSessionStore(4)
	if err != nil {
		t.Fatalf("NewSessionStore failed: %v", err)
	}
	w := NewWorker(services.NewHelvaultImporter(t.TempDir(), false), store, 8)
	if start {
		w.Start(context.Background())
	}
	c := NewClient(w)
	t.Cleanup(c.Terminate)
	return c, w
}

func sampleExport(t *testing.T) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.helvault")
	if err := database.WriteHelvault(path, database.SampleFixture()); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	return data
}

func TestClient_LoadQueryAndMatch(t *testing.T) {
	c, _ := newTestClient(t, true)
	ctx := context.Background()

	summary, err := c.LoadHelvault(ctx, sampleExport(t), "test.helvault")
	if err != nil {
		t.Fatalf("LoadHelvault failed: %v", err)
	}
	if summary.Collections != 2 || summary.Cards != 2 || len(summary.InventoryRows) != 3 || len(summary.Aggregates) != 3 {
		t.Errorf("unexpected summary %+v", summary)
	}

	cards, err := c.QueryCards(ctx, "", services.CardFilter{Name: "bolt"})
	if err != nil {
		t.Fatalf("QueryCards failed: %v", err)
	}
	if cards.Total != 1 || cards.SessionID != summary.SessionID {
		t.Errorf("unexpected cards result %+v", cards)
	}

	inventory, err := c.QueryInventory(ctx, summary.SessionID, summary.InventoryRows[0].CollectionID)
	if err != nil {
		t.Fatalf("QueryInventory failed: %v", err)
	}
	if len(inventory.Inventory) != 2 {
		t.Errorf("expected 2 rows in the first collection, got %d", len(inventory.Inventory))
	}

	matches, err := c.ComputeMatches(ctx, services.LatestSessionID, models.MatchRequest{Decklist: "6 Lightning Bolt\n1 Black Lotus"})
	if err != nil {
		t.Fatalf("ComputeMatches failed: %v", err)
	}
	if matches.Requested != 7 || matches.Owned != 7 || matches.Missing != 0 {
		t.Errorf("unexpected match totals %+v", matches)
	}

	matches, err = c.ComputeMatches(ctx, "", models.MatchRequest{Entries: []models.DeckListEntry{{Name: "Lightning Bolt", Qty: 10}}})
	if err != nil {
		t.Fatalf("ComputeMatches with entries failed: %v", err)
	}
	if matches.Missing != 4 {
		t.Errorf("expected 4 missing, got %d", matches.Missing)
	}

	_, err = c.ComputeMatches(ctx, "", models.MatchRequest{Entries: []models.DeckListEntry{{Name: "Lightning Bolt", Qty: -2}}})
	if !errors.Is(err, services.ErrInvalidEntry) {
		t.Errorf("expected ErrInvalidEntry for negative quantity, got %v", err)
	}
}

func TestClient_NoDataLoaded(t *testing.T) {
	c, _ := newTestClient(t, true)

	_, err := c.QueryInventory(context.Background(), "", "")
	if !errors.Is(err, services.ErrNoDataLoaded) {
		t.Errorf("expected ErrNoDataLoaded, got %v", err)
	}
	if !strings.Contains(err.Error(), "query-inventory") {
		t.Errorf("expected error to name the request kind, got %v", err)
	}
}

func TestClient_UnknownRequest(t *testing.T) {
	c, _ := newTestClient(t, true)

	_, err := c.Call(context.Background(), unsupportedRequest{})
	if !errors.Is(err, ErrUnknownRequest) {
		t.Fatalf("expected ErrUnknownRequest, got %v", err)
	}
	if !strings.Contains(err.Error(), "bogus-kind") {
		t.Errorf("expected error to name the kind, got %v", err)
	}
}

func TestClient_InvalidExport(t *testing.T) {
	c, _ := newTestClient(t, true)

	_, err := c.LoadHelvault(context.Background(), []byte("not an export"), "bad.helvault")
	if !errors.Is(err, database.ErrInvalidExport) {
		t.Errorf("expected ErrInvalidExport, got %v", err)
	}
}

func TestClient_TerminateFailsOutstandingRequests(t *testing.T) {
	// Worker not started, so requests stay queued
	c, _ := newTestClient(t, false)

	const callers = 3
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			_, err := c.Call(context.Background(), QueryInventory{})
			errs <- err
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.Pending() < callers && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Pending() != callers {
		t.Fatalf("expected %d pending requests, got %d", callers, c.Pending())
	}

	c.Terminate()

	for i := 0; i < callers; i++ {
		select {
		case err := <-errs:
			if !errors.Is(err, ErrWorkerTerminated) {
				t.Errorf("expected ErrWorkerTerminated, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for rejected request")
		}
	}

	if _, err := c.Call(context.Background(), QueryInventory{}); !errors.Is(err, ErrWorkerTerminated) {
		t.Errorf("expected calls after Terminate to fail, got %v", err)
	}
}

func TestClient_WorkerStopFailsOutstandingRequests(t *testing.T) {
	c, w := newTestClient(t, false)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Call(context.Background(), QueryCards{})
		errCh <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for c.Pending() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	w.Stop()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrWorkerTerminated) {
			t.Errorf("expected ErrWorkerTerminated, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for rejected request")
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	c, _ := newTestClient(t, false)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Call(ctx, QueryInventory{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if c.Pending() != 0 {
		t.Errorf("expected cancelled request to be forgotten, got %d pending", c.Pending())
	}
}

func TestWorker_PanicFailsRequestAndKeepsServing(t *testing.T) {
	store, _ := services.NewSessionStore(2)
	// A nil importer panics on load
	w := NewWorker(nil, store, 4)
	w.Start(context.Background())
	c := NewClient(w)
	defer c.Terminate()

	_, err := c.Call(context.Background(), LoadHelvault{Data: []byte("x")})
	if !errors.Is(err, ErrWorkerCrashed) {
		t.Fatalf("expected ErrWorkerCrashed, got %v", err)
	}

	_, err = c.Call(context.Background(), QueryCards{})
	if !errors.Is(err, services.ErrNoDataLoaded) {
		t.Errorf("expected worker to keep serving after a panic, got %v", err)
	}
}

func TestClient_ConcurrentCallsGetOwnResponses(t *testing.T) {
	c, _ := newTestClient(t, true)
	ctx := context.Background()

	if _, err := c.LoadHelvault(ctx, sampleExport(t), "test.helvault"); err != nil {
		t.Fatalf("LoadHelvault failed: %v", err)
	}

	var wg sync.WaitGroup
	for qty := 1; qty <= 10; qty++ {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			resp, err := c.ComputeMatches(ctx, "", models.MatchRequest{
				Entries: []models.DeckListEntry{{Name: "Lightning Bolt", Qty: qty}},
			})
			if err != nil {
				t.Errorf("qty %d: ComputeMatches failed: %v", qty, err)
				return
			}
			if resp.Requested != qty {
				t.Errorf("qty %d: got response for %d", qty, resp.Requested)
			}
		}(qty)
	}
	wg.Wait()
}

func TestClient_ResponseForUnknownRequestIsDropped(t *testing.T) {
	c, _ := newTestClient(t, false)
	c.resolve(Response{ID: "does-not-exist"})
	if c.Pending() != 0 {
		t.Errorf("expected no pending requests, got %d", c.Pending())
	}
}
