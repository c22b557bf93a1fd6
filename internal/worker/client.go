package worker

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/codyseavey/bag-of-holding/backend/internal/metrics"
	"github.com/codyseavey/bag-of-holding/backend/internal/models"
	"github.com/codyseavey/bag-of-holding/backend/internal/services"
)

// Client sends requests to a Worker and waits for the matching responses.
// Each call gets its own correlation id.
type Client struct {
	worker *Worker

	mu       sync.Mutex
	pending  map[string]chan Response
	closed   bool
	closeErr error
}

// NewClient attaches a client to a worker and starts dispatching its responses
func NewClient(w *Worker) *Client {
	c := &Client{
		worker:  w,
		pending: make(map[string]chan Response),
	}
	go c.dispatch()
	return c
}

// Call sends req to the worker and blocks until its response arrives, the
// worker fails or terminates, or ctx is done
func (c *Client) Call(ctx context.Context, req Request) (any, error) {
	id := uuid.New().String()
	reply := make(chan Response, 1)

	c.mu.Lock()
	if c.closed {
		err := c.closeErr
		c.mu.Unlock()
		return nil, err
	}
	c.pending[id] = reply
	metrics.WorkerPendingRequests.Set(float64(len(c.pending)))
	c.mu.Unlock()

	if err := c.worker.submit(ctx, envelope{ID: id, Request: req}); err != nil {
		c.forget(id)
		return nil, err
	}

	select {
	case resp := <-reply:
		if resp.Err != nil {
			return nil, resp.Err
		}
		return resp.Payload, nil
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	}
}

// Pending returns the number of requests awaiting a response
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Terminate stops the worker and fails every outstanding request.
// Calls made afterwards fail immediately.
func (c *Client) Terminate() {
	c.close(ErrWorkerTerminated)
	c.worker.Stop()
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
	metrics.WorkerPendingRequests.Set(float64(len(c.pending)))
}

func (c *Client) dispatch() {
	for {
		select {
		case ev := <-c.worker.events:
			if ev.Fault != nil {
				c.rejectAll(ev.Fault)
				continue
			}
			c.resolve(ev.Response)
		case <-c.worker.Done():
			c.close(ErrWorkerTerminated)
			return
		}
	}
}

func (c *Client) resolve(resp Response) {
	c.mu.Lock()
	reply, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
		metrics.WorkerPendingRequests.Set(float64(len(c.pending)))
	}
	c.mu.Unlock()

	if !ok {
		log.Printf("Import worker: received response for unknown request %s", resp.ID)
		return
	}
	reply <- resp
}

// rejectAll fails every outstanding request with cause but keeps the client
// usable
func (c *Client) rejectAll(cause error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]chan Response)
	metrics.WorkerPendingRequests.Set(0)
	c.mu.Unlock()

	if len(pending) > 0 {
		log.Printf("Import worker: failing %d outstanding requests: %v", len(pending), cause)
	}
	for id, reply := range pending {
		reply <- Response{ID: id, Err: cause}
	}
}

// close fails every outstanding request and rejects later calls
func (c *Client) close(cause error) {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		c.closeErr = cause
	}
	c.mu.Unlock()
	c.rejectAll(cause)
}

// Typed helpers over Call

func (c *Client) LoadHelvault(ctx context.Context, data []byte, source string) (models.ImportSummary, error) {
	payload, err := c.Call(ctx, LoadHelvault{Data: data, Source: source})
	if err != nil {
		return models.ImportSummary{}, err
	}
	return expect[models.ImportSummary](payload)
}

func (c *Client) QueryCards(ctx context.Context, sessionID string, filter services.CardFilter) (CardsResult, error) {
	payload, err := c.Call(ctx, QueryCards{SessionID: sessionID, Filter: filter})
	if err != nil {
		return CardsResult{}, err
	}
	return expect[CardsResult](payload)
}

func (c *Client) QueryInventory(ctx context.Context, sessionID, collectionID string) (InventoryResult, error) {
	payload, err := c.Call(ctx, QueryInventory{SessionID: sessionID, CollectionID: collectionID})
	if err != nil {
		return InventoryResult{}, err
	}
	return expect[InventoryResult](payload)
}

func (c *Client) ComputeMatches(ctx context.Context, sessionID string, req models.MatchRequest) (models.MatchResponse, error) {
	payload, err := c.Call(ctx, ComputeMatches{SessionID: sessionID, Decklist: req.Decklist, Entries: req.Entries})
	if err != nil {
		return models.MatchResponse{}, err
	}
	return expect[models.MatchResponse](payload)
}

func expect[T any](payload any) (T, error) {
	value, ok := payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected worker payload %T", payload)
	}
	return value, nil
}
