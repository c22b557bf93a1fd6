package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"

	"github.com/codyseavey/bag-of-holding/backend/internal/metrics"
	"github.com/codyseavey/bag-of-holding/backend/internal/models"
	"github.com/codyseavey/bag-of-holding/backend/internal/services"
)

var (
	ErrWorkerTerminated = errors.New("worker terminated")
	ErrWorkerCrashed    = errors.New("worker crashed")
	ErrUnknownRequest   = errors.New("unknown request kind")
)

const defaultQueueSize = 32

type envelope struct {
	ID      string
	Request Request
}

// Response answers the request with the same ID
type Response struct {
	ID      string
	Kind    string
	Payload any
	Err     error
}

// event is either a response or a fault that invalidates every request in
// flight
type event struct {
	Response Response
	Fault    error
}

// Worker runs imports and queries on a single background goroutine. Sessions
// it creates are kept in the store.
type Worker struct {
	importer *services.HelvaultImporter
	store    *services.SessionStore

	requests chan envelope
	events   chan event
	done     chan struct{}
	stopOnce sync.Once
}

func NewWorker(importer *services.HelvaultImporter, store *services.SessionStore, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Worker{
		importer: importer,
		store:    store,
		requests: make(chan envelope, queueSize),
		events:   make(chan event, queueSize),
		done:     make(chan struct{}),
	}
}

// Start runs the worker loop until ctx is cancelled or Stop is called
func (w *Worker) Start(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			w.Stop()
		case <-w.done:
		}
	}()
	go w.run()
	log.Println("Import worker started")
}

// Stop terminates the worker. Safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		log.Println("Import worker stopped")
	})
}

// Done is closed once the worker has stopped
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) run() {
	for {
		select {
		case <-w.done:
			return
		case env := <-w.requests:
			w.process(env)
		}
	}
}

func (w *Worker) submit(ctx context.Context, env envelope) error {
	select {
	case <-w.done:
		return ErrWorkerTerminated
	default:
	}

	select {
	case w.requests <- env:
		return nil
	case <-w.done:
		return ErrWorkerTerminated
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) emit(ev event) {
	select {
	case w.events <- ev:
	case <-w.done:
	}
}

// process handles one request. A panic is reported as a fault so every
// outstanding request fails, and the loop keeps serving new requests.
func (w *Worker) process(env envelope) {
	kind := env.Request.Kind()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in import worker handling %s: %v\n%s", kind, r, debug.Stack())
			metrics.WorkerRequestsTotal.WithLabelValues(kind, "panic").Inc()
			w.emit(event{Fault: fmt.Errorf("%w: %v", ErrWorkerCrashed, r)})
		}
	}()

	payload, err := w.handle(env.Request)
	if err != nil {
		metrics.WorkerRequestsTotal.WithLabelValues(kind, "failed").Inc()
		err = fmt.Errorf("%s failed: %w", kind, err)
	} else {
		metrics.WorkerRequestsTotal.WithLabelValues(kind, "success").Inc()
	}

	w.emit(event{Response: Response{ID: env.ID, Kind: kind, Payload: payload, Err: err}})
}

func (w *Worker) handle(req Request) (any, error) {
	switch r := req.(type) {
	case LoadHelvault:
		session, err := w.importer.ImportBytes(r.Data, r.Source)
		if err != nil {
			return nil, err
		}
		w.store.Put(session)
		return session.Summary(), nil

	case QueryCards:
		session, err := w.store.Get(r.SessionID)
		if err != nil {
			return nil, err
		}
		result := services.QueryCards(session, r.Filter)
		return CardsResult{SessionID: session.ID, Cards: result.Cards, Total: result.Total}, nil

	case QueryInventory:
		session, err := w.store.Get(r.SessionID)
		if err != nil {
			return nil, err
		}
		return InventoryResult{SessionID: session.ID, Inventory: services.QueryInventory(session, r.CollectionID)}, nil

	case ComputeMatches:
		session, err := w.store.Get(r.SessionID)
		if err != nil {
			return nil, err
		}
		entries := r.Entries
		if len(entries) == 0 {
			entries = services.ParseDeckList(r.Decklist)
		} else if err := services.ValidateEntries(entries); err != nil {
			return nil, err
		}
		return newMatchResponse(session.ID, session.Match(entries)), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownRequest, req.Kind())
	}
}

func newMatchResponse(sessionID string, matches []models.MatchResult) models.MatchResponse {
	resp := models.MatchResponse{SessionID: sessionID, Matches: matches}
	for _, m := range matches {
		resp.Requested += m.Entry.Qty
		resp.Owned += m.OwnedCopies()
		resp.Missing += m.Missing
	}
	return resp
}
