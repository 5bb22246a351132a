package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/vcanio/Terio-sub000/pkg/board"
	"github.com/vcanio/Terio-sub000/pkg/export"
	"github.com/vcanio/Terio-sub000/pkg/interact"
	"github.com/vcanio/Terio-sub000/pkg/logging"
	"github.com/vcanio/Terio-sub000/pkg/patient"
	"github.com/vcanio/Terio-sub000/pkg/pubsub"
	"github.com/vcanio/Terio-sub000/pkg/storage"
	"github.com/vcanio/Terio-sub000/pkg/viewport"
)

// ErrNoActivePatient is returned by board operations before a patient is opened
var ErrNoActivePatient = errors.New("no active patient")

// Options configures a Session
type Options struct {
	KV        storage.KV
	Registry  patient.Registry
	Publisher pubsub.Publisher // may be nil
	Exporter  *export.Exporter

	// Seed makes node placement reproducible; 0 seeds from the clock
	Seed  uint64
	NewID func() string

	ContainerWidth  float64
	ContainerHeight float64
}

// Session is the open network map: the active patient's Graph Store, the
// interaction controller driving it and the viewport it is seen through.
type Session struct {
	kv        storage.KV
	registry  patient.Registry
	publisher pubsub.Publisher
	exporter  *export.Exporter
	seed      uint64
	newID     func() string
	view      *viewport.Viewport
	log       *slog.Logger

	mu          sync.RWMutex
	patient     patient.Patient
	store       *board.Store
	ctrl        *interact.Controller
	unsubscribe func()
}

// New creates a session with no patient open
func New(opts Options) *Session {
	if opts.Exporter == nil {
		opts.Exporter = export.NewExporter(export.NewPNGRasterizer(0), opts.Publisher)
	}
	return &Session{
		kv:        opts.KV,
		registry:  opts.Registry,
		publisher: opts.Publisher,
		exporter:  opts.Exporter,
		seed:      opts.Seed,
		newID:     opts.NewID,
		view:      viewport.New(opts.ContainerWidth, opts.ContainerHeight),
		log:       logging.Component("session"),
	}
}

// Restore opens the registry's active patient, if there is one
func (s *Session) Restore(ctx context.Context) error {
	p, ok, err := s.registry.Active(ctx)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Info("no active patient to restore")
		return nil
	}
	_, err = s.Open(ctx, p.ID)
	return err
}

// Open makes patientID the active patient and loads their board. The previous
// patient's board stays persisted under its own key.
func (s *Session) Open(ctx context.Context, patientID string) (patient.Patient, error) {
	p, err := s.registry.SetActive(ctx, patientID)
	if err != nil {
		return patient.Patient{}, err
	}

	opts := board.Options{
		Key:   storage.BoardKey(p.ID),
		KV:    s.kv,
		NewID: s.newID,
	}
	s.mu.RLock()
	seed := s.seed
	s.mu.RUnlock()
	if seed != 0 {
		opts.Rand = rand.New(rand.NewPCG(seed, seed))
	}
	store, err := board.Open(ctx, opts)
	if err != nil {
		return patient.Patient{}, fmt.Errorf("opening board of %s: %w", p.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.ctrl != nil {
		s.ctrl.Reset()
	}
	s.patient = p
	s.store = store
	s.ctrl = interact.NewController(store, s.view, s.publisher)
	s.unsubscribe = store.Subscribe(func(c board.Change) {
		s.publishBoard(p.ID, c)
	})
	s.view.Reset()

	s.publishBoard(p.ID, board.Change{Op: board.OpLoaded, Version: store.Version(), Board: store.Snapshot()})
	s.log.Info("patient opened", "patientID", p.ID)
	return p, nil
}

// publishBoard forwards a change to the board topic. It runs inside store
// listeners, so it must not call back into the store.
func (s *Session) publishBoard(patientID string, c board.Change) {
	if s.publisher == nil {
		return
	}
	ev := pubsub.BoardChanged{PatientID: patientID, Op: c.Op, Version: c.Version, Board: c.Board}
	if err := s.publisher.Publish(pubsub.TopicBoard, c.Op, ev); err != nil {
		s.log.Warn("publishing board change failed", "error", err)
	}
}

// Patient returns the active patient
func (s *Session) Patient() (patient.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return patient.Patient{}, ErrNoActivePatient
	}
	return s.patient, nil
}

// Store returns the active patient's Graph Store
func (s *Session) Store() (*board.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return nil, ErrNoActivePatient
	}
	return s.store, nil
}

// Controller returns the interaction controller of the open board
func (s *Session) Controller() (*interact.Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ctrl == nil {
		return nil, ErrNoActivePatient
	}
	return s.ctrl, nil
}

// Viewport is shared by every patient; it belongs to the screen, not the board
func (s *Session) Viewport() *viewport.Viewport {
	return s.view
}

// Exporter returns the shared export pipeline
func (s *Session) Exporter() *export.Exporter {
	return s.exporter
}

// Reset clears the active board and leaves connect mode
func (s *Session) Reset() error {
	s.mu.RLock()
	store, ctrl := s.store, s.ctrl
	s.mu.RUnlock()
	if store == nil {
		return ErrNoActivePatient
	}
	store.Clear()
	ctrl.Reset()
	return nil
}

// ExportRequest snapshots the active board for an export of kind
func (s *Session) ExportRequest(kind export.Kind) (export.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return export.Request{}, ErrNoActivePatient
	}
	return export.Request{
		Kind:        kind,
		PatientName: s.patient.Name,
		Board:       s.store.Snapshot(),
		NodeScale:   s.view.NodeScale(),
	}, nil
}

// Export produces an artifact from the board as it is now
func (s *Session) Export(ctx context.Context, kind export.Kind) (export.Artifact, error) {
	req, err := s.ExportRequest(kind)
	if err != nil {
		return export.Artifact{}, err
	}
	return s.exporter.Export(ctx, req)
}

// StartExport snapshots the board now and exports it in the background
func (s *Session) StartExport(ctx context.Context, kind export.Kind) (<-chan export.Result, error) {
	req, err := s.ExportRequest(kind)
	if err != nil {
		return nil, err
	}
	return s.exporter.Start(ctx, req), nil
}

// SetSeed changes the placement seed used from the next opened patient on
func (s *Session) SetSeed(seed uint64) {
	s.mu.Lock()
	s.seed = seed
	s.mu.Unlock()
}

// Close detaches from the active store
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}
