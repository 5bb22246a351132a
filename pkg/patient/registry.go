package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vcanio/Terio-sub000/pkg/logging"
	"github.com/vcanio/Terio-sub000/pkg/storage"
)

// RegistryKey is where the patient list and the active pointer are stored
const RegistryKey = "patients"

var (
	ErrUnknownPatient = errors.New("unknown patient")
	ErrInvalidName    = errors.New("patient name is required")
)

// Patient is a person whose network map is being documented
type Patient struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Registry holds the patients and which one is active
type Registry interface {
	List(ctx context.Context) ([]Patient, error)
	Get(ctx context.Context, id string) (Patient, error)
	Active(ctx context.Context) (Patient, bool, error)
	SetActive(ctx context.Context, id string) (Patient, error)
}

type registryDoc struct {
	Patients []Patient `json:"patients"`
	Active   string    `json:"active,omitempty"`
}

// KVRegistry stores the registry as one JSON document in a KV store
type KVRegistry struct {
	mu    sync.Mutex
	kv    storage.KV
	newID func() string
	now   func() time.Time
}

// NewKVRegistry creates a registry backed by kv
func NewKVRegistry(kv storage.KV) *KVRegistry {
	return &KVRegistry{
		kv:    kv,
		newID: func() string { return uuid.New().String() },
		now:   time.Now,
	}
}

func (r *KVRegistry) load(ctx context.Context) (registryDoc, error) {
	var doc registryDoc
	data, err := r.kv.Get(ctx, RegistryKey)
	if errors.Is(err, storage.ErrNotFound) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("failed to read patients: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		logging.Warn("patient registry is unreadable, starting empty", "error", err)
		return registryDoc{}, nil
	}
	return doc, nil
}

func (r *KVRegistry) save(ctx context.Context, doc registryDoc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode patients: %w", err)
	}
	if err := r.kv.Put(ctx, RegistryKey, data); err != nil {
		return fmt.Errorf("failed to write patients: %w", err)
	}
	return nil
}

func find(doc registryDoc, id string) (Patient, int) {
	for i, p := range doc.Patients {
		if p.ID == id {
			return p, i
		}
	}
	return Patient{}, -1
}

// List returns the patients in creation order
func (r *KVRegistry) List(ctx context.Context) ([]Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if doc.Patients == nil {
		return []Patient{}, nil
	}
	return doc.Patients, nil
}

// Get looks a patient up by id
func (r *KVRegistry) Get(ctx context.Context, id string) (Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.load(ctx)
	if err != nil {
		return Patient{}, err
	}
	p, i := find(doc, id)
	if i < 0 {
		return Patient{}, fmt.Errorf("%w: %s", ErrUnknownPatient, id)
	}
	return p, nil
}

// Active returns the active patient, if any
func (r *KVRegistry) Active(ctx context.Context) (Patient, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.load(ctx)
	if err != nil || doc.Active == "" {
		return Patient{}, false, err
	}
	p, i := find(doc, doc.Active)
	return p, i >= 0, nil
}

// SetActive makes id the active patient
func (r *KVRegistry) SetActive(ctx context.Context, id string) (Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.load(ctx)
	if err != nil {
		return Patient{}, err
	}
	p, i := find(doc, id)
	if i < 0 {
		return Patient{}, fmt.Errorf("%w: %s", ErrUnknownPatient, id)
	}
	doc.Active = id
	if err := r.save(ctx, doc); err != nil {
		return Patient{}, err
	}
	logging.Info("active patient changed", "patientID", id)
	return p, nil
}

// Create registers a new patient. The active pointer is left alone.
func (r *KVRegistry) Create(ctx context.Context, name string) (Patient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Patient{}, ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.load(ctx)
	if err != nil {
		return Patient{}, err
	}
	p := Patient{ID: r.newID(), Name: name, CreatedAt: r.now().UTC()}
	doc.Patients = append(doc.Patients, p)
	if err := r.save(ctx, doc); err != nil {
		return Patient{}, err
	}
	logging.Info("patient created", "patientID", p.ID)
	return p, nil
}

// Delete removes a patient and their network map. Deleting the active patient
// leaves no patient active.
func (r *KVRegistry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.load(ctx)
	if err != nil {
		return err
	}
	_, i := find(doc, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownPatient, id)
	}
	doc.Patients = append(doc.Patients[:i], doc.Patients[i+1:]...)
	if doc.Active == id {
		doc.Active = ""
	}
	if err := r.save(ctx, doc); err != nil {
		return err
	}
	if err := r.kv.Delete(ctx, storage.BoardKey(id)); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to delete board: %w", err)
	}
	logging.Info("patient deleted", "patientID", id)
	return nil
}

// Prune deletes stored boards whose patient is no longer registered and
// returns their keys
func (r *KVRegistry) Prune(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := r.kv.Keys(ctx, storage.BoardKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}

	var pruned []string
	for _, key := range keys {
		if _, i := find(doc, strings.TrimPrefix(key, storage.BoardKeyPrefix)); i >= 0 {
			continue
		}
		if err := r.kv.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return pruned, fmt.Errorf("failed to delete %s: %w", key, err)
		}
		pruned = append(pruned, key)
	}
	if len(pruned) > 0 {
		logging.Info("orphaned boards removed", "count", len(pruned))
	}
	return pruned, nil
}
