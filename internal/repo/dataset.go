package repo

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/integrityos/risk-engine/internal/models"
)

var (
	// ErrNoDataset is returned before the first import.
	ErrNoDataset = errors.New("no dataset imported")
	// ErrObjectNotFound is returned for an unknown object id.
	ErrObjectNotFound = errors.New("object not found")
	// ErrPipelineNotFound is returned for an unknown pipeline id.
	ErrPipelineNotFound = errors.New("pipeline not found")
)

// Dataset is an immutable, indexed snapshot of pipelines, objects and observations.
type Dataset struct {
	version    uint64
	importedAt time.Time

	pipelines  []models.Pipeline
	pipelineBy map[string]models.Pipeline
	objects    []models.Object
	objectBy   map[string]models.Object

	objectsIn      map[string][]models.Object
	observations   []models.Observation
	observationsOf map[string][]models.Observation
	observationsIn map[string][]models.Observation
}

// NewDataset indexes the given rows. Inputs are copied; observations are ordered by date per object.
func NewDataset(version uint64, pipelines []models.Pipeline, objects []models.Object, observations []models.Observation) *Dataset {
	d := &Dataset{
		version:        version,
		importedAt:     time.Now().UTC(),
		pipelines:      append([]models.Pipeline(nil), pipelines...),
		pipelineBy:     make(map[string]models.Pipeline, len(pipelines)),
		objects:        append([]models.Object(nil), objects...),
		objectBy:       make(map[string]models.Object, len(objects)),
		objectsIn:      make(map[string][]models.Object),
		observations:   append([]models.Observation(nil), observations...),
		observationsOf: make(map[string][]models.Observation),
		observationsIn: make(map[string][]models.Observation),
	}

	sort.SliceStable(d.pipelines, func(i, j int) bool { return d.pipelines[i].ID < d.pipelines[j].ID })
	sort.SliceStable(d.objects, func(i, j int) bool { return d.objects[i].ID < d.objects[j].ID })
	sort.SliceStable(d.observations, func(i, j int) bool {
		if !d.observations[i].Date.Equal(d.observations[j].Date) {
			return d.observations[i].Date.Before(d.observations[j].Date)
		}
		return d.observations[i].ID < d.observations[j].ID
	})

	for _, p := range d.pipelines {
		d.pipelineBy[p.ID] = p
	}
	for _, o := range d.objects {
		d.objectBy[o.ID] = o
		d.objectsIn[o.PipelineID] = append(d.objectsIn[o.PipelineID], o)
	}
	for _, obs := range d.observations {
		d.observationsOf[obs.ObjectID] = append(d.observationsOf[obs.ObjectID], obs)
		pipelineID := obs.PipelineID
		if o, ok := d.objectBy[obs.ObjectID]; ok && o.PipelineID != "" {
			pipelineID = o.PipelineID
		}
		d.observationsIn[pipelineID] = append(d.observationsIn[pipelineID], obs)
	}
	return d
}

// Version is the monotonically increasing import number.
func (d *Dataset) Version() uint64 { return d.version }

// ImportedAt is when the snapshot was built.
func (d *Dataset) ImportedAt() time.Time { return d.importedAt }

// Pipelines returns all pipelines ordered by id.
func (d *Dataset) Pipelines() []models.Pipeline { return d.pipelines }

// Pipeline looks up a pipeline.
func (d *Dataset) Pipeline(id string) (models.Pipeline, bool) {
	p, ok := d.pipelineBy[id]
	return p, ok
}

// Objects returns all objects ordered by id.
func (d *Dataset) Objects() []models.Object { return d.objects }

// Object looks up an object.
func (d *Dataset) Object(id string) (models.Object, bool) {
	o, ok := d.objectBy[id]
	return o, ok
}

// ObjectsIn returns the objects of a pipeline ordered by id.
func (d *Dataset) ObjectsIn(pipelineID string) []models.Object { return d.objectsIn[pipelineID] }

// Observations returns every observation ordered by date.
func (d *Dataset) Observations() []models.Observation { return d.observations }

// ObservationsOf returns an object's observations ordered by date.
func (d *Dataset) ObservationsOf(objectID string) []models.Observation {
	return d.observationsOf[objectID]
}

// ObservationsIn returns the observations recorded under a pipeline ordered by date.
func (d *Dataset) ObservationsIn(pipelineID string) []models.Observation {
	return d.observationsIn[pipelineID]
}

// Store publishes dataset snapshots. Writers are serialised so the published
// version only moves forward; readers never take the lock.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Dataset]
	version uint64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Replace builds and publishes a new snapshot.
func (s *Store) Replace(pipelines []models.Pipeline, objects []models.Object, observations []models.Observation) *Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	d := NewDataset(s.version, pipelines, objects, observations)
	s.current.Store(d)
	return d
}

// Current returns the latest snapshot or ErrNoDataset.
func (s *Store) Current() (*Dataset, error) {
	d := s.current.Load()
	if d == nil {
		return nil, ErrNoDataset
	}
	return d, nil
}
