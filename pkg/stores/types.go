package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/openfroyo/nodeutils/pkg/cmdref"
)

// ErrNotFound is returned when a snapshot does not exist.
var ErrNotFound = errors.New("snapshot not found")

// Records maps feature name to its resolved attributes.
type Records map[string]map[string]any

// Snapshot is the resolved command reference for one API/product pair at
// one point in time.
type Snapshot struct {
	ID           string    `json:"id" yaml:"id"`
	Label        string    `json:"label,omitempty" yaml:"label,omitempty"`
	API          string    `json:"api" yaml:"api"`
	Product      string    `json:"product" yaml:"product"`
	Sources      []string  `json:"sources" yaml:"sources"`
	FeatureCount int       `json:"feature_count" yaml:"feature_count"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`

	// Records is nil on snapshots returned by ListSnapshots.
	Records Records `json:"records,omitempty" yaml:"records,omitempty"`
}

// NewSnapshot resolves every feature of ref into a new snapshot.
// Attribute values are normalized to their JSON form so a snapshot compares
// equal to itself after a round trip through the store.
func NewSnapshot(ref *cmdref.Reference, label string) (*Snapshot, error) {
	records := make(Records, ref.Len())
	for name, rec := range ref.ResolveAll() {
		attrs, err := normalize(rec.Map())
		if err != nil {
			return nil, fmt.Errorf("feature %s: %w", name, err)
		}
		records[name] = attrs
	}

	return &Snapshot{
		ID:           uuid.New().String(),
		Label:        label,
		API:          ref.API(),
		Product:      ref.Product(),
		Sources:      ref.Sources(),
		FeatureCount: len(records),
		CreatedAt:    time.Now().UTC(),
		Records:      records,
	}, nil
}

// Features returns the snapshot's feature names, sorted.
func (s *Snapshot) Features() []string {
	names := make([]string, 0, len(s.Records))
	for name := range s.Records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(attrs map[string]any) (map[string]any, error) {
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(attrs))
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListOptions filters ListSnapshots. Zero values match everything.
type ListOptions struct {
	API     string
	Product string
	Limit   int
	Offset  int
}

// Store defines the interface for snapshot persistence.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	GetSnapshot(ctx context.Context, id string) (*Snapshot, error)
	LatestSnapshot(ctx context.Context, api, product string) (*Snapshot, error)
	ListSnapshots(ctx context.Context, opts ListOptions) ([]*Snapshot, error)
	DeleteSnapshot(ctx context.Context, id string) error

	// Utility
	HealthCheck(ctx context.Context) error
}
