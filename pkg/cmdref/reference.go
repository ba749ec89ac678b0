package cmdref

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Recorder receives load and lookup measurements. *telemetry.Metrics
// satisfies it.
type Recorder interface {
	RecordReferenceLoad(success bool, features int, duration time.Duration)
	RecordLookup(feature string, cached bool)
	RecordResolve(duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordReferenceLoad(bool, int, time.Duration) {}
func (nopRecorder) RecordLookup(string, bool)                    {}
func (nopRecorder) RecordResolve(time.Duration)                  {}

// ReloadRecorder is optionally implemented by a Recorder to count reloads.
type ReloadRecorder interface {
	RecordReload(success bool)
}

type options struct {
	logger   zerolog.Logger
	recorder Recorder
	apis     []string
	debounce time.Duration
}

// Option configures a Reference.
type Option func(*options)

// WithLogger sets the logger used while loading and resolving.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRecorder sets the measurement sink.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithAPIs registers API flavors recognized as selectors in addition to
// DefaultAPIs.
func WithAPIs(names ...string) Option {
	return func(o *options) { o.apis = append(o.apis, names...) }
}

// WithDebounce sets how long a Reloader waits for file events to settle.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.debounce = d
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:   zerolog.Nop(),
		recorder: nopRecorder{},
		debounce: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Reference maps feature names to their resolved records for one fixed
// (API, product) context. It is safe for concurrent use.
type Reference struct {
	api      string
	product  string
	sources  []string
	apis     apiSet
	features map[string]*feature
	order    []string

	logger   zerolog.Logger
	recorder Recorder

	mu    sync.Mutex
	cache map[string]*cacheEntry
}

// cacheEntry resolves its feature at most once.
type cacheEntry struct {
	once sync.Once
	ref  *CmdRef
}

// New reads, parses and validates the documents named by paths. Paths may be
// files, directories or glob patterns. Any violation is returned and no
// Reference is built.
func New(api, product string, paths []string, opts ...Option) (*Reference, error) {
	o := buildOptions(opts)
	sources, err := ReadSources(paths)
	if err != nil {
		o.recorder.RecordReferenceLoad(false, 0, 0)
		o.logger.Error().Err(err).Strs("paths", paths).Msg("Failed to read command reference sources")
		return nil, err
	}
	return build(api, product, sources, o)
}

// NewFromSources builds a Reference from in-memory documents.
func NewFromSources(api, product string, sources []Source, opts ...Option) (*Reference, error) {
	return build(api, product, sources, buildOptions(opts))
}

func build(api, product string, sources []Source, o options) (*Reference, error) {
	start := time.Now()
	logger := o.logger.With().
		Str("component", "cmdref").
		Str("api", api).
		Str("product", product).
		Logger()

	apis, err := newAPISet(o.apis...)
	if err != nil {
		o.recorder.RecordReferenceLoad(false, 0, time.Since(start))
		return nil, err
	}

	features, order, err := loadFeatures(sources, apis)
	if err != nil {
		o.recorder.RecordReferenceLoad(false, 0, time.Since(start))
		logger.Error().Err(err).Str("class", string(ClassOf(err))).Msg("Command reference rejected")
		return nil, err
	}

	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = src.Name
	}

	r := &Reference{
		api:      api,
		product:  product,
		sources:  names,
		apis:     apis,
		features: features,
		order:    order,
		logger:   logger,
		recorder: o.recorder,
		cache:    make(map[string]*cacheEntry, len(features)),
	}

	duration := time.Since(start)
	o.recorder.RecordReferenceLoad(true, len(features), duration)
	logger.Debug().
		Int("sources", len(sources)).
		Int("features", len(features)).
		Dur("duration", duration).
		Msg("Command reference loaded")

	return r, nil
}

// API returns the API flavor the reference resolves for.
func (r *Reference) API() string { return r.api }

// Product returns the product identifier the reference resolves for.
func (r *Reference) Product() string { return r.product }

// Sources returns the names of the loaded documents.
func (r *Reference) Sources() []string { return append([]string(nil), r.sources...) }

// APIs returns the recognized API selector names, sorted.
func (r *Reference) APIs() []string { return r.apis.names() }

// Empty reports whether no features were loaded.
func (r *Reference) Empty() bool { return len(r.features) == 0 }

// Len returns the number of loaded features.
func (r *Reference) Len() int { return len(r.features) }

// Has reports whether feature was loaded.
func (r *Reference) Has(feature string) bool {
	_, ok := r.features[feature]
	return ok
}

// Features returns the loaded feature names, sorted.
func (r *Reference) Features() []string {
	names := make([]string, 0, len(r.features))
	for name := range r.features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the resolved record of feature. namespace only groups call
// sites and does not take part in resolution. Repeated lookups return the
// same record.
func (r *Reference) Lookup(namespace, feature string) (*CmdRef, error) {
	f, ok := r.features[feature]
	if !ok {
		return nil, fmt.Errorf("%w: %q (namespace %q)", ErrUnknownFeature, feature, namespace)
	}

	r.mu.Lock()
	entry, cached := r.cache[feature]
	if !cached {
		entry = &cacheEntry{}
		r.cache[feature] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		start := time.Now()
		entry.ref = NewCmdRef(f.name, Resolve(f.node, r.api, r.product))
		r.recorder.RecordResolve(time.Since(start))
		r.logger.Trace().Str("feature", feature).Int("attributes", entry.ref.Len()).Msg("Feature resolved")
	})
	r.recorder.RecordLookup(feature, cached)

	return entry.ref, nil
}

// MustLookup is Lookup for features known to exist; it panics otherwise.
func (r *Reference) MustLookup(namespace, feature string) *CmdRef {
	ref, err := r.Lookup(namespace, feature)
	if err != nil {
		panic(err)
	}
	return ref
}

// ResolveAll returns the record of every loaded feature keyed by name.
func (r *Reference) ResolveAll() map[string]*CmdRef {
	out := make(map[string]*CmdRef, len(r.features))
	for name := range r.features {
		out[name] = r.MustLookup("", name)
	}
	return out
}

// Node returns the validated tree of feature.
func (r *Reference) Node(feature string) (*Node, bool) {
	f, ok := r.features[feature]
	if !ok {
		return nil, false
	}
	return f.node, true
}
