package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// Source selects the candidate indices of a run. Exactly one of the fields
// must be set.
type Source struct {
	Pattern string
	Indices []string
	File    string
}

// Validate checks that exactly one input mode is selected.
func (s Source) Validate() error {
	n := 0
	if s.Pattern != "" {
		n++
	}
	if len(s.Indices) > 0 {
		n++
	}
	if s.File != "" {
		n++
	}

	switch {
	case n == 0:
		return ErrMissingInput
	case n > 1:
		return ErrAmbiguousInput
	}
	return nil
}

// String describes the source for reports and saved results.
func (s Source) String() string {
	switch {
	case s.File != "":
		return s.File
	case s.Pattern != "":
		return "pattern-" + s.Pattern
	default:
		return "indices-" + strings.Join(s.Indices, ",")
	}
}

// Resolver turns a Source into index descriptors annotated with the current
// value read by Read.
type Resolver[V comparable] struct {
	Lister IndexLister
	Read   func(ctx context.Context, index string) (V, error)

	// Concurrency bounds the number of simultaneous reads, DefaultMaxConcurrent
	// if not positive.
	Concurrency int
	Log         *zerolog.Logger
}

// Resolve dispatches to the resolution mode selected by src.
func (r *Resolver[V]) Resolve(ctx context.Context, src Source) ([]IndexDescriptor[V], error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}

	switch {
	case src.Pattern != "":
		return r.ByPattern(ctx, src.Pattern)
	case src.File != "":
		return r.ByFile(ctx, src.File)
	default:
		return r.ByList(ctx, src.Indices)
	}
}

// ByPattern resolves all indices whose name contains a match of pattern,
// ignoring case.
func (r *Resolver[V]) ByPattern(ctx context.Context, pattern string) ([]IndexDescriptor[V], error) {
	re, err := CompilePattern(pattern)
	if err != nil {
		return nil, err
	}

	names, err := r.Lister.IndexNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indices: %w", err)
	}

	matching := make([]string, 0, len(names))
	for _, name := range names {
		if re.MatchString(name) {
			matching = append(matching, name)
		}
	}

	return r.enrich(ctx, dedupe(matching))
}

// ByList resolves an explicit list of index names. Names are not checked for
// existence; an index that cannot be read ends up with a nil current value.
func (r *Resolver[V]) ByList(ctx context.Context, names []string) ([]IndexDescriptor[V], error) {
	return r.enrich(ctx, dedupe(names))
}

// ByFile resolves the index names listed in a JSON file, see ReadIndexFile.
func (r *Resolver[V]) ByFile(ctx context.Context, path string) ([]IndexDescriptor[V], error) {
	names, err := ReadIndexFile(path)
	if err != nil {
		return nil, err
	}

	return r.ByList(ctx, names)
}

// enrich reads the current value of every index with bounded concurrency.
// Read failures are not fatal, the descriptor is kept with a nil value.
func (r *Resolver[V]) enrich(ctx context.Context, names []string) ([]IndexDescriptor[V], error) {
	limit := r.Concurrency
	if limit <= 0 {
		limit = DefaultMaxConcurrent
	}

	log := r.Log
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}

	descriptors := make([]IndexDescriptor[V], len(names))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, name := range names {
		descriptors[i].Name = name
		g.Go(func() error {
			v, err := r.Read(ctx, name)
			if err != nil {
				log.Debug().Err(err).Str("index", name).Msg("current value not readable")
				return nil
			}
			descriptors[i].Current = &v
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return descriptors, nil
}

// CompilePattern compiles a user supplied index pattern. Matching is case
// insensitive and not anchored.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
	}
	return re, nil
}

// ReadIndexFile reads index names from a JSON document that is either a list
// of names or an object holding that list under "indices".
func ReadIndexFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("read index file %q: %w", path, err)
	}

	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: %q is not valid JSON", ErrInvalidFormat, path)
	}

	list := gjson.ParseBytes(data)
	if list.IsObject() {
		list = list.Get("indices")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, path)
	}

	items := list.Array()
	names := make([]string, 0, len(items))
	for _, item := range items {
		if item.Type != gjson.String {
			return nil, fmt.Errorf("%w: %q contains non string entry %s", ErrInvalidFormat, path, item.Raw)
		}
		names = append(names, item.String())
	}

	return names, nil
}

// dedupe drops blank and repeated names, keeping the first occurrence.
func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
