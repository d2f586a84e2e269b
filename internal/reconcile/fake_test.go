package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var errNotFound = errors.New("index_not_found_exception")

// fakeCluster is an in-memory cluster used by the tests. A missing entry in
// policies or replicas makes the corresponding read fail.
type fakeCluster struct {
	mu sync.Mutex

	names        []string
	policies     map[string]string
	replicas     map[string]int
	knownPolicy  map[string]bool
	failWrite    map[string]error
	listErr      error
	writes       []string
	writeHook    func(index string)
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{
		policies:    map[string]string{},
		replicas:    map[string]int{},
		knownPolicy: map[string]bool{},
		failWrite:   map[string]error{},
	}
}

func (f *fakeCluster) IndexNames(_ context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]string(nil), f.names...), nil
}

func (f *fakeCluster) CurrentPolicy(_ context.Context, index string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.policies[index]
	if !ok {
		return "", fmt.Errorf("%w: %s", errNotFound, index)
	}
	return p, nil
}

func (f *fakeCluster) PolicyExists(_ context.Context, policy string) (bool, error) {
	return f.knownPolicy[policy], nil
}

func (f *fakeCluster) SetPolicy(_ context.Context, index, policy string) error {
	if err := f.write(index); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.policies[index] = policy
	return nil
}

func (f *fakeCluster) RemovePolicy(_ context.Context, index string) error {
	if err := f.write(index); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.policies[index] = ""
	return nil
}

func (f *fakeCluster) ReplicaCount(_ context.Context, index string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, ok := f.replicas[index]
	if !ok {
		return 0, fmt.Errorf("%w: %s", errNotFound, index)
	}
	return n, nil
}

func (f *fakeCluster) SetReplicaCount(_ context.Context, index string, count int) error {
	if err := f.write(index); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.replicas[index] = count
	return nil
}

func (f *fakeCluster) write(index string) error {
	if f.writeHook != nil {
		f.writeHook(index)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, index)
	return f.failWrite[index]
}

func (f *fakeCluster) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

func ptr[V any](v V) *V {
	return &v
}
