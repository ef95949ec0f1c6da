package precondition

import (
	"context"
	"sync"
)

// fakeAccessor serves canned information and records which references were
// fetched.
type fakeAccessor struct {
	mu         sync.Mutex
	request    ResourceInformation
	requestErr error
	resources  map[string]ResourceInformation
	errs       map[string]error

	requestCalls int
	fetched      []string
}

func newFakeAccessor() *fakeAccessor {
	return &fakeAccessor{
		resources: make(map[string]ResourceInformation),
		errs:      make(map[string]error),
	}
}

func (f *fakeAccessor) RequestInformation(ctx context.Context) (ResourceInformation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requestCalls++
	return f.request, f.requestErr
}

func (f *fakeAccessor) ResourceInformation(ctx context.Context, reference string) (ResourceInformation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, reference)
	if err := f.errs[reference]; err != nil {
		return ResourceInformation{}, err
	}
	return f.resources[reference], nil
}
