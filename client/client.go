// Package client provides a gRPC client for the davlock lock service.
package client

import (
	"context"

	"github.com/jathurchan/davlock/rpc"
	"github.com/jathurchan/davlock/types"
)

// Operation names used for metrics and errors.
const (
	opCreate     = "create"
	opRefresh    = "refresh"
	opRelease    = "release"
	opFindActive = "find_active"
	opFindAll    = "find_all"
	opEvaluateIf = "evaluate_if"
)

// lockClient implements LockClient.
type lockClient struct {
	base *baseClient
}

// NewLockClient returns a client for the given configuration. Connections
// are opened on first use.
func NewLockClient(config Config) (LockClient, error) {
	base, err := newBaseClient(config)
	if err != nil {
		return nil, err
	}
	return &lockClient{base: base}, nil
}

func (c *lockClient) Create(ctx context.Context, req *CreateRequest) (types.ActiveLock, error) {
	var resp *rpc.CreateResponse
	err := c.base.executeWithRetry(ctx, opCreate, func(ctx context.Context, client rpc.LockServiceClient) error {
		var err error
		resp, err = client.Create(ctx, &rpc.CreateRequest{
			Path:    req.Path,
			Href:    req.Href,
			Depth:   req.Depth,
			Scope:   string(req.Scope),
			Owner:   string(req.Owner),
			Timeout: req.Timeout,
		})
		return err
	})
	if err != nil {
		return types.ActiveLock{}, fromStatus(opCreate, err)
	}
	return resp.Lock.ActiveLock(), nil
}

func (c *lockClient) Refresh(ctx context.Context, req *RefreshRequest) (types.ActiveLock, error) {
	var resp *rpc.RefreshResponse
	err := c.base.executeWithRetry(ctx, opRefresh, func(ctx context.Context, client rpc.LockServiceClient) error {
		var err error
		resp, err = client.Refresh(ctx, &rpc.RefreshRequest{
			LockToken: req.LockToken,
			Owner:     string(req.Owner),
			Timeout:   req.Timeout,
		})
		return err
	})
	if err != nil {
		return types.ActiveLock{}, fromStatus(opRefresh, err)
	}
	return resp.Lock.ActiveLock(), nil
}

func (c *lockClient) Release(ctx context.Context, req *ReleaseRequest) error {
	err := c.base.executeWithRetry(ctx, opRelease, func(ctx context.Context, client rpc.LockServiceClient) error {
		_, err := client.Release(ctx, &rpc.ReleaseRequest{
			LockToken: req.LockToken,
			Owner:     string(req.Owner),
		})
		return err
	})
	return fromStatus(opRelease, err)
}

func (c *lockClient) FindActive(ctx context.Context, path string, owner types.Owner) ([]types.ActiveLock, error) {
	var resp *rpc.LocksResponse
	err := c.base.executeWithRetry(ctx, opFindActive, func(ctx context.Context, client rpc.LockServiceClient) error {
		var err error
		resp, err = client.FindActive(ctx, &rpc.FindActiveRequest{Path: path, Owner: string(owner)})
		return err
	})
	if err != nil {
		return nil, fromStatus(opFindActive, err)
	}
	return activeLocks(resp.Locks), nil
}

func (c *lockClient) FindAll(ctx context.Context, owner types.Owner) ([]types.ActiveLock, error) {
	var resp *rpc.LocksResponse
	err := c.base.executeWithRetry(ctx, opFindAll, func(ctx context.Context, client rpc.LockServiceClient) error {
		var err error
		resp, err = client.FindAll(ctx, &rpc.FindAllRequest{Owner: string(owner)})
		return err
	})
	if err != nil {
		return nil, fromStatus(opFindAll, err)
	}
	return activeLocks(resp.Locks), nil
}

func (c *lockClient) EvaluateIf(ctx context.Context, req *EvaluateIfRequest) (bool, error) {
	var resp *rpc.EvaluateIfResponse
	err := c.base.executeWithRetry(ctx, opEvaluateIf, func(ctx context.Context, client rpc.LockServiceClient) error {
		var err error
		resp, err = client.EvaluateIf(ctx, &rpc.EvaluateIfRequest{Path: req.Path, If: req.If})
		return err
	})
	if err != nil {
		return false, fromStatus(opEvaluateIf, err)
	}
	return resp.Satisfied, nil
}

func (c *lockClient) Metrics() Metrics {
	return c.base.metrics
}

func (c *lockClient) Close() error {
	return c.base.close()
}

func activeLocks(wire []rpc.Lock) []types.ActiveLock {
	locks := make([]types.ActiveLock, len(wire))
	for i, w := range wire {
		locks[i] = w.ActiveLock()
	}
	return locks
}
