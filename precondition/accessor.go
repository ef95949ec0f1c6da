package precondition

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jathurchan/davlock/lock"
	"github.com/jathurchan/davlock/logger"
	"github.com/jathurchan/davlock/storage"
	"github.com/jathurchan/davlock/types"
)

// Accessor fetches the information conditions are tested against.
type Accessor interface {
	// RequestInformation returns the state of the request target.
	RequestInformation(ctx context.Context) (ResourceInformation, error)

	// ResourceInformation returns the state of the resource named by a
	// tagged-list reference.
	ResourceInformation(ctx context.Context, reference string) (ResourceInformation, error)
}

// ErrInvalidBaseURL is returned by NewRequestAccessor for a base URL that is
// not absolute.
var ErrInvalidBaseURL = errors.New("precondition: base URL must be absolute")

// AccessorConfig holds the collaborators of a RequestAccessor.
type AccessorConfig struct {
	// BaseURL is the absolute URL of the WebDAV root, e.g.
	// "https://example.com/dav/". Server-relative paths are taken relative to it.
	BaseURL string

	// RequestPath is the server-relative path of the request target.
	RequestPath string

	// Locks supplies the live locks of a resource. Nil means no locks.
	Locks lock.Store

	// Tags supplies entity tags. Nil means no resource has a tag.
	Tags storage.EntityTagSource

	Logger logger.Logger
}

// RequestAccessor is the Accessor for a single request. References are
// resolved against the base URL; those pointing to another server or
// outside the WebDAV root yield empty information.
type RequestAccessor struct {
	base        *url.URL
	basePath    string // base.Path with a trailing slash
	requestPath string
	locks       lock.Store
	tags        storage.EntityTagSource
	logger      logger.Logger
}

// NewRequestAccessor builds an accessor from cfg.
func NewRequestAccessor(cfg AccessorConfig) (*RequestAccessor, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || !base.IsAbs() || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
	}
	basePath := base.Path
	if !strings.HasSuffix(basePath, "/") {
		basePath += "/"
	}
	base.Path = basePath
	base.RawPath = ""

	log := cfg.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &RequestAccessor{
		base:        base,
		basePath:    basePath,
		requestPath: types.CleanPath(cfg.RequestPath),
		locks:       cfg.Locks,
		tags:        cfg.Tags,
		logger:      log.WithComponent("precondition"),
	}, nil
}

// RequestInformation implements Accessor.
func (a *RequestAccessor) RequestInformation(ctx context.Context) (ResourceInformation, error) {
	return a.information(ctx, a.requestPath)
}

// ResourceInformation implements Accessor.
func (a *RequestAccessor) ResourceInformation(ctx context.Context, reference string) (ResourceInformation, error) {
	path, ok := a.Resolve(reference)
	if !ok {
		return ResourceInformation{}, nil
	}
	return a.information(ctx, path)
}

// Resolve maps a reference to a server-relative path. It returns false,
// after logging a warning, when the reference cannot name a resource of
// this server.
func (a *RequestAccessor) Resolve(reference string) (string, bool) {
	ref, err := url.Parse(reference)
	if err != nil {
		a.logger.Warnw("Unparsable resource tag", "reference", reference, "error", err)
		return "", false
	}

	target := a.base.ResolveReference(ref)
	if !sameOrigin(a.base, target) {
		a.logger.Warnw("Resource tag points to a different server or service", "reference", reference)
		return "", false
	}

	p := target.Path
	if p+"/" == a.basePath {
		return "/", true
	}
	if !strings.HasPrefix(p, a.basePath) {
		a.logger.Warnw("Resource tag points outside the WebDAV root",
			"reference", reference,
			"root", a.basePath)
		return "", false
	}
	return types.CleanPath(strings.TrimPrefix(p, a.basePath)), true
}

func (a *RequestAccessor) information(ctx context.Context, path string) (ResourceInformation, error) {
	var info ResourceInformation

	if a.tags != nil {
		tag, exists, err := a.tags.EntityTag(ctx, path)
		if err != nil {
			return ResourceInformation{}, fmt.Errorf("precondition: entity tag of %s: %w", path, err)
		}
		if exists {
			info.ETag = &tag
		}
	}

	if a.locks != nil {
		locks, err := a.locks.FindActive(ctx, path, "")
		if err != nil {
			return ResourceInformation{}, fmt.Errorf("precondition: locks of %s: %w", path, err)
		}
		info.ActiveLocks = locks
	}

	return info, nil
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) &&
		strings.EqualFold(a.Hostname(), b.Hostname()) &&
		effectivePort(a) == effectivePort(b)
}

func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		return "80"
	case "https":
		return "443"
	}
	return ""
}
