package endpoint

// PreResolver is consulted before the wrapped endpoint. Returning true means
// the name is resolved and the wrapped endpoint is skipped.
type PreResolver func(name string) (Resolution, bool)

// PostFilter sees the wrapped endpoint's raw resolution and may replace it,
// NotFound included.
type PostFilter func(name string, r Resolution) Resolution

// Proxy decorates an endpoint with an optional pre-resolver and post-filter.
type Proxy struct {
	target Endpoint
	pre    PreResolver
	post   PostFilter
}

func NewProxy(target Endpoint, pre PreResolver, post PostFilter) *Proxy {
	return &Proxy{target: target, pre: pre, post: post}
}

func (p *Proxy) Resolve(name string) Resolution {
	if p.pre != nil {
		if r, ok := p.pre(name); ok {
			return r
		}
	}
	r := p.target.Resolve(name)
	if p.post != nil {
		r = p.post(name, r)
	}
	return r
}

// DeepPreResolver and DeepPostFilter receive the full path from the proxy
// root, the current name being its last element.
type (
	DeepPreResolver func(path []string) (Resolution, bool)
	DeepPostFilter  func(path []string, r Resolution) Resolution
)

// DeepProxy is a Proxy that wraps every endpoint it returns in another
// DeepProxy, so its hooks apply at every depth of the tree.
type DeepProxy struct {
	target Endpoint
	pre    DeepPreResolver
	post   DeepPostFilter
	path   []string
}

func NewDeepProxy(target Endpoint, pre DeepPreResolver, post DeepPostFilter) *DeepProxy {
	return &DeepProxy{target: target, pre: pre, post: post}
}

func (p *DeepProxy) Path() []string {
	return append([]string(nil), p.path...)
}

func (p *DeepProxy) Resolve(name string) Resolution {
	path := make([]string, len(p.path)+1)
	copy(path, p.path)
	path[len(p.path)] = name

	r, ok := Resolution{}, false
	if p.pre != nil {
		r, ok = p.pre(path)
	}
	if !ok {
		r = p.target.Resolve(name)
		if p.post != nil {
			r = p.post(path, r)
		}
	}
	if r.Endpoint != nil {
		r.Endpoint = &DeepProxy{target: r.Endpoint, pre: p.pre, post: p.post, path: path}
	}
	return r
}
