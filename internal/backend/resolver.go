package backend

import (
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/vyrodovalexey/gymgw/internal/config"
	"github.com/vyrodovalexey/gymgw/internal/util"
)

// Resolver resolves a logical service name to an instance base URL.
type Resolver interface {
	Resolve(service string) (*url.URL, error)
}

type serviceInstances struct {
	urls    []*url.URL
	current atomic.Uint64
}

// RoundRobinResolver implements round-robin instance selection over a
// static service table. It is safe for concurrent use.
type RoundRobinResolver struct {
	services map[string]*serviceInstances
}

// NewRoundRobinResolver creates a resolver from the configured services.
func NewRoundRobinResolver(services []config.Service) (*RoundRobinResolver, error) {
	r := &RoundRobinResolver{services: make(map[string]*serviceInstances, len(services))}
	for _, svc := range services {
		inst := &serviceInstances{urls: make([]*url.URL, 0, len(svc.Instances))}
		for _, raw := range svc.Instances {
			u, err := url.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("service %s: invalid instance %q: %w", svc.Name, raw, err)
			}
			if u.Scheme == "" || u.Host == "" {
				return nil, fmt.Errorf("service %s: instance %q must be an absolute URL", svc.Name, raw)
			}
			inst.urls = append(inst.urls, u)
		}
		r.services[svc.Name] = inst
	}
	return r, nil
}

// Resolve returns the next instance of service in round-robin order.
func (r *RoundRobinResolver) Resolve(service string) (*url.URL, error) {
	inst, ok := r.services[service]
	if !ok || len(inst.urls) == 0 {
		return nil, util.NewBackendError(service, "no instances available")
	}

	idx := inst.current.Add(1) - 1
	u := *inst.urls[idx%uint64(len(inst.urls))]
	return &u, nil
}

// StaticResolver resolves each service to one fixed URL.
type StaticResolver map[string]*url.URL

// Resolve returns the fixed URL of service.
func (r StaticResolver) Resolve(service string) (*url.URL, error) {
	u, ok := r[service]
	if !ok {
		return nil, util.NewBackendError(service, "no instances available")
	}
	out := *u
	return &out, nil
}
