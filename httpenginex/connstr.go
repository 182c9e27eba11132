package httpenginex

import (
	"net"
	"strconv"

	"github.com/couchbaselabs/gocbconnstr/v2"
	"github.com/pkg/errors"
)

type servicePorts struct {
	Query     int
	Analytics int
	Search    int
}

var (
	defaultServicePorts = servicePorts{
		Query:     8093,
		Analytics: 8095,
		Search:    8094,
	}
	defaultTlsServicePorts = servicePorts{
		Query:     18093,
		Analytics: 18095,
		Search:    18094,
	}
)

// EndpointsFromConnStr derives the service endpoints of every host named
// in connStr, assuming the services listen on their default ports.
func EndpointsFromConnStr(connStr string) (query, analytics, search []string, err error) {
	baseSpec, err := gocbconnstr.Parse(connStr)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "failed to parse connection string")
	}

	spec, err := gocbconnstr.Resolve(baseSpec)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "failed to resolve connection string")
	}

	scheme := "http"
	ports := defaultServicePorts
	if spec.UseSsl {
		scheme = "https"
		ports = defaultTlsServicePorts
	}

	endpoint := func(host string, port int) string {
		return scheme + "://" + net.JoinHostPort(host, strconv.Itoa(port))
	}

	for _, specHost := range spec.HttpHosts {
		query = append(query, endpoint(specHost.Host, ports.Query))
		analytics = append(analytics, endpoint(specHost.Host, ports.Analytics))
		search = append(search, endpoint(specHost.Host, ports.Search))
	}

	return query, analytics, search, nil
}

// NewEngineFromConnStr builds an engine whose endpoints are derived from
// connStr. Endpoints already present in opts are kept.
func NewEngineFromConnStr(connStr string, opts *EngineOptions) (*Engine, error) {
	query, analytics, search, err := EndpointsFromConnStr(connStr)
	if err != nil {
		return nil, err
	}

	var engineOpts EngineOptions
	if opts != nil {
		engineOpts = *opts
	}

	if len(engineOpts.QueryEndpoints) == 0 {
		engineOpts.QueryEndpoints = query
	}
	if len(engineOpts.AnalyticsEndpoints) == 0 {
		engineOpts.AnalyticsEndpoints = analytics
	}
	if len(engineOpts.SearchEndpoints) == 0 {
		engineOpts.SearchEndpoints = search
	}

	return NewEngine(&engineOpts)
}
