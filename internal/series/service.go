package series

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// Service resolves data requests through the local cache, falling back to the
// remote route when a data type's cache is empty. A Service starts unconfigured
// and must receive routes via Configure before serving requests.
type Service struct {
	fetcher Fetcher
	cache   Cache
	routes  Routes
	fills   *singleflight.Group
	logger  *slog.Logger
}

// NewService creates a new Service. A nil cache means no durable local storage
// is available and every request goes to the network.
func NewService(fetcher Fetcher, cache Cache) *Service {
	return &Service{
		fetcher: fetcher,
		cache:   cache,
		fills:   &singleflight.Group{},
		logger:  slog.Default(),
	}
}

// ShareFills makes the service fill the cache through g. Services sharing a
// cache should share g so an empty data type is fetched only once.
func (s *Service) ShareFills(g *singleflight.Group) *Service {
	s.fills = g
	return s
}

// Configure sets the route table. Routes are copied.
func (s *Service) Configure(routes Routes) {
	if routes == nil {
		routes = Routes{}
	}
	s.routes = routes.Clone()
}

// Configured reports whether Configure has been called.
func (s *Service) Configured() bool {
	return s.routes != nil
}

// GetData returns the records of dataType restricted to filters, wrapped with
// their min/max. It never returns a partial result alongside an error.
func (s *Service) GetData(ctx context.Context, dataType string, filters Filter) (ResultSet, error) {
	if s.routes == nil {
		return ResultSet{}, ErrUnconfiguredStorage
	}

	route, ok := s.routes[dataType]
	if !ok || route == "" {
		return ResultSet{}, &Error{Kind: KindUnknownDataType, DataType: dataType}
	}

	if s.cache == nil {
		// Without a local cache the filter is not applied; callers receive the
		// full series.
		records, err := s.fetch(ctx, route)
		if err != nil {
			return ResultSet{}, err
		}
		return Wrap(records), nil
	}

	records, err := s.getStored(ctx, dataType, route, filters)
	if err != nil {
		return ResultSet{}, err
	}
	return Wrap(records), nil
}

func (s *Service) getStored(ctx context.Context, dataType, route string, filters Filter) ([]Record, error) {
	if err := s.cache.EnsureSchema(ctx, s.routes.Aliases()); err != nil {
		return nil, asSeriesError(err)
	}

	count, err := s.cache.Count(ctx, dataType)
	if err != nil {
		return nil, asSeriesError(err)
	}

	if count == 0 {
		if err := s.fill(ctx, dataType, route); err != nil {
			return nil, err
		}
	}

	kr := filters.KeyRange()
	if kr.Empty() {
		return []Record{}, nil
	}

	records, err := s.cache.Query(ctx, dataType, kr)
	if err != nil {
		return nil, asSeriesError(err)
	}
	return records, nil
}

// fill loads dataType from route into the empty cache. Concurrent fills of the
// same data type wait for the one in flight instead of fetching again.
func (s *Service) fill(ctx context.Context, dataType, route string) error {
	for {
		var led bool
		_, err, _ := s.fills.Do(dataType, func() (interface{}, error) {
			led = true

			count, err := s.cache.Count(ctx, dataType)
			if err != nil {
				return nil, asSeriesError(err)
			}
			if count > 0 {
				return nil, nil
			}

			s.logger.Debug("cache empty, fetching series", "dataType", dataType, "route", route)
			records, err := s.fetch(ctx, route)
			if err != nil {
				return nil, err
			}
			if err := s.cache.BulkInsert(ctx, dataType, records); err != nil {
				return nil, asSeriesError(err)
			}
			return nil, nil
		})
		if err == nil {
			return nil
		}
		// The request leading the fill was cancelled but this one is still wanted.
		if !led && ctx.Err() == nil &&
			(errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			continue
		}
		return asSeriesError(err)
	}
}

func (s *Service) fetch(ctx context.Context, route string) ([]Record, error) {
	records, err := s.fetcher.Fetch(ctx, route)
	if err != nil {
		var serr *Error
		if errors.As(err, &serr) {
			return nil, serr
		}
		return nil, NetworkError(0, err.Error(), err)
	}
	return records, nil
}

func asSeriesError(err error) *Error {
	var serr *Error
	if errors.As(err, &serr) {
		return serr
	}
	return UnknownError(err)
}
