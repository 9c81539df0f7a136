package main

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/univend-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type consumer interface {
	Name() string
	Run(ctx context.Context) error
}

type dependency struct {
	name   string
	pinger pinger
}

type ServiceParams struct {
	Logger       *logger.Logger
	Dependencies map[string]pinger
	Consumers    []consumer
}

// Service runs every configured consumer until one fails or the context ends.
type Service struct {
	logg      *logger.Logger
	deps      []dependency
	consumers []consumer
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(params.Consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	deps := make([]dependency, 0, len(params.Dependencies))
	for _, name := range []string{"database", "redis", "pubsub", "bigquery"} {
		if p, ok := params.Dependencies[name]; ok && p != nil {
			deps = append(deps, dependency{name: name, pinger: p})
		}
	}
	return &Service{
		logg:      params.Logger,
		deps:      deps,
		consumers: params.Consumers,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range s.deps {
		if err := dep.pinger.Ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", dep.name), err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, c := range s.consumers {
		c := c
		group.Go(func() error {
			runCtx := s.logg.WithField(groupCtx, "consumer", c.Name())
			s.logg.Info(runCtx, "consumer started")
			err := c.Run(runCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(runCtx, "consumer stopped unexpectedly", err)
				return fmt.Errorf("%s: %w", c.Name(), err)
			}
			return err
		})
	}
	return group.Wait()
}
