package main

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pasabuy/pasabuy-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

// runner is a long-lived subscription loop.
type runner interface {
	Run(context.Context) error
}

type ServiceParams struct {
	Logger       *logger.Logger
	Dependencies map[string]pinger
	Consumers    map[string]runner
}

// Service runs every notification consumer until one fails or ctx ends.
type Service struct {
	logg      *logger.Logger
	deps      map[string]pinger
	consumers map[string]runner
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(params.Consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	for name, consumer := range params.Consumers {
		if consumer == nil {
			return nil, fmt.Errorf("consumer %s is nil", name)
		}
	}
	return &Service{
		logg:      params.Logger,
		deps:      params.Dependencies,
		consumers: params.Consumers,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for name, dep := range s.deps {
		if dep == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for name, consumer := range s.consumers {
		group.Go(func() error {
			consumerCtx := s.logg.WithField(groupCtx, "consumer", name)
			s.logg.Info(consumerCtx, "consumer started")
			err := consumer.Run(groupCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(consumerCtx, "consumer stopped unexpectedly", err)
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
