package inference

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/medtech/go-cds/internal/domain/drugcheck"
	"github.com/medtech/go-cds/internal/domain/recommend"
	"github.com/medtech/go-cds/internal/domain/triage"
	"github.com/medtech/go-cds/pkg/circuitbreaker"
)

// Service routes decision requests to the remote inference service and falls
// back to the local rule-based classifiers on failure. Triage and drug
// verification therefore never fail; only chat propagates remote errors.
type Service struct {
	client *Client
	logger *zap.Logger

	triageRules    *triage.Classifier
	drugRules      *drugcheck.Classifier
	recommendRules *recommend.Classifier

	triageBreaker    *circuitbreaker.CircuitBreaker
	drugBreaker      *circuitbreaker.CircuitBreaker
	recommendBreaker *circuitbreaker.CircuitBreaker
	chatBreaker      *circuitbreaker.CircuitBreaker
}

// NewService wires the remote client with local fallbacks. client may be nil,
// in which case every request takes the rule-based path.
func NewService(client *Client, breakers *circuitbreaker.Manager, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		client:         client,
		logger:         logger,
		triageRules:    triage.NewClassifier(triage.DefaultConfig()),
		drugRules:      drugcheck.NewClassifier(drugcheck.DefaultConfig()),
		recommendRules: recommend.NewClassifier(recommend.DefaultConfig()),
	}

	if client != nil {
		cfg := breakerConfig()
		var err error
		if s.triageBreaker, err = breakers.GetOrCreate("inference-triage", cfg); err != nil {
			return nil, fmt.Errorf("create triage breaker: %w", err)
		}
		if s.drugBreaker, err = breakers.GetOrCreate("inference-drug", cfg); err != nil {
			return nil, fmt.Errorf("create drug breaker: %w", err)
		}
		if s.recommendBreaker, err = breakers.GetOrCreate("inference-recommend", cfg); err != nil {
			return nil, fmt.Errorf("create recommendation breaker: %w", err)
		}
		if s.chatBreaker, err = breakers.GetOrCreate("inference-chat", cfg); err != nil {
			return nil, fmt.Errorf("create chat breaker: %w", err)
		}
	}
	return s, nil
}

// breakerConfig tunes the breaker for inference endpoints: fail fast and
// recover quickly, the fallback path is always available.
func breakerConfig() circuitbreaker.Config {
	return circuitbreaker.Config{
		MaxRequests:      2,
		Interval:         30 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 3,
		SuccessThreshold: 2,
		FailureRatio:     0.5,
		MinRequests:      5,
	}
}

// Triage produces an urgency assessment. The remote path is tried through the
// circuit breaker unless forceAI is set, which calls the remote service
// directly even when the circuit is open. Any remote failure falls back to
// the rule-based classifier, so the returned result is always non-nil.
func (s *Service) Triage(ctx context.Context, in triage.Input, forceAI bool) *triage.Result {
	if s.client == nil {
		return s.triageFallback(in, nil)
	}

	if forceAI {
		res, err := s.client.AssessTriage(ctx, in)
		if err != nil {
			return s.triageFallback(in, err)
		}
		return res
	}

	out, err := s.triageBreaker.Execute(ctx, func() (interface{}, error) {
		return s.client.AssessTriage(ctx, in)
	})
	if err != nil {
		return s.triageFallback(in, err)
	}
	return out.(*triage.Result)
}

func (s *Service) triageFallback(in triage.Input, cause error) *triage.Result {
	if cause != nil {
		s.logger.Warn("remote triage inference failed, using rule-based fallback",
			zap.Error(cause))
	}
	res := s.triageRules.Classify(in)
	return &res
}

// VerifyDrug produces an authenticity verdict. Requests without an image go
// straight to the rule-based classifier; the remote analysis only adds value
// when it has packaging imagery to inspect. Remote failures fall back to the
// rules, so the returned result is always non-nil.
func (s *Service) VerifyDrug(ctx context.Context, in drugcheck.Input) *drugcheck.Result {
	if s.client == nil || len(in.Image) == 0 {
		return s.drugFallback(in, nil)
	}

	out, err := s.drugBreaker.Execute(ctx, func() (interface{}, error) {
		return s.client.AnalyzeDrug(ctx, in)
	})
	if err != nil {
		return s.drugFallback(in, err)
	}
	return out.(*drugcheck.Result)
}

func (s *Service) drugFallback(in drugcheck.Input, cause error) *drugcheck.Result {
	if cause != nil {
		s.logger.Warn("remote drug analysis failed, using rule-based fallback",
			zap.Error(cause))
	}
	res := s.drugRules.Classify(in)
	return &res
}

// RecommendDrug produces a drug category recommendation. The remote path is
// tried through the circuit breaker; any failure falls back to the rule-based
// mapper, so the returned result is always non-nil.
func (s *Service) RecommendDrug(ctx context.Context, in recommend.Input) *recommend.Result {
	if s.client == nil {
		return s.recommendFallback(in, nil)
	}

	out, err := s.recommendBreaker.Execute(ctx, func() (interface{}, error) {
		return s.client.RecommendDrug(ctx, in)
	})
	if err != nil {
		return s.recommendFallback(in, err)
	}
	return out.(*recommend.Result)
}

func (s *Service) recommendFallback(in recommend.Input, cause error) *recommend.Result {
	if cause != nil {
		s.logger.Warn("remote drug recommendation failed, using rule-based fallback",
			zap.Error(cause))
	}
	res := s.recommendRules.Classify(in)
	return &res
}

// Chat forwards a clinical question to the remote assistant. There is no
// local fallback for free-text answers; failures are returned to the caller.
func (s *Service) Chat(ctx context.Context, query, chatContext string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("inference service not configured")
	}
	out, err := s.chatBreaker.Execute(ctx, func() (interface{}, error) {
		return s.client.Chat(ctx, query, chatContext)
	})
	if err != nil {
		return "", fmt.Errorf("chat inference: %w", err)
	}
	return out.(string), nil
}
