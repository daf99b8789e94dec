// Package transport exposes the healer over NATS request/reply. Each
// subject has a pure []byte -> []byte handler so the JSON protocol can be
// exercised without a server.
package transport

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/atbabers/axiomguard/internal/config"
	"github.com/atbabers/axiomguard/internal/debug"
	"github.com/atbabers/axiomguard/internal/healer"
	"github.com/atbabers/axiomguard/pkg/models"
)

// Engine is the healer surface the service needs.
type Engine interface {
	Inspect(input string) healer.Report
	UpdateWeights(axiom models.Axiom, feedback float64) (float64, bool)
	Statistics() models.ViolationStatistics
	Weights() map[models.Axiom]float64
}

// FeedbackSink persists applied feedback.
type FeedbackSink interface {
	RecordFeedback(axiom models.Axiom, feedback, weight float64) (*models.FeedbackEvent, error)
}

// HealRequest asks for one context to be checked and healed.
type HealRequest struct {
	RequestID string `json:"request_id,omitempty"`
	Context   string `json:"context"`
}

// HealResponse carries the healed context and the full report.
type HealResponse struct {
	RequestID string         `json:"request_id"`
	Output    string         `json:"output,omitempty"`
	Report    *healer.Report `json:"report,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// FeedbackRequest adjusts one axiom weight.
type FeedbackRequest struct {
	RequestID string  `json:"request_id,omitempty"`
	Axiom     string  `json:"axiom"`
	Feedback  float64 `json:"feedback"`
}

// FeedbackResponse reports the resulting weight.
type FeedbackResponse struct {
	RequestID string       `json:"request_id"`
	Axiom     models.Axiom `json:"axiom,omitempty"`
	Weight    float64      `json:"weight,omitempty"`
	EventID   string       `json:"event_id,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// StatsRequest is optional; an empty body is accepted.
type StatsRequest struct {
	RequestID string `json:"request_id,omitempty"`
}

// StatsResponse reports ledger statistics and current weights.
type StatsResponse struct {
	RequestID  string                     `json:"request_id"`
	Statistics models.ViolationStatistics `json:"statistics"`
	Weights    map[models.Axiom]float64   `json:"weights"`
	Error      string                     `json:"error,omitempty"`
}

// Service binds an Engine to NATS subjects.
type Service struct {
	engine  Engine
	sink    FeedbackSink
	subject config.NATSConfig
	logger  *zap.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

// Option configures a Service.
type Option func(*Service)

// WithFeedbackSink persists every applied feedback.
func WithFeedbackSink(sink FeedbackSink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a service for engine on the subjects in cfg.
func NewService(engine Engine, cfg config.NATSConfig, opts ...Option) *Service {
	s := &Service{engine: engine, subject: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("transport")
	return s
}

func requestID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

func encode(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte(fmt.Sprintf(`{"error":%q}`, err.Error()))
	}
	return data
}

// HandleHeal decodes a HealRequest and returns an encoded HealResponse.
func (s *Service) HandleHeal(data []byte) []byte {
	var req HealRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return encode(HealResponse{RequestID: requestID(""), Error: "invalid request: " + err.Error()})
	}

	report := s.engine.Inspect(req.Context)
	return encode(HealResponse{
		RequestID: requestID(req.RequestID),
		Output:    report.Output,
		Report:    &report,
	})
}

// HandleFeedback decodes a FeedbackRequest and returns an encoded
// FeedbackResponse.
func (s *Service) HandleFeedback(data []byte) []byte {
	var req FeedbackRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return encode(FeedbackResponse{RequestID: requestID(""), Error: "invalid request: " + err.Error()})
	}
	resp := FeedbackResponse{RequestID: requestID(req.RequestID)}

	axiom, err := models.ParseAxiom(req.Axiom)
	if err != nil {
		resp.Error = err.Error()
		return encode(resp)
	}
	weight, ok := s.engine.UpdateWeights(axiom, req.Feedback)
	if !ok {
		resp.Error = fmt.Sprintf("axiom %s is not registered", axiom)
		return encode(resp)
	}
	resp.Axiom = axiom
	resp.Weight = weight

	if s.sink != nil {
		event, err := s.sink.RecordFeedback(axiom, req.Feedback, weight)
		if err != nil {
			s.logger.Warn("failed to persist feedback", zap.String("axiom", string(axiom)), zap.Error(err))
		} else {
			resp.EventID = event.ID
		}
	}
	return encode(resp)
}

// HandleStats returns an encoded StatsResponse.
func (s *Service) HandleStats(data []byte) []byte {
	var req StatsRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			return encode(StatsResponse{RequestID: requestID(""), Error: "invalid request: " + err.Error()})
		}
	}
	return encode(StatsResponse{
		RequestID:  requestID(req.RequestID),
		Statistics: s.engine.Statistics(),
		Weights:    s.engine.Weights(),
	})
}

func (s *Service) responder(subject string, handle func([]byte) []byte) nats.MsgHandler {
	return func(msg *nats.Msg) {
		resp := handle(msg.Data)
		if msg.Reply == "" {
			debug.LogRequest(subject, len(msg.Data), nil)
			return
		}
		err := msg.Respond(resp)
		debug.LogRequest(subject, len(msg.Data), err)
		if err != nil {
			s.logger.Warn("failed to respond", zap.String("subject", subject), zap.Error(err))
		}
	}
}

// Start queue-subscribes the handlers on nc.
func (s *Service) Start(nc *nats.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	routes := []struct {
		subject string
		handle  func([]byte) []byte
	}{
		{s.subject.HealSubject, s.HandleHeal},
		{s.subject.FeedbackSubject, s.HandleFeedback},
		{s.subject.StatsSubject, s.HandleStats},
	}

	for _, r := range routes {
		sub, err := nc.QueueSubscribe(r.subject, s.subject.Queue, s.responder(r.subject, r.handle))
		if err != nil {
			s.unsubscribeLocked()
			return fmt.Errorf("subscribe %s: %w", r.subject, err)
		}
		s.subs = append(s.subs, sub)
		s.logger.Info("subscribed", zap.String("subject", r.subject), zap.String("queue", s.subject.Queue))
	}
	return nil
}

// Stop drains every subscription.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, sub := range s.subs {
		if err := sub.Drain(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.subs = nil
	return firstErr
}

func (s *Service) unsubscribeLocked() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = nil
}

// Connect dials NATS with reconnect handling.
func Connect(url, name string, logger *zap.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}
