// Package server exposes the statistical test battery over a local HTTP
// interface so external processes can submit bit sequences for scoring.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"randomness-scorer/internal/clock"
	"randomness-scorer/internal/metrics"
	"randomness-scorer/internal/sts"
	"randomness-scorer/internal/suite"
)

const (
	defaultHTTPAddress       = "127.0.0.1:9696"
	defaultMaxSequenceBits   = 8 * 1024 * 1024
	defaultShutdownTimeout   = 5 * time.Second
	defaultIdleTimeout       = 30 * time.Second
	defaultReadWriteTimeout  = 30 * time.Second
	defaultRateLimitRPS      = 10
	defaultRateLimitBurst    = 10
	defaultRetryAfterSeconds = 1
	baseUrlV1                = "/api/v1"
)

// Server accepts bit sequences over HTTP and evaluates them with the
// configured suite runner.
type Server struct {
	runner            *suite.Runner
	server            *http.Server
	listener          net.Listener
	shutdownTimeout   time.Duration
	maxSequenceBits   int
	clock             clock.Clock
	rateLimiter       *tokenBucket
	retryAfterSeconds int
}

// NewServer constructs a Server bound to addr, which defaults to
// 127.0.0.1:9696. Unless allowPublic is true, the address is restricted to
// loopback interfaces for security. The server exposes three endpoints:
//   - POST /api/v1/score -- evaluates the bit sequence in the request body
//     and returns the battery report as JSON. The query parameters alpha,
//     template_len and blocks override the runner defaults per request.
//   - GET /api/v1/health -- reports the effective runner parameters as
//     plain text.
//   - GET /api/v1/ready -- returns 200 once the server accepts requests.
//
// Sequences longer than maxSequenceBits are rejected with 413.
// Token-bucket rate limiting is applied to the score endpoint.
// rateLimitRPS sets the sustained request rate and rateLimitBurst sets the
// burst allowance; both default to 10 when non-positive.
func NewServer(addr string, runner *suite.Runner, maxSequenceBits int, allowPublic bool, retryAfterSeconds int, rateLimitRPS int, rateLimitBurst int) (*Server, error) {
	if runner == nil {
		return nil, errors.New("score http server: runner is nil")
	}
	if addr == "" {
		addr = defaultHTTPAddress
	}
	if maxSequenceBits <= 0 {
		maxSequenceBits = defaultMaxSequenceBits
	}

	if retryAfterSeconds <= 0 {
		retryAfterSeconds = defaultRetryAfterSeconds
	}

	if rateLimitRPS <= 0 {
		rateLimitRPS = defaultRateLimitRPS
	}

	if rateLimitBurst <= 0 {
		rateLimitBurst = defaultRateLimitBurst
	}

	canonicalAddr, err := enforceLoopbackAddr(addr, allowPublic)
	if err != nil {
		return nil, err
	}

	clk := clock.RealClock{}

	scoreServer := &Server{
		runner:            runner,
		shutdownTimeout:   defaultShutdownTimeout,
		maxSequenceBits:   maxSequenceBits,
		clock:             clk,
		retryAfterSeconds: retryAfterSeconds,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(baseUrlV1+"/score", scoreServer.handleScore)
	mux.HandleFunc(baseUrlV1+"/health", scoreServer.handleHealth)
	mux.HandleFunc(baseUrlV1+"/ready", scoreServer.handleReady)

	scoreServer.server = &http.Server{
		Addr:         canonicalAddr,
		Handler:      mux,
		ReadTimeout:  defaultReadWriteTimeout,
		WriteTimeout: defaultReadWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	scoreServer.rateLimiter = newTokenBucket(float64(rateLimitRPS), float64(rateLimitBurst), clk)
	log.Printf("score http server: rate limiter configured (rps=%d, burst=%d)", rateLimitRPS, rateLimitBurst)

	return scoreServer, nil
}

// Start begins listening for HTTP requests. It returns an error if the socket
// cannot be bound.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("score http server: listen: %w", err)
	}

	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("score http server: serve error: %v", err)
		}
	}()

	log.Printf("score http server: listening on %s", listener.Addr())
	return nil
}

// Addr returns the bound listener address, or the configured address when
// the server has not started yet.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Handler returns the server's HTTP handler, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Shutdown gracefully stops the HTTP server, waiting up to shutdownTimeout for
// in-flight requests to complete.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
	}

	err := s.server.Shutdown(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// enforceLoopbackAddr validates that addr resolves to a loopback interface.
// When allowPublic is true, non-loopback addresses are permitted with a
// warning log. Returns the canonical host:port string or an error.
func enforceLoopbackAddr(addr string, allowPublic bool) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = defaultHTTPAddress
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("score http server: invalid address %q: %w", addr, err)
	}

	if host == "" {
		return "", errors.New("score http server: host must be specified")
	}

	hostLower := strings.ToLower(host)
	if hostLower == "localhost" {
		return net.JoinHostPort("localhost", port), nil
	}

	ip := net.ParseIP(host)
	if ip == nil {
		if allowPublic {
			log.Printf("score http server: SCORE_ALLOW_PUBLIC_HTTP=true, binding to %s", addr)
			return addr, nil
		}
		return "", fmt.Errorf("score http server: host %q is not loopback", host)
	}

	if !ip.IsLoopback() {
		if allowPublic {
			log.Printf("score http server: SCORE_ALLOW_PUBLIC_HTTP=true, binding to %s", addr)
			return net.JoinHostPort(ip.String(), port), nil
		}
		return "", fmt.Errorf("score http server: host %q must be loopback", host)
	}

	return net.JoinHostPort(ip.String(), port), nil
}

type scoreResponse struct {
	Length    int          `json:"length"`
	AllPassed bool         `json:"all_passed"`
	Report    suite.Report `json:"report"`
}

func (s *Server) handleScore(response http.ResponseWriter, request *http.Request) {
	start := time.Now()
	status := http.StatusOK
	rateLimited := false
	defer func() {
		duration := time.Since(start)
		metrics.RecordScoreHTTPRequest(status, duration)
		if status == http.StatusServiceUnavailable {
			metrics.RecordScoreHTTP503()
			if rateLimited {
				metrics.RecordScoreHTTPRateLimited()
			}
		}
	}()

	if request.Method != http.MethodPost {
		status = http.StatusMethodNotAllowed
		response.Header().Set("Allow", http.MethodPost)
		http.Error(response, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.rateLimiter != nil {
		allowed, wait := s.rateLimiter.Allow()
		if !allowed {
			status = http.StatusServiceUnavailable
			rateLimited = true
			setNoStoreHeaders(response)
			s.setRetryAfter(response, wait)
			http.Error(response, "rate limit exceeded", http.StatusServiceUnavailable)
			return
		}
	}

	runner, err := s.requestRunner(request)
	if err != nil {
		status = http.StatusBadRequest
		setNoStoreHeaders(response)
		http.Error(response, err.Error(), http.StatusBadRequest)
		return
	}

	// One byte of slack past the limit distinguishes "at the limit" from
	// "over the limit".
	body, err := io.ReadAll(http.MaxBytesReader(response, request.Body, int64(s.maxSequenceBits)+1))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			metrics.RecordScoreHTTPOversized()
			setNoStoreHeaders(response)
			http.Error(response, fmt.Sprintf("sequence exceeds %d bits", s.maxSequenceBits), http.StatusRequestEntityTooLarge)
			return
		}
		status = http.StatusBadRequest
		setNoStoreHeaders(response)
		http.Error(response, "failed to read request body", http.StatusBadRequest)
		return
	}

	bitString := strings.TrimSpace(string(body))
	if len(bitString) > s.maxSequenceBits {
		status = http.StatusRequestEntityTooLarge
		metrics.RecordScoreHTTPOversized()
		setNoStoreHeaders(response)
		http.Error(response, fmt.Sprintf("sequence exceeds %d bits", s.maxSequenceBits), http.StatusRequestEntityTooLarge)
		return
	}

	report, err := runner.Run(request.Context(), bitString)
	if err != nil {
		if errors.Is(err, sts.ErrInvalidInput) {
			status = http.StatusBadRequest
			setNoStoreHeaders(response)
			http.Error(response, err.Error(), http.StatusBadRequest)
			return
		}
		status = http.StatusInternalServerError
		log.Printf("score http server: evaluation failed: %v", err)
		setNoStoreHeaders(response)
		http.Error(response, "evaluation failed", http.StatusInternalServerError)
		return
	}

	setNoStoreHeaders(response)
	response.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(response).Encode(scoreResponse{
		Length:    len(bitString),
		AllPassed: report.AllPassed(),
		Report:    report,
	}); err != nil {
		log.Printf("score http server: write failed: %v", err)
	}
}

// requestRunner applies per-request overrides of the significance level and
// template parameters on top of the configured runner.
func (s *Server) requestRunner(request *http.Request) (*suite.Runner, error) {
	query := request.URL.Query()
	if query.Get("alpha") == "" && query.Get("template_len") == "" && query.Get("blocks") == "" {
		return s.runner, nil
	}

	params := s.runner.Params()
	alpha := params.Alpha
	templateLength := params.TemplateLength
	templateBlocks := params.TemplateBlocks

	if value := query.Get("alpha"); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil || parsed <= 0 || parsed >= 1 {
			return nil, fmt.Errorf("alpha must be a number in (0, 1), got %q", value)
		}
		alpha = parsed
	}
	if value := query.Get("template_len"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("template_len must be a positive integer, got %q", value)
		}
		templateLength = parsed
	}
	if value := query.Get("blocks"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("blocks must be a positive integer, got %q", value)
		}
		templateBlocks = parsed
	}

	return suite.NewRunner(
		suite.WithAlpha(alpha),
		suite.WithTemplateParams(templateLength, templateBlocks),
		suite.WithParallelism(params.Parallelism),
	), nil
}

func (s *Server) handleHealth(response http.ResponseWriter, _ *http.Request) {
	params := s.runner.Params()

	setNoStoreHeaders(response)
	response.Header().Set("Content-Type", "text/plain; charset=utf-8")
	response.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(response, "alpha=%g\ntemplate_len=%d\ntemplate_blocks=%d\nmax_sequence_bits=%d\n",
		params.Alpha, params.TemplateLength, params.TemplateBlocks, s.maxSequenceBits)
}

func (s *Server) handleReady(response http.ResponseWriter, _ *http.Request) {
	setNoStoreHeaders(response)
	response.Header().Set("Content-Type", "text/plain; charset=utf-8")
	response.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(response, "ready=true\n")
}

// setNoStoreHeaders sets Cache-Control and Pragma headers to prevent caching
// of scoring responses.
func setNoStoreHeaders(response http.ResponseWriter) {
	response.Header().Set("Cache-Control", "no-store")
	response.Header().Set("Pragma", "no-cache")
}

// tokenBucket implements a simple token-bucket rate limiter. Tokens are
// refilled at a constant rate up to a maximum capacity. It is safe for
// concurrent use.
type tokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64
	lastRefill time.Time
	clock      clock.Clock
}

// newTokenBucket creates a token bucket that refills at rate tokens per second
// with a maximum burst capacity. The bucket starts full.
func newTokenBucket(rate float64, burst float64, clk clock.Clock) *tokenBucket {
	if rate <= 0 {
		rate = 1
	}

	if burst <= 0 {
		burst = rate
	}

	if clk == nil {
		clk = clock.RealClock{}
	}

	return &tokenBucket{
		capacity:   burst,
		tokens:     burst,
		refillRate: rate,
		lastRefill: clk.Now(),
		clock:      clk,
	}
}

func (b *tokenBucket) Allow() (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	elapsed := now.Sub(b.lastRefill)
	if elapsed > 0 {
		refill := elapsed.Seconds() * b.refillRate

		if refill > 0 {
			b.tokens = math.Min(b.capacity, b.tokens+refill)
		}

		b.lastRefill = now
	}

	if b.tokens >= 1.0 {
		b.tokens -= 1.0

		return true, 0
	}

	deficit := 1.0 - b.tokens
	if deficit < 0 {
		deficit = 0
	}

	waitSeconds := deficit / b.refillRate
	if waitSeconds < 0 {
		waitSeconds = 0
	}

	waitDuration := time.Duration(waitSeconds * float64(time.Second))
	if waitDuration < time.Second {
		waitDuration = time.Second
	}

	return false, waitDuration
}

func (s *Server) setRetryAfter(response http.ResponseWriter, wait time.Duration) {
	seconds := s.retryAfterSeconds
	if wait > 0 {
		calc := int(math.Ceil(wait.Seconds()))
		if calc > seconds {
			seconds = calc
		}
	}
	if seconds < 1 {
		seconds = defaultRetryAfterSeconds
	}
	response.Header().Set("Retry-After", strconv.Itoa(seconds))
}
