package demo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mercator-hq/flowgate/pkg/gate"
	"mercator-hq/flowgate/pkg/guard"
	"mercator-hq/flowgate/pkg/telemetry/logging"
	"mercator-hq/flowgate/pkg/telemetry/tracing"
)

// Resource names and responses of the greeting services.
const (
	SayHelloResource      = "sayHello"
	SentinelResource      = "sentinel_cloud"
	ProviderHelloResource = "provider:/sayHello"

	BusyMessage                = "system busy, please try again later"
	ProviderUnavailableMessage = "provider unavailable"
	ProviderHello              = "Hello provider "
	SentinelHello              = "Hello Sentinel"
)

// maxProviderBody bounds the provider response read by the consumer.
const maxProviderBody = 64 << 10

// Router is the subset of server.Server the demo registers routes on.
type Router interface {
	HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request))
}

// Provider serves GET /sayHello and GET /sayHi.
type Provider struct {
	Name string
}

// SayHello answers "Hello provider ".
func (p *Provider) SayHello(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, ProviderHello)
}

// SayHi answers "Hi provider <name>".
func (p *Provider) SayHi(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "Hi provider "+p.Name)
}

// ProviderClient calls a Provider over HTTP through the outbound
// provider:/sayHello guard. Blocked and failed calls both answer
// "provider unavailable".
type ProviderClient struct {
	site    *guard.CallSite[string]
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewProviderClient creates a client for the provider at baseURL.
func NewProviderClient(g *guard.Guard, baseURL string, timeout time.Duration, logger *slog.Logger) *ProviderClient {
	if logger == nil {
		logger = slog.Default().With("component", "demo")
	}
	site, err := guard.NewCallSite(g, gate.MustResource(ProviderHelloResource, gate.Outbound),
		func(context.Context, *gate.BlockError) (string, error) {
			return ProviderUnavailableMessage, nil
		})
	if err != nil {
		panic(err) // static resource
	}
	return &ProviderClient{
		site:    site,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// SayHello fetches the provider's greeting. It never returns an error; a
// failed call yields the fallback message.
func (c *ProviderClient) SayHello(ctx context.Context) string {
	body, err := c.site.Call(ctx, c.fetchHello)
	if err != nil {
		c.logger.WarnContext(ctx, "provider call failed", "url", c.baseURL+"/sayHello", "error", err)
		return ProviderUnavailableMessage
	}
	return body
}

func (c *ProviderClient) fetchHello(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sayHello", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	tracing.Inject(ctx, req.Header)
	if id := logging.GetRequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderBody))
	if err != nil {
		return "", fmt.Errorf("failed to read provider response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return string(body), nil
}

// Consumer serves GET /consumer/sayHello, guarded inbound as sayHello.
type Consumer struct {
	guard    *guard.Guard
	res      gate.Resource
	provider *ProviderClient
}

// NewConsumer creates a Consumer that forwards to provider.
func NewConsumer(g *guard.Guard, provider *ProviderClient) *Consumer {
	return &Consumer{
		guard:    g,
		res:      gate.MustResource(SayHelloResource, gate.Inbound),
		provider: provider,
	}
}

// SayHello answers the provider's greeting, or the busy message when the
// inbound entry is blocked.
func (c *Consumer) SayHello(w http.ResponseWriter, r *http.Request) {
	guardedText(w, r, c.guard, c.res, func(ctx context.Context) (string, error) {
		return c.provider.SayHello(ctx), nil
	})
}

// SentinelController serves GET /sentinel_cloud, guarded inbound as
// sentinel_cloud.
type SentinelController struct {
	guard *guard.Guard
	res   gate.Resource
}

// NewSentinelController creates a SentinelController.
func NewSentinelController(g *guard.Guard) *SentinelController {
	return &SentinelController{guard: g, res: gate.MustResource(SentinelResource, gate.Inbound)}
}

// Hello answers "Hello Sentinel", or the busy message when blocked.
func (s *SentinelController) Hello(w http.ResponseWriter, r *http.Request) {
	guardedText(w, r, s.guard, s.res, func(context.Context) (string, error) {
		return SentinelHello, nil
	})
}

// guardedText runs work as an inbound entry for res. A blocked entry answers
// 200 with the busy message; a failed one
// answers 500.
func guardedText(w http.ResponseWriter, r *http.Request, g *guard.Guard, res gate.Resource, work func(context.Context) (string, error)) {
	ctx := logging.WithResource(r.Context(), res.Name())
	body, err := guard.Do(ctx, g, res, work, func(context.Context, *gate.BlockError) (string, error) {
		return BusyMessage, nil
	})
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeText(w, http.StatusOK, body)
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, body)
}

// Services bundles the HTTP-facing demo services.
type Services struct {
	Provider *Provider
	Consumer *Consumer
	Sentinel *SentinelController
}

// RegisterRoutes mounts the demo endpoints on r.
func RegisterRoutes(r Router, s Services) {
	if s.Provider != nil {
		r.HandleFunc("GET /sayHello", s.Provider.SayHello)
		r.HandleFunc("GET /sayHi", s.Provider.SayHi)
	}
	if s.Consumer != nil {
		r.HandleFunc("GET /consumer/sayHello", s.Consumer.SayHello)
	}
	if s.Sentinel != nil {
		r.HandleFunc("GET /sentinel_cloud", s.Sentinel.Hello)
	}
}
