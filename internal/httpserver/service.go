// Package httpserver is the HTTP boundary (C5): gin routes, request
// binding, and structured JSON errors. Core verifiers never see HTTP
// status codes — a single switch here maps apierror.Error to one.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/dc4eu/vc-attest/internal/apiv1"
	"github.com/dc4eu/vc-attest/pkg/apierror"
	"github.com/dc4eu/vc-attest/pkg/logger"
	"github.com/dc4eu/vc-attest/pkg/model"
	"github.com/dc4eu/vc-attest/pkg/trace"

	"github.com/gin-gonic/gin"
)

// Service is the HTTP boundary service.
type Service struct {
	config *model.Cfg
	log    *logger.Log
	tracer *trace.Tracer
	api    *apiv1.Client
	gin    *gin.Engine
	server *http.Server
}

// New builds the gin engine, registers routes and middlewares, and starts
// serving in a background goroutine.
func New(ctx context.Context, cfg *model.Cfg, api *apiv1.Client, tracer *trace.Tracer, log *logger.Log) (*Service, error) {
	s := &Service{
		config: cfg,
		log:    log,
		tracer: tracer,
		api:    api,
		server: &http.Server{
			ReadHeaderTimeout: 2 * time.Second,
		},
	}

	switch cfg.Common.Production {
	case true:
		gin.SetMode(gin.ReleaseMode)
	case false:
		gin.SetMode(gin.DebugMode)
	}

	s.gin = gin.New()
	s.server.Handler = s.gin
	s.server.Addr = cfg.APIServer.Addr
	s.server.ReadTimeout = 5 * time.Second
	s.server.WriteTimeout = 30 * time.Second
	s.server.IdleTimeout = 90 * time.Second

	s.gin.Use(s.middlewareRequestID(ctx))
	s.gin.Use(s.middlewareDuration(ctx))
	s.gin.Use(s.middlewareLogger(ctx))
	s.gin.Use(s.middlewareCrash(ctx))

	problem404 := apierror.Problem404()
	s.gin.NoRoute(func(c *gin.Context) { c.JSON(http.StatusNotFound, problem404) })

	rgRoot := s.gin.Group("/")
	s.regEndpoint(ctx, rgRoot, http.MethodGet, "/health", s.endpointHealth)

	attestLimiter := newRateLimiter(60, 10)
	rgAttest := rgRoot.Group("/attest")
	rgAttest.Use(attestLimiter.middleware())
	s.regEndpoint(ctx, rgAttest, http.MethodPost, "/verify-attestation", s.endpointVerifyAttestation)
	s.regEndpoint(ctx, rgAttest, http.MethodPost, "/verify-assertion", s.endpointVerifyAssertion)

	primusLimiter := newRateLimiter(30, 5)
	rgPrimus := rgRoot.Group("/primus")
	rgPrimus.Use(primusLimiter.middleware())
	s.regEndpoint(ctx, rgPrimus, http.MethodPost, "/init", s.endpointPrimusInit)
	s.regEndpoint(ctx, rgPrimus, http.MethodPost, "/sign", s.endpointPrimusSign)
	s.regEndpoint(ctx, rgPrimus, http.MethodPost, "/verify", s.endpointPrimusVerify)

	s.regEndpoint(ctx, rgRoot, http.MethodGet, "/identity", s.endpointIdentity)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Info("listen_and_serve stopped", "error", err)
		}
	}()

	s.log.Info("started", "addr", s.server.Addr)

	return s, nil
}

// Close gracefully shuts down the HTTP server.
func (s *Service) Close(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// regEndpoint registers a handler that returns (any, error), translating a
// non-nil error into a structured JSON error response via apierror.
func (s *Service) regEndpoint(ctx context.Context, rg *gin.RouterGroup, method, path string, handler func(context.Context, *gin.Context) (any, error)) {
	rg.Handle(method, path, func(c *gin.Context) {
		ctx, span := s.tracer.Start(ctx, "httpserver:"+method+":"+path)
		defer span.End()

		res, err := handler(ctx, c)
		if err != nil {
			apiErr := apierror.NewErrorFromError(err)
			c.JSON(apierror.StatusCode(apiErr), gin.H{"success": false, "error": apiErr.Title})
			return
		}

		c.JSON(http.StatusOK, res)
	})
}
