package metricsvc

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/ghost"
)

// Collector holds the application metrics, on a registry of its own.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	EmailsSent *prometheus.CounterVec

	GhostRuns     *prometheus.CounterVec
	GhostDuration *prometheus.HistogramVec
}

var _ ghost.Recorder = (*Collector)(nil)

func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		EmailsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "emails_total",
				Help:      "Total number of emails handed to the email service",
			},
			[]string{"status"},
		),
		GhostRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ghost_runs_total",
				Help:      "Total number of ghost engine runs",
			},
			[]string{"engine", "status"},
		),
		GhostDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ghost_run_duration_seconds",
				Help:      "Ghost engine run duration in seconds",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"engine"},
		),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequests,
		c.HTTPDuration,
		c.EmailsSent,
		c.GhostRuns,
		c.GhostDuration,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the metrics of the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware counts and times the requests by route.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			status := ctx.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if status < http.StatusBadRequest {
					status = http.StatusInternalServerError
				}
			}
			route := ctx.Path()
			method := ctx.Request().Method
			c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			c.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func (c *Collector) ObserveGhost(engine string, took time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.GhostRuns.WithLabelValues(engine, status).Inc()
	c.GhostDuration.WithLabelValues(engine).Observe(took.Seconds())
}

type countingEmailService struct {
	core.EmailService
	sent *prometheus.CounterVec
}

// CountEmails wraps svc so that every Send is counted by outcome.
func (c *Collector) CountEmails(svc core.EmailService) core.EmailService {
	return &countingEmailService{EmailService: svc, sent: c.EmailsSent}
}

func (svc *countingEmailService) Send(msg *core.EmailMessage) error {
	err := svc.EmailService.Send(msg)
	if err != nil {
		svc.sent.WithLabelValues("failed").Inc()
	} else {
		svc.sent.WithLabelValues("sent").Inc()
	}
	return err
}

func (svc *countingEmailService) SendMessages(messages ...*core.EmailMessage) {
	svc.sent.WithLabelValues("queued").Add(float64(len(messages)))
	svc.EmailService.SendMessages(messages...)
}
