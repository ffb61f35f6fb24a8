// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/profiler"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Company-KERL/Kerl/backend"
	"github.com/Company-KERL/Kerl/catalog"
	"github.com/Company-KERL/Kerl/checkout"
	"github.com/Company-KERL/Kerl/config"
)

const (
	cookieMaxAge = 60 * 60 * 48

	cookiePrefix    = "shop_"
	cookieSessionID = cookiePrefix + "session-id"
)

type ctxKeySessionID struct{}

type frontendServer struct {
	cfg config.Config

	backend  *backend.Client
	catalog  *catalog.Service
	checkout *checkout.Coordinator
	bridge   *checkout.Bridge
	shoppers *shopperRegistry
}

func main() {
	ctx := context.Background()
	log := logrus.New()
	log.Level = logrus.DebugLevel
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}
	log.Out = os.Stdout

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if lvl, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		log.Level = lvl
	} else {
		log.Warnf("unknown log level %q, keeping %s", cfg.Log.Level, log.Level)
	}
	if cfg.Log.File != "" {
		log.Out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
			Compress:   true,
		})
	}

	// Amounts go to the browser as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{}))

	if cfg.Telemetry.Tracing {
		log.Info("Tracing enabled.")
		if tp, err := initTracing(log, ctx); err == nil {
			defer tp.Shutdown(ctx)
		}
	} else {
		log.Info("Tracing disabled.")
	}

	if cfg.Telemetry.Profiler {
		log.Info("Profiling enabled.")
		go initProfiling(log, cfg.App.Name, cfg.App.Version)
	} else {
		log.Info("Profiling disabled.")
	}

	httpClient := &http.Client{
		Timeout:   cfg.Backend.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	var cache catalog.Cache
	if cfg.Catalog.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Catalog.RedisAddr,
			Password: cfg.Catalog.RedisPassword,
		})
		defer rdb.Close()
		cache = catalog.NewRedisCache(rdb, cfg.Catalog.TTL)
		log.Infof("caching catalog in redis at %s", cfg.Catalog.RedisAddr)
	}

	svc := newFrontendServer(cfg, httpClient, cache, log)
	log.Infof("using backend at %s", cfg.Backend.URI)
	log.Infof("starting server on %s", cfg.Addr())
	log.Fatal(http.ListenAndServe(cfg.Addr(), svc.handler(log)))
}

func newFrontendServer(cfg config.Config, httpClient *http.Client, cache catalog.Cache, log *logrus.Logger) *frontendServer {
	be := backend.New(cfg.Backend.URI, httpClient)
	bridge := checkout.NewBridge(log)
	return &frontendServer{
		cfg:     cfg,
		backend: be,
		catalog: catalog.NewService(be, cache, log),
		bridge:  bridge,
		checkout: checkout.New(be, bridge, checkout.Options{
			Key:             cfg.Payment.Key,
			Currency:        cfg.Payment.Currency,
			Theme:           cfg.Payment.Theme,
			MinorUnitFactor: cfg.Payment.MinorUnitFactor,
			WidgetTimeout:   cfg.Payment.WidgetTimeout,
		}, log),
		shoppers: newShopperRegistry(cfg.Sessions.Max, cfg.Sessions.IdleTTL, be, log),
	}
}

func (fe *frontendServer) handler(log *logrus.Logger) http.Handler {
	baseUrl := fe.cfg.App.BaseURL

	r := mux.NewRouter()
	r.Use(metricsMiddleware)

	api := r.PathPrefix(baseUrl + "/api").Subrouter()
	api.HandleFunc("/products", fe.productsHandler).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/products/{id}", fe.productHandler).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/session", fe.sessionHandler).Methods(http.MethodGet)
	api.HandleFunc("/login", fe.loginHandler).Methods(http.MethodPost)
	api.HandleFunc("/signup", fe.signupHandler).Methods(http.MethodPost)
	api.HandleFunc("/logout", fe.logoutHandler).Methods(http.MethodPost)
	api.HandleFunc("/profile", fe.profileHandler).Methods(http.MethodPut)
	api.HandleFunc("/cart", fe.viewCartHandler).Methods(http.MethodGet)
	api.HandleFunc("/cart", fe.addToCartHandler).Methods(http.MethodPost)
	api.HandleFunc("/cart/count", fe.cartCountHandler).Methods(http.MethodGet)
	api.HandleFunc("/cart/items/{index:[0-9]+}", fe.updateCartItemHandler).Methods(http.MethodPut)
	api.HandleFunc("/cart/items/{index:[0-9]+}", fe.removeCartItemHandler).Methods(http.MethodDelete)
	api.HandleFunc("/addresses", fe.addressesHandler).Methods(http.MethodGet)
	api.HandleFunc("/checkout", fe.placeOrderHandler).Methods(http.MethodPost)
	api.HandleFunc("/checkout", fe.checkoutStatusHandler).Methods(http.MethodGet)
	api.HandleFunc("/checkout/callback", fe.paymentCallbackHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders", fe.orderHistoryHandler).Methods(http.MethodGet)

	r.Handle(baseUrl+"/metrics", promhttp.Handler())
	r.HandleFunc(baseUrl+"/robots.txt", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "User-agent: *\nDisallow: /") })
	r.HandleFunc(baseUrl+"/_healthz", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "ok") })

	var handler http.Handler = r
	handler = forwardBackendCookies(handler)           // pass backend session through
	handler = &logHandler{log: log, next: handler}     // add logging
	handler = ensureSessionID(handler)                 // add session ID
	handler = otelhttp.NewHandler(handler, "frontend") // add OTel tracing
	return handler
}

func initTracing(log logrus.FieldLogger, ctx context.Context) (*sdktrace.TracerProvider, error) {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(tp)
	log.Info("Tracing provider initialized (no exporter configured)")
	return tp, nil
}

func initProfiling(log logrus.FieldLogger, service, version string) {
	for i := 1; i <= 3; i++ {
		log = log.WithField("retry", i)
		if err := profiler.Start(profiler.Config{
			Service:        service,
			ServiceVersion: version,
		}); err != nil {
			log.Warnf("warn: failed to start profiler: %+v", err)
		} else {
			log.Info("started Stackdriver profiler")
			return
		}
		d := time.Second * 10 * time.Duration(i)
		log.Debugf("sleeping %v to retry initializing Stackdriver profiler", d)
		time.Sleep(d)
	}
	log.Warn("warning: could not initialize Stackdriver profiler after retrying, giving up")
}
