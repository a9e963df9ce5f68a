// Copyright 2025 The tricklestat authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/czcorpus/cnc-gokit/uniresp"
	"github.com/ebma/tricklestat/cnf"
	"github.com/ebma/tricklestat/dataimport"
	"github.com/ebma/tricklestat/eval"
	"github.com/ebma/tricklestat/eval/predict"
	"github.com/ebma/tricklestat/record"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// -----

type apiServer struct {
	conf      *cnf.Conf
	server    *http.Server
	version   cnf.VersionInfo
	corpus    *dataimport.Corpus
	estimator predict.Estimator

	// eavesMessages are corpus messages observed by eavesdroppers.
	// They are shared by all requests and never modified.
	eavesMessages []*record.MessageRecord
}

func newAPIServer(conf *cnf.Conf, corpus *dataimport.Corpus, version cnf.VersionInfo) (*apiServer, error) {
	est, err := predict.GetEstimator(conf.Estimator)
	if err != nil {
		return nil, fmt.Errorf("failed to create API server: %w", err)
	}
	filter, err := eval.GetEavesdropperFilter(conf.EavesdropperFilter, corpus.Nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to create API server: %w", err)
	}
	return &apiServer{
		conf:          conf,
		version:       version,
		corpus:        corpus,
		estimator:     est,
		eavesMessages: eval.EavesdropperMessages(corpus.Messages, filter),
	}, nil
}

func (api *apiServer) newEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logging.GinMiddleware())
	engine.Use(uniresp.AlwaysJSONContentType())
	engine.Use(corsMiddleware(api.conf))
	engine.NoMethod(uniresp.NoMethodHandler)
	engine.NoRoute(uniresp.NotFoundHandler)

	engine.GET("/version", api.handleVersion)
	engine.GET("/rates", api.handleRates)
	engine.GET("/metrics/:name", api.handleMetrics)
	engine.GET("/overview", api.handleOverview)
	return engine
}

func (api *apiServer) Start(ctx context.Context) {
	if !api.conf.Logging.Level.IsDebugMode() {
		gin.SetMode(gin.ReleaseMode)
	}
	log.Info().Msgf("starting to listen at %s:%d", api.conf.ListenAddress, api.conf.ListenPort)
	api.server = &http.Server{
		Handler:      api.newEngine(),
		Addr:         fmt.Sprintf("%s:%d", api.conf.ListenAddress, api.conf.ListenPort),
		WriteTimeout: time.Duration(api.conf.ServerWriteTimeoutSecs) * time.Second,
		ReadTimeout:  time.Duration(api.conf.ServerReadTimeoutSecs) * time.Second,
	}
	go func() {
		if err := api.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()
}

func (api *apiServer) Stop(ctx context.Context) error {
	log.Warn().Msg("shutting down tricklestat HTTP API server")
	return api.server.Shutdown(ctx)
}

// -------------------------

// Run serves the corpus until the context is cancelled
func Run(
	ctx context.Context,
	conf *cnf.Conf,
	corpus *dataimport.Corpus,
	version cnf.VersionInfo,
) error {
	server, err := newAPIServer(conf, corpus, version)
	if err != nil {
		return err
	}
	log.Info().
		Int("eavesdropperMessages", len(server.eavesMessages)).
		Int("targets", len(corpus.Targets)).
		Msg("corpus ready")

	services := []service{server}
	for _, m := range services {
		m.Start(ctx)
	}
	<-ctx.Done()
	log.Warn().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for _, s := range services {
		wg.Add(1)
		go func(srv service) {
			defer wg.Done()
			if err := srv.Stop(shutdownCtx); err != nil {
				log.Error().Err(err).Type("service", srv).Msg("Error shutting down service")
			}
		}(s)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("Graceful shutdown completed")
	case <-shutdownCtx.Done():
		log.Warn().Msg("Shutdown timed out")
	}
	return nil
}
