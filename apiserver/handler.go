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
	"errors"
	"fmt"
	"net/http"

	"github.com/czcorpus/cnc-gokit/unireq"
	"github.com/czcorpus/cnc-gokit/uniresp"
	"github.com/ebma/tricklestat/eval"
	"github.com/ebma/tricklestat/index"
	"github.com/ebma/tricklestat/record"
	"github.com/ebma/tricklestat/stats"
	"github.com/gin-gonic/gin"
)

func (api *apiServer) dimensions(ctx *gin.Context) []string {
	dims := ctx.QueryArray("dim")
	if len(dims) == 0 {
		return api.conf.Dimensions
	}
	return dims
}

func (api *apiServer) handleVersion(ctx *gin.Context) {
	uniresp.WriteJSONResponse(ctx.Writer, api.version)
}

func (api *apiServer) handleRates(ctx *gin.Context) {
	ev := &eval.Evaluator{
		Estimator:  api.estimator,
		Dimensions: api.dimensions(ctx),
	}
	// each request annotates its own copy of targets
	targets := record.CloneTargets(api.corpus.Targets)
	res, err := ev.Run(ctx.Request.Context(), api.eavesMessages, targets)
	if errors.Is(err, index.ErrMissingAttribute) {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusUnprocessableEntity)
		return

	} else if err != nil {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusInternalServerError)
		return
	}
	uniresp.WriteJSONResponse(ctx.Writer, res)
}

func (api *apiServer) handleMetrics(ctx *gin.Context) {
	replaceOutliers, ok := unireq.GetURLBoolArgOrFail(ctx, "filterOutliers", false)
	if !ok {
		return
	}
	filter := stats.MetricFilter{
		Name:            ctx.Param("name"),
		NodeType:        ctx.Query("nodeType"),
		ReplaceOutliers: replaceOutliers,
	}
	dims := api.dimensions(ctx)
	summaries, err := stats.Summarize(api.corpus.Metrics, filter, dims...)
	if errors.Is(err, index.ErrMissingAttribute) {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusUnprocessableEntity)
		return

	} else if err != nil {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusInternalServerError)
		return
	}
	if len(summaries) == 0 {
		uniresp.RespondWithErrorJSON(
			ctx, fmt.Errorf("no values found for metric %s", filter.Name), http.StatusNotFound)
		return
	}
	uniresp.WriteJSONResponse(
		ctx.Writer,
		metricsResponse{
			Metric:     filter.Name,
			NodeType:   filter.NodeType,
			Dimensions: dims,
			Summaries:  summaries,
		},
	)
}

func (api *apiServer) handleOverview(ctx *gin.Context) {
	uniresp.WriteJSONResponse(
		ctx.Writer,
		overviewResponse{
			NumTargets:  len(api.corpus.Targets),
			NumMessages: len(api.eavesMessages),
			Entries:     stats.Overview(api.corpus.Targets),
		},
	)
}
