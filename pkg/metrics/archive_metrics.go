// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	archiveMetricSubsystem = "engine"
)

var (
	archiveMetricsRegisterOnce sync.Once

	ArchiveOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: archiveNamespace,
			Subsystem: archiveMetricSubsystem,
			Name:      "operations_total",
			Help:      "count of documents saved or loaded",
		}, []string{formatLabelName, directionLabelName, statusLabelName})

	ArchiveLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: archiveNamespace,
			Subsystem: archiveMetricSubsystem,
			Name:      "latency",
			Help:      "latency of a whole save or load in milliseconds",
			Buckets:   buckets,
		}, []string{formatLabelName, directionLabelName})

	ArchiveDocumentBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: archiveNamespace,
			Subsystem: archiveMetricSubsystem,
			Name:      "document_bytes",
			Help:      "size of saved or loaded documents",
			Buckets:   sizeBuckets,
		}, []string{formatLabelName, directionLabelName})

	ArchiveStrategyResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: archiveNamespace,
			Subsystem: archiveMetricSubsystem,
			Name:      "strategy_resolutions_total",
			Help:      "count of compiled type plans by chosen strategy",
		}, []string{strategyLabelName, directionLabelName})
)

// RegisterArchiveMetrics registers the engine metrics once.
func RegisterArchiveMetrics(r prometheus.Registerer) {
	archiveMetricsRegisterOnce.Do(func() {
		r.MustRegister(ArchiveOperations)
		r.MustRegister(ArchiveLatency)
		r.MustRegister(ArchiveDocumentBytes)
		r.MustRegister(ArchiveStrategyResolutions)
	})
}
