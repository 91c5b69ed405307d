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
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// archiveNamespace is the namespace of every metric of this project.
	archiveNamespace = "archive"

	formatLabelName    = "format"
	directionLabelName = "direction"
	statusLabelName    = "status"
	strategyLabelName  = "strategy"

	SuccessLabel = "success"
	FailLabel    = "fail"
)

var (
	// buckets involves durations in milliseconds,
	// [0.05 0.1 0.2 0.4 0.8 1.6 3.2 6.4 12.8 25.6 51.2 102.4 204.8 409.6 819.2 1638.4]
	buckets = prometheus.ExponentialBuckets(0.05, 2, 16)

	// sizeBuckets involves document sizes in bytes, 64B up to 64MB.
	sizeBuckets = prometheus.ExponentialBuckets(64, 4, 11)

	metricRegisterer prometheus.Registerer
)

// GetRegisterer returns the global prometheus registerer, or
// prometheus.DefaultRegisterer when Register was never called.
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register registers every metric of this package on r.
func Register(r prometheus.Registerer) {
	RegisterArchiveMetrics(r)
	metricRegisterer = r
}
