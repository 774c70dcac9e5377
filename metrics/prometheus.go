// Copyright (C) 2023 Gobalsky Labs Limited
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package metrics

import (
	"net/http"
	"sync"
	"time"

	"code.vegaprotocol.io/pairbook/libs/num"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Gauge ...
	Gauge instrument = iota
	// Counter ...
	Counter
	// Histogram ...
	Histogram
)

const namespace = "pairbook"

var (
	// ErrInstrumentNotSupported signals the specified instrument is not yet supported
	ErrInstrumentNotSupported = errors.New("instrument type unsupported")
	// ErrInstrumentTypeMismatch signal the type of the instrument is not expected
	ErrInstrumentTypeMismatch = errors.New("instrument is not of the expected type")
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry

	engineTime    *prometheus.HistogramVec
	orderCounter  *prometheus.CounterVec
	orderGauge    *prometheus.GaugeVec
	tradeCounter  prometheus.Counter
	tradedVolume  *prometheus.CounterVec
	eventsCounter *prometheus.CounterVec
	// Call counters for each request type of the REST API
	apiRequestCallCounter *prometheus.CounterVec
	// Total time counters for each request type of the REST API
	apiRequestTimeCounter *prometheus.CounterVec
)

// abstract prometheus types
type instrument int

// combine all possible prometheus options + way to differentiate between regular or vector type
type instrumentOpts struct {
	opts    prometheus.Opts
	buckets []float64
	vectors []string
}

type mi struct {
	gaugeV     *prometheus.GaugeVec
	counterV   *prometheus.CounterVec
	counter    prometheus.Counter
	histogramV *prometheus.HistogramVec
}

// InstrumentOption - vararg for instrument options setting
type InstrumentOption func(o *instrumentOpts)

// Vectors - configuration used to create a vector of a given interface, slice of label names
func Vectors(labels ...string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.vectors = labels
	}
}

// Help - set the help field on instrument
func Help(help string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.opts.Help = help
	}
}

// Buckets - buckets used for histogram
func Buckets(b []float64) InstrumentOption {
	return func(o *instrumentOpts) {
		o.buckets = b
	}
}

// addInstrument configures a new instrument and registers it on reg.
func addInstrument(reg prometheus.Registerer, t instrument, name string, opts ...InstrumentOption) (*mi, error) {
	var col prometheus.Collector
	ret := mi{}
	opt := instrumentOpts{
		opts: prometheus.Opts{
			Namespace: namespace,
			Name:      name,
		},
	}
	for _, o := range opts {
		o(&opt)
	}
	switch t {
	case Gauge:
		ret.gaugeV = prometheus.NewGaugeVec(prometheus.GaugeOpts(opt.opts), opt.vectors)
		col = ret.gaugeV
	case Counter:
		o := prometheus.CounterOpts(opt.opts)
		if len(opt.vectors) == 0 {
			ret.counter = prometheus.NewCounter(o)
			col = ret.counter
		} else {
			ret.counterV = prometheus.NewCounterVec(o, opt.vectors)
			col = ret.counterV
		}
	case Histogram:
		ret.histogramV = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opt.opts.Namespace,
			Name:      opt.opts.Name,
			Help:      opt.opts.Help,
			Buckets:   opt.buckets,
		}, opt.vectors)
		col = ret.histogramV
	default:
		return nil, ErrInstrumentNotSupported
	}
	if err := reg.Register(col); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (m mi) GaugeVec() (*prometheus.GaugeVec, error) {
	if m.gaugeV == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.gaugeV, nil
}

func (m mi) Counter() (prometheus.Counter, error) {
	if m.counter == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.counter, nil
}

func (m mi) CounterVec() (*prometheus.CounterVec, error) {
	if m.counterV == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.counterV, nil
}

func (m mi) HistogramVec() (*prometheus.HistogramVec, error) {
	if m.histogramV == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.histogramV, nil
}

// Start sets up the instruments when metrics are enabled. Until then every
// update helper is a no-op.
func Start(conf Config) error {
	if !conf.Enabled {
		return nil
	}
	return Setup()
}

// Setup creates a fresh registry holding every instrument.
func Setup() error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return err
	}

	h, err := addInstrument(reg, Histogram, "engine_seconds",
		Vectors("fn"),
		Buckets(prometheus.ExponentialBuckets(0.00001, 4, 10)),
		Help("Time spent in the matching engine per operation"),
	)
	if err != nil {
		return err
	}
	et, err := h.HistogramVec()
	if err != nil {
		return err
	}

	h, err = addInstrument(reg, Counter, "orders_total",
		Vectors("side", "outcome"),
		Help("Number of orders processed"),
	)
	if err != nil {
		return err
	}
	ot, err := h.CounterVec()
	if err != nil {
		return err
	}

	h, err = addInstrument(reg, Gauge, "orders",
		Vectors("side"),
		Help("Number of orders resting on the ledger"),
	)
	if err != nil {
		return err
	}
	og, err := h.GaugeVec()
	if err != nil {
		return err
	}

	h, err = addInstrument(reg, Counter, "trades_total",
		Help("Number of trades executed"),
	)
	if err != nil {
		return err
	}
	tc, err := h.Counter()
	if err != nil {
		return err
	}

	h, err = addInstrument(reg, Counter, "traded_volume_total",
		Vectors("asset"),
		Help("Amount of each asset exchanged by trades, in base units"),
	)
	if err != nil {
		return err
	}
	tv, err := h.CounterVec()
	if err != nil {
		return err
	}

	h, err = addInstrument(reg, Counter, "events_total",
		Vectors("sink", "outcome"),
		Help("Number of events handed to each sink"),
	)
	if err != nil {
		return err
	}
	ec, err := h.CounterVec()
	if err != nil {
		return err
	}

	h, err = addInstrument(reg, Counter, "request_count_total",
		Vectors("apiType", "requestType"),
		Help("Count of API requests"),
	)
	if err != nil {
		return err
	}
	rc, err := h.CounterVec()
	if err != nil {
		return err
	}

	h, err = addInstrument(reg, Counter, "request_time_total",
		Vectors("apiType", "requestType"),
		Help("Total time spent in each API request"),
	)
	if err != nil {
		return err
	}
	rt, err := h.CounterVec()
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	registry = reg
	engineTime, orderCounter, orderGauge = et, ot, og
	tradeCounter, tradedVolume, eventsCounter = tc, tv, ec
	apiRequestCallCounter, apiRequestTimeCounter = rc, rt
	return nil
}

// Handler serves the registry in the prometheus text format.
func Handler() http.Handler {
	mu.RLock()
	defer mu.RUnlock()
	if registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry, nil until Setup ran.
func Gatherer() prometheus.Gatherer {
	mu.RLock()
	defer mu.RUnlock()
	if registry == nil {
		return nil
	}
	return registry
}

// EngineTimeObserve records the time an engine operation took.
func EngineTimeObserve(fn string, start time.Time) {
	mu.RLock()
	defer mu.RUnlock()
	if engineTime == nil {
		return
	}
	engineTime.WithLabelValues(fn).Observe(time.Since(start).Seconds())
}

// OrderCounterInc increments the order counter
func OrderCounterInc(side, outcome string) {
	mu.RLock()
	defer mu.RUnlock()
	if orderCounter == nil {
		return
	}
	orderCounter.WithLabelValues(side, outcome).Inc()
}

// OrderGaugeSet sets the number of resting orders of a side.
func OrderGaugeSet(side string, n int) {
	mu.RLock()
	defer mu.RUnlock()
	if orderGauge == nil {
		return
	}
	orderGauge.WithLabelValues(side).Set(float64(n))
}

// TradeCounterAdd counts executed trades.
func TradeCounterAdd(n int) {
	mu.RLock()
	defer mu.RUnlock()
	if tradeCounter == nil {
		return
	}
	tradeCounter.Add(float64(n))
}

// TradedVolumeAdd accumulates the amount of an asset moved by trades. The
// counter is a float so very large amounts lose precision.
func TradedVolumeAdd(asset string, amount *num.Uint) {
	mu.RLock()
	defer mu.RUnlock()
	if tradedVolume == nil || amount == nil {
		return
	}
	tradedVolume.WithLabelValues(asset).Add(num.DecimalFromUint(amount).InexactFloat64())
}

// EventsCounterInc counts events handed to a sink.
func EventsCounterInc(sink, outcome string) {
	mu.RLock()
	defer mu.RUnlock()
	if eventsCounter == nil {
		return
	}
	eventsCounter.WithLabelValues(sink, outcome).Inc()
}

// APIRequestAndTimeREST updates the metrics for REST API calls
func APIRequestAndTimeREST(request string, time float64) {
	mu.RLock()
	defer mu.RUnlock()
	if apiRequestCallCounter == nil || apiRequestTimeCounter == nil {
		return
	}
	apiRequestCallCounter.WithLabelValues("REST", request).Inc()
	apiRequestTimeCounter.WithLabelValues("REST", request).Add(time)
}
