package host

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ascendfaiss/vectorengine/device"
	"github.com/ascendfaiss/vectorengine/metrics"
	"github.com/ascendfaiss/vectorengine/quantizer"
	"github.com/ascendfaiss/vectorengine/verrors"
)

// SearchFanoutPool bounds how many devices' search tasks run
// concurrently; spec.md §5 sizes the orchestrator's thread pool to the
// device list, so in practice this is just len(devices), but the cap
// keeps a pathologically large device list from spawning unbounded
// goroutines.
const SearchFanoutPool = 64

// DeviceSearcher is one device's search entry point, as wired by a
// specific index variant in package index. It returns, per query, the
// device-local top-k already translated to user ids.
type DeviceSearcher func(ctx context.Context, queries []float32, n, k int) ([][]device.Entry, error)

// Orchestrator coordinates a fixed list of devices for one index.
type Orchestrator struct {
	devices []DeviceSearcher
	metric  device.Metric
}

// NewOrchestrator configures an orchestrator over a device list and
// the index's metric (spec.md §4.7 "configured with a device list and
// a per-device resource cap" — the resource cap itself is each
// device's own StackArena, owned by package device/devmem, not
// duplicated here).
func NewOrchestrator(devices []DeviceSearcher, metric device.Metric) *Orchestrator {
	return &Orchestrator{devices: devices, metric: metric}
}

// Search fans the batch out to every device in parallel (one task per
// device), then merges the per-device top-k results into the global
// top-k, per spec.md §4.7.
func (o *Orchestrator) Search(ctx context.Context, queries []float32, n, dim, k int) ([][]device.Entry, error) {
	if n == 0 {
		return nil, nil
	}
	perDevice := make([][][]device.Entry, len(o.devices))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(SearchFanoutPool)

	for d := range o.devices {
		d := d
		label := strconv.Itoa(d)
		metrics.TopKQueueDepth.WithLabelValues(label).Inc()
		g.Go(func() error {
			defer metrics.TopKQueueDepth.WithLabelValues(label).Dec()
			start := time.Now()
			result, err := o.devices[d](gctx, queries, n, k)
			metrics.SearchFanoutLatency.WithLabelValues(label).Observe(time.Since(start).Seconds())
			if err != nil {
				return verrors.Wrap(verrors.TransportFailure, "host.Orchestrator.Search", err)
			}
			perDevice[d] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return MergeDevices(perDevice, n, k, o.metric), nil
}

// TrainCoarseCentroids runs the host-side k-means delegation of
// spec.md §4.7: subsample to at most MaxPointsPerCentroid*k1 vectors,
// then k-means++ / Lloyd to convergence. The caller is responsible for
// pushing the resulting centroids to every device — that push is a
// variant-specific RPC (CREATE_INDEX_* / INDEX_IVF_UPDATE_COARSE_CENT)
// wired in package index, not a concern of the orchestrator itself.
func TrainCoarseCentroids(x []float32, n, dim, k1 int, seed int64) (*quantizer.KMeansResult, error) {
	sub, subN := quantizer.Subsample(x, n, dim, k1, seed)
	cfg := quantizer.DefaultKMeansConfig(k1, dim)
	cfg.Seed = seed
	return quantizer.Train(cfg, sub, subN)
}
