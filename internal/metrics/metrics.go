// Package metrics exposes the Prometheus collectors for the frame
// pipeline. Everything is registered on the default registry and served
// from the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesDecoded counts completed frame cache fills.
	FramesDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "isis_frames_decoded_total",
		Help: "Number of frames decoded into the frame cache",
	})

	// FrameBytes counts bytes copied out of volume buffers.
	FrameBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "isis_frame_bytes_total",
		Help: "Bytes copied from volume buffers into cached frames",
	})

	// DecodeDuration observes per-frame cache fill latency.
	DecodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "isis_frame_decode_seconds",
		Help:    "Frame decode and VOI computation duration",
		Buckets: prometheus.DefBuckets,
	})

	// FramesRendered counts produced display images.
	FramesRendered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "isis_frames_rendered_total",
		Help: "Number of display images produced by the renderer",
	})

	// IngestedFiles counts ingestion attempts by outcome.
	IngestedFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "isis_ingested_files_total",
		Help: "Number of ingested DICOM files by outcome",
	}, []string{"status"})

	// RenderCache counts rendered-image cache lookups by outcome.
	RenderCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "isis_render_cache_lookups_total",
		Help: "Rendered image cache lookups by outcome",
	}, []string{"outcome"})
)
