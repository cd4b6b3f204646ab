package stf

import (
	"github.com/jamcore/jamcore/block"
	"github.com/jamcore/jamcore/config"
	"github.com/jamcore/jamcore/crypto"
	"github.com/jamcore/jamcore/log"
	"github.com/jamcore/jamcore/stats"
	"github.com/jamcore/jamcore/state"
)

// Stage is one step of the fixed-order pipeline. Implementations mutate ov
// in place via its Mut*/Set* accessors. A stage that returns an error may
// already have written to ov; Overlay's copy-on-write discipline keeps the
// base state untouched, so the caller discards ov on error.
type Stage interface {
	Name() string
	Apply(ov *state.Overlay, blk *block.Block, cfg *config.Config) error
}

// Pipeline is the fixed-order list of stages the importer runs for every
// block: disputes, safrole, assurances, reports, preimages, accumulation,
// statistics (spec.md §4.6). It defaults safrole's VRF and ring verifiers
// to the fail-closed Null implementations; callers that need a block's
// seal and tickets to actually verify should use PipelineWithVerifiers.
func Pipeline(logger *log.Logger, metrics *stats.Collector) []Stage {
	return PipelineWithVerifiers(logger, metrics, crypto.NullVrfVerifier{}, crypto.NullRingVerifier{})
}

// PipelineWithVerifiers builds the same fixed-order pipeline as Pipeline,
// wiring the given VRF and ring-signature verifiers into the safrole
// stage for seal and ticket verification.
func PipelineWithVerifiers(logger *log.Logger, metrics *stats.Collector, vrf crypto.VrfVerifier, ring crypto.RingVerifier) []Stage {
	return []Stage{
		&DisputesStage{Log: logger.With("stage", "disputes")},
		&SafroleStage{Log: logger.With("stage", "safrole"), Vrf: vrf, Ring: ring},
		&AssurancesStage{Log: logger.With("stage", "assurances")},
		&ReportsStage{Log: logger.With("stage", "reports")},
		&PreimagesStage{Log: logger.With("stage", "preimages")},
		&AccumulationStage{Log: logger.With("stage", "accumulation"), Metrics: metrics},
		&StatisticsStage{Log: logger.With("stage", "statistics"), Metrics: metrics},
	}
}

// Run applies every stage in order against ov, stopping at the first
// error.
func Run(stages []Stage, ov *state.Overlay, blk *block.Block, cfg *config.Config) error {
	for _, stage := range stages {
		if err := stage.Apply(ov, blk, cfg); err != nil {
			return err
		}
	}
	return nil
}
