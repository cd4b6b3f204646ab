package stf

import (
	"github.com/jamcore/jamcore/block"
	"github.com/jamcore/jamcore/config"
	"github.com/jamcore/jamcore/log"
	"github.com/jamcore/jamcore/state"
	"github.com/jamcore/jamcore/stats"
)

// StatisticsStage updates π's per-validator counters: one block-produced
// credit for the block's author, and one ticket-published credit per
// ticket envelope in the block's extrinsic, attributed to the author since
// the STF treats ring-signature attribution as an external collaborator
// (same boundary SafroleStage's deriveTicketId documents). Grounded on the
// teacher's per-validator counter-increment pattern used for attestation
// participation accounting (consensus/attestation.go).
type StatisticsStage struct {
	Log     *log.Logger
	Metrics *stats.Collector
}

func (s *StatisticsStage) Name() string { return "statistics" }

func (s *StatisticsStage) Apply(ov *state.Overlay, blk *block.Block, cfg *config.Config) error {
	pi := ov.MutPi()

	author := blk.Header.AuthorIndex
	entry := pi.Validators[author]
	entry.BlocksProduced++
	entry.TicketsPublished += uint32(len(blk.Extrinsic.Tickets))
	pi.Validators[author] = entry

	if s.Metrics != nil {
		s.Metrics.IncrCounter("blocks_produced_total", 1, nil)
		s.Metrics.RecordGauge("tickets_published_total", float64(entry.TicketsPublished), nil)
	}
	s.Log.Debug("statistics updated", "author", author, "blocks_produced", entry.BlocksProduced)
	return nil
}
