package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"importscout/internal/research"
)

// StageOpportunity is the job-only stage tag for the terminal synthesis.
// Unlike the data stages it never carries a payload beyond the session.
const StageOpportunity = "opportunity"

// RunStage decodes a queued job payload and executes the matching stage.
// The report is discarded; job consumers only care about success.
func (s *Service) RunStage(ctx context.Context, job *research.Job) error {
	params := []byte(job.ParamsJSON)
	if len(params) == 0 {
		params = []byte("{}")
	}

	switch job.Stage {
	case research.StageSourcing:
		var in SourcingInput
		if err := json.Unmarshal(params, &in); err != nil {
			return fmt.Errorf("decode sourcing params: %w", err)
		}
		in.SessionID = job.SessionID
		_, err := s.RunSourcing(ctx, in)
		return err

	case research.StageTrends:
		var in TrendsInput
		if err := json.Unmarshal(params, &in); err != nil {
			return fmt.Errorf("decode trends params: %w", err)
		}
		in.SessionID = job.SessionID
		_, err := s.RunTrends(ctx, in)
		return err

	case research.StageRegulation:
		var in RegulationInput
		if err := json.Unmarshal(params, &in); err != nil {
			return fmt.Errorf("decode regulation params: %w", err)
		}
		in.SessionID = job.SessionID
		_, err := s.RunRegulation(ctx, in)
		return err

	case research.StageImpositive:
		var in ImpositiveInput
		if err := json.Unmarshal(params, &in); err != nil {
			return fmt.Errorf("decode impositive params: %w", err)
		}
		in.SessionID = job.SessionID
		_, err := s.RunImpositive(ctx, in)
		return err

	case research.StageMarket:
		var in MarketInput
		if err := json.Unmarshal(params, &in); err != nil {
			return fmt.Errorf("decode market params: %w", err)
		}
		in.SessionID = job.SessionID
		_, err := s.RunMarket(ctx, in)
		return err

	case StageOpportunity:
		_, err := s.SynthesizeOpportunity(ctx, job.SessionID)
		return err
	}
	return fmt.Errorf("pipeline: unknown stage %q", job.Stage)
}
