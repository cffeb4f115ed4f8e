package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"fundwatch/internal/marketdata"
	"fundwatch/internal/models"
)

// syncNAVs pulls the latest published NAV for every monitored fund and
// upserts it into the timeseries. One bad fund never aborts the batch.
func (s *Scheduler) syncNAVs(ctx context.Context) error {
	if len(s.MonitoredFunds) == 0 {
		return errors.New("no monitored funds configured")
	}

	synced := 0
	for _, fundCode := range s.MonitoredFunds {
		if err := s.syncOne(ctx, fundCode); err != nil {
			if s.Logger != nil {
				s.Logger.Warn("nav sync failed for fund",
					zap.String("fund_code", fundCode),
					zap.Error(err),
				)
			}
			continue
		}
		synced++
	}

	if s.Logger != nil {
		s.Logger.Info("nav sync finished",
			zap.Int("synced", synced),
			zap.Int("total", len(s.MonitoredFunds)),
		)
	}
	if synced == 0 {
		return fmt.Errorf("nav sync: 0/%d funds synced", len(s.MonitoredFunds))
	}
	return nil
}

func (s *Scheduler) syncOne(ctx context.Context, fundCode string) error {
	nav, err := s.Provider.FetchLatestNAV(ctx, fundCode)
	if err != nil {
		return err
	}
	row, err := navToRow(nav)
	if err != nil {
		return err
	}
	return s.Repo.UpsertFundNAV(ctx, row)
}

func navToRow(nav *marketdata.NAV) (*models.FundNAV, error) {
	flags, err := json.Marshal(nav.QualityFlags)
	if err != nil {
		return nil, fmt.Errorf("marshal quality flags: %w", err)
	}
	return &models.FundNAV{
		FundCode:      nav.FundCode,
		NavDate:       nav.NavDate,
		Nav:           nav.Nav,
		AccNav:        nav.AccNav,
		DailyPct:      nav.DailyPct,
		DataSource:    nav.Source,
		LastUpdatedAt: nav.LastUpdatedAt,
		QualityFlags:  datatypes.JSON(flags),
	}, nil
}
