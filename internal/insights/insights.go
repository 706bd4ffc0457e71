// Package insights reads pre-aggregated analysis rows from the warehouse
// output table. Rows are written by an external pipeline; this service
// only serves them to the dashboard.
package insights

import (
	"context"
	"strings"
	"time"

	"github.com/adboardhq/adboard/internal/db/models"
	"gorm.io/gorm"
)

// Insight is one analysis row as served to the dashboard.
type Insight struct {
	ID           int64     `json:"id"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"createdAt"`
	CampaignName string    `json:"campaignName,omitempty"`
}

// List returns all insights, newest first.
func List(ctx context.Context, db *gorm.DB) ([]Insight, error) {
	var rows []models.Insight
	if err := db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Insight, 0, len(rows))
	for _, row := range rows {
		out = append(out, Insight{ID: row.ID, Content: row.Output, CreatedAt: row.CreatedAt})
	}
	return out, nil
}

// ForCampaign returns the newest insight mentioning the campaign name,
// falling back to the newest insight overall, or nil when the table is
// empty. The pipeline writes free-form text, so mention matching is the
// only join available.
func ForCampaign(ctx context.Context, db *gorm.DB, campaignName string) (*Insight, error) {
	var rows []models.Insight
	if err := db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	pick := rows[0]
	for _, row := range rows {
		if strings.Contains(row.Output, campaignName) {
			pick = row
			break
		}
	}
	return &Insight{
		ID:           pick.ID,
		Content:      pick.Output,
		CreatedAt:    pick.CreatedAt,
		CampaignName: campaignName,
	}, nil
}
