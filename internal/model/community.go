package model

import "time"

// CommunityStatsID keys the single community-wide aggregate row.
const CommunityStatsID = "global"

// CommunityStats holds the community-wide counters. TotalTreesPlanted is a
// count of approved submissions, deliberately decoupled from point math:
// admin point edits move TotalClickPoints but never this counter.
type CommunityStats struct {
	ID                string    `gorm:"size:32;primaryKey" json:"id"`
	TotalClickPoints  int       `gorm:"not null;default:0" json:"total_click_points"`
	TotalTreesPlanted int       `gorm:"not null;default:0" json:"total_trees_planted"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
