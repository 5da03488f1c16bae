package dto

import "clickbag.eco/backend/internal/model"

// SubmissionInput carries the multipart form fields next to the photo.
type SubmissionInput struct {
	Latitude  *float64 `form:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `form:"longitude" binding:"omitempty,gte=-180,lte=180"`
}

// SubmissionResult distinguishes processed-and-rejected from
// could-not-process: gate denials, duplicates and AI rejections come back
// here with IsValid=false, while hard faults surface as errors. Callers
// branch on IsValid, never on an error.
type SubmissionResult struct {
	IsValid     bool              `json:"is_valid"`
	ClickPoints int               `json:"click_points"`
	Reason      string            `json:"reason"`
	Submission  *model.Submission `json:"submission,omitempty"`
}

type ProfileResponse struct {
	User           *model.User `json:"user"`
	MaxTrees       int         `json:"max_trees"`
	RemainingTrees int         `json:"remaining_trees"`
}
