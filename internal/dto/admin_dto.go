package dto

type SetPointsInput struct {
	TotalPoints *int `json:"total_points" binding:"required,gte=0"`
}

type SetTreeLimitInput struct {
	MaxTrees int `json:"max_trees" binding:"required,gte=1"`
}
