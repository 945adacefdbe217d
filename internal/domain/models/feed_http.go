package models

// Requests for feed HTTP endpoints.

type HistoryRequest struct {
	N int `query:"n" json:"n" default:"100" validate:"gte=1,lte=10000"`
}

type ResetRequest struct {
	Reason string `json:"reason" default:"manual" validate:"max=128"`
}
