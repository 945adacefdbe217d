package models

// Tick is one published step of a feed.
type Tick struct {
	Feed       string    `json:"feed"`
	Step       int64     `json:"step"`
	Time       int64     `json:"time"`
	IsDateTime bool      `json:"is_datetime"`
	Assets     []string  `json:"assets"`
	Prices     []float64 `json:"prices"`
	Data       []float64 `json:"data"`
}

// FeedSnapshot is the state of a running feed as served over HTTP.
type FeedSnapshot struct {
	Feed       string    `json:"feed"`
	Source     string    `json:"source"`
	Steps      int64     `json:"steps"`
	Time       int64     `json:"time"`
	IsDateTime bool      `json:"is_datetime"`
	DataEnd    bool      `json:"data_end"`
	Running    bool      `json:"running"`
	NAssets    int       `json:"n_assets"`
	NFeats     int       `json:"n_feats"`
	Assets     Assets    `json:"assets"`
	Prices     []float64 `json:"prices"`
	Data       []float64 `json:"data"`
}
