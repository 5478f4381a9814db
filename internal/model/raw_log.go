package model

// RawLog is one contract event as returned by the explorer getLogs endpoint.
// Numeric fields stay hex-encoded strings; only Topics and TimeStamp are
// consumed by reconstruction.
type RawLog struct {
	Address          string   `json:"address"`
	Topics           []string `json:"topics"`
	Data             string   `json:"data"`
	BlockNumber      string   `json:"blockNumber"`
	TimeStamp        string   `json:"timeStamp"`
	LogIndex         string   `json:"logIndex"`
	TransactionHash  string   `json:"transactionHash"`
	TransactionIndex string   `json:"transactionIndex"`
}
