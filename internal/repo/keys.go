package repo

import (
	jsoniter "github.com/json-iterator/go"
)

// Key names are shared with the stored state of earlier deployments; keep them as is.
const (
	proposalKeyPrefix = "transaction-candidate-"
	historyKeyPrefix  = "history-"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func ProposalKey(queryID string) string {
	return proposalKeyPrefix + queryID
}

// HistoryKey expects a canonical pair key from domain.PairKey.
func HistoryKey(pairKey string) string {
	return historyKeyPrefix + pairKey
}
