package model

import "github.com/guregu/null/v6"

// SentimentSnapshot is the payload of the secondary sentiment endpoint.
type SentimentSnapshot struct {
	Ticker           string     `json:"ticker,omitempty"`
	OverallSentiment string     `json:"overall_sentiment"`
	SentimentScore   null.Float `json:"sentiment_score"`
	KeyPhrases       []string   `json:"key_phrases"`
	RiskIndicators   []string   `json:"risk_indicators"`
	Timestamp        string     `json:"timestamp,omitempty"`
	Success          null.Bool  `json:"success"`
	Error            string     `json:"error,omitempty"`
}

// Failed reports whether the sentiment service answered with success=false.
func (s *SentimentSnapshot) Failed() bool {
	return s.Success.Valid && !s.Success.Bool
}
