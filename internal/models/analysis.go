package models

import "time"

// Qualification status constants
const (
	QualificationApproved = "APPROVED"
	QualificationRejected = "REJECTED"
)

// Signal constants
const (
	SignalBuy  = "BUY"
	SignalSell = "SELL"
	SignalHold = "HOLD"
	SignalWait = "WAIT"
)

// AnalysisResult is the payload returned by the external signal-analysis
// capability. The dashboard treats it as an opaque value apart from
// QualificationStatus, which gates whether a signal is acted upon.
type AnalysisResult struct {
	QualificationStatus string   `json:"qualificationStatus"`
	QualificationScore  float64  `json:"qualificationScore"`
	Signal              string   `json:"signal"`
	Confidence          float64  `json:"confidence"`
	Ticker              string   `json:"ticker"`
	EntryPrice          string   `json:"entryPrice"`
	TargetPrice         string   `json:"targetPrice"`
	StopLoss            string   `json:"stopLoss"`
	Timeframe           string   `json:"timeframe"`
	Reasoning           string   `json:"reasoning"`
	DetectedPattern     string   `json:"detectedPattern,omitempty"`
	PatternType         string   `json:"patternType,omitempty"`
	PatternConfidence   float64  `json:"patternConfidence,omitempty"`
	PredictedMovement   string   `json:"predictedMovement,omitempty"`
	TechnicalIndicators []string `json:"technicalIndicators,omitempty"`
	RiskLevel           string   `json:"riskLevel,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
}

// Approved reports whether the result passed qualification.
func (r *AnalysisResult) Approved() bool {
	return r != nil && r.QualificationStatus == QualificationApproved
}
