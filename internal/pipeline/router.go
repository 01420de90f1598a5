package pipeline

import (
	"go.uber.org/zap"

	"github.com/tribunalwatch/ingest-cli/internal/model"
)

// Confidence thresholds for routing. Bucket boundaries are inclusive at the
// lower edge: exactly 0.8 is high, exactly 0.5 is medium.
const (
	HighConfidenceThreshold   = 0.8
	MediumConfidenceThreshold = 0.5
	ReviewThreshold           = 0.7
)

// Decision is the routing outcome for one classified case.
type Decision struct {
	// Confidence is the input score after clamping to [0, 1].
	Confidence    float64
	Bucket        model.ConfidenceBucket
	NeedsReview   bool
	InitialStatus model.PromotionStatus
	// Clamped reports whether the input score was out of range.
	Clamped bool
}

// Route maps a combined confidence score to its bucket, review flag, and
// initial promotion status. Out-of-range scores are clamped rather than
// rejected, so one misbehaving classifier cannot halt a whole run; the clamp
// is logged for triage.
func Route(confidence float64) Decision {
	d := Decision{Confidence: confidence}

	if confidence < 0 || confidence > 1 {
		d.Clamped = true
		if confidence < 0 {
			d.Confidence = 0
		} else {
			d.Confidence = 1
		}
		zap.L().Warn("router: confidence out of range, clamped",
			zap.Float64("raw", confidence),
			zap.Float64("clamped", d.Confidence),
		)
	}

	switch {
	case d.Confidence >= HighConfidenceThreshold:
		d.Bucket = model.BucketHigh
	case d.Confidence >= MediumConfidenceThreshold:
		d.Bucket = model.BucketMedium
	default:
		d.Bucket = model.BucketLow
	}

	d.NeedsReview = d.Confidence < ReviewThreshold

	if d.Confidence >= HighConfidenceThreshold {
		d.InitialStatus = model.PromotionApproved
	} else {
		d.InitialStatus = model.PromotionPending
	}

	return d
}
