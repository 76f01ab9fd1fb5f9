package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/common"
)

// GuestName is shown for comments posted without an account.
const GuestName = "Guest"

type AnnotationKind string

const (
	AnnotationRegion    AnnotationKind = "region"
	AnnotationTimestamp AnnotationKind = "timestamp"
)

// Region marks a rectangle on an image or page, in fractions of its size.
type Region struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Timestamp marks a point in audio or video.
type Timestamp struct {
	Seconds float64 `json:"seconds"`
}

// Annotation is a tagged variant: Kind says which of the payload fields is set.
type Annotation struct {
	Kind      AnnotationKind `json:"kind"`
	Region    *Region        `json:"region,omitempty"`
	Timestamp *Timestamp     `json:"timestamp,omitempty"`
}

func (a *Annotation) Validate() error {
	switch a.Kind {
	case AnnotationRegion:
		r := a.Region
		if r == nil || a.Timestamp != nil {
			return fmt.Errorf("%w: region annotation needs exactly a region", common.ErrValidation)
		}
		for _, v := range []float64{r.X, r.Y, r.W, r.H} {
			if v < 0 || v > 1 {
				return fmt.Errorf("%w: region coordinates must be within [0,1]", common.ErrValidation)
			}
		}
		if r.X+r.W > 1 || r.Y+r.H > 1 {
			return fmt.Errorf("%w: region exceeds bounds", common.ErrValidation)
		}
	case AnnotationTimestamp:
		if a.Timestamp == nil || a.Region != nil {
			return fmt.Errorf("%w: timestamp annotation needs exactly a timestamp", common.ErrValidation)
		}
		if a.Timestamp.Seconds < 0 {
			return fmt.Errorf("%w: negative timestamp", common.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown annotation kind %q", common.ErrValidation, a.Kind)
	}
	return nil
}

type Comment struct {
	ID         string
	TransferID string
	UserID     string
	UserName   string
	Text       string
	FileIndex  *int
	Annotation *Annotation
	CreatedAt  time.Time
}
