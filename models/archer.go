package models

import "time"

// ArcherPosition — shooting position, matching the ENUM in the DB.
type ArcherPosition string

const (
	PositionZasha  ArcherPosition = "zasha"
	PositionRissha ArcherPosition = "rissha"
)

func (p ArcherPosition) Valid() bool {
	switch p {
	case PositionZasha, PositionRissha:
		return true
	}
	return false
}

type Archer struct {
	ID        int            `json:"id"`
	Name      string         `json:"name"`
	Position  ArcherPosition `json:"position"`
	Accuracy  float64        `json:"accuracy"`
	CreatedAt time.Time      `json:"created_at"`

	PhotoKey *string `json:"-"`
	PhotoURL *string `json:"photo_url,omitempty"`
}
