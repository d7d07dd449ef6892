package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Primary keys are assigned client-side so rows carry an id before the insert
// returns, whichever database backs the connection.

func (s *Shop) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (p *TrackedProduct) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
