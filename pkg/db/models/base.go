package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID fills a missing primary key so rows can be created on any dialect.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

func (c *Coupon) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

func (e *OutboxEvent) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID)
	return nil
}

func (d *OutboxDLQ) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&Coupon{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
