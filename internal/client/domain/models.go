// Package domain contains persistence models for DHCP billing clients.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Client is the console's record of one DHCP lease under billing. Comment
// mirrors the router-side free-text comment; the subscription annotation
// JSON lives inside it and is the authoritative copy of billing state.
type Client struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	Name       string       `json:"name" gorm:"type:text;not null"`
	Address    string       `json:"address" gorm:"type:text"`
	MACAddress string       `json:"mac_address" gorm:"type:text;index"`
	Contact    string       `json:"contact" gorm:"type:text"`
	Comment    string       `json:"comment" gorm:"type:text"`
	RouterRef  string       `json:"router_ref" gorm:"type:text;index"`
	Disabled   bool         `json:"disabled" gorm:"not null;default:false"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Client) TableName() string { return "dhcp_clients" }
