package models

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ProfilePage is a published VA's public profile source-of-truth. Publishing
// overwrites the whole document at its slug key; CreatedAt survives across
// republishes.
type ProfilePage struct {
	Slug        string    `json:"slug" validate:"required,min=1,max=120"`
	AccountID   string    `json:"accountId"`
	DisplayName string    `json:"displayName" validate:"required,min=1,max=120"`
	Headline    string    `json:"headline" validate:"max=200"`
	Bio         string    `json:"bio" validate:"max=5000"`
	Services    []string  `json:"services,omitempty" validate:"max=20,dive,max=120"`
	HourlyRate  string    `json:"hourlyRate,omitempty" validate:"max=40"`
	Location    string    `json:"location,omitempty" validate:"max=120"`
	Website     string    `json:"website,omitempty" validate:"omitempty,url,max=300"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (p *ProfilePage) Validate() error {
	v := validator.New()
	return v.Struct(p)
}

// ProfileKey addresses the published profile document.
func ProfileKey(slug string) string {
	return fmt.Sprintf("va/pages/%s.json", slug)
}
