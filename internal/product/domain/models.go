package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ProductCategory is a node of the category tree. Telecom services live directly under the root.
type ProductCategory struct {
	ID        snowflake.ID  `json:"id" gorm:"primaryKey"`
	Name      string        `json:"name" gorm:"type:text;not null;index"`
	Code      string        `json:"code" gorm:"type:text;not null;index"`
	ParentID  *snowflake.ID `json:"parent_id,omitempty" gorm:"column:parent_id;index"`
	CreatedAt time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time     `json:"updated_at" gorm:"not null"`
}

func (ProductCategory) TableName() string { return "product_categories" }

// ProductTemplate is a sellable service. A nil CompanyID makes it shared across companies.
type ProductTemplate struct {
	ID          snowflake.ID  `json:"id" gorm:"primaryKey"`
	Name        string        `json:"name" gorm:"type:text;not null;index"`
	DefaultCode string        `json:"default_code" gorm:"column:default_code;type:text"`
	CategoryID  snowflake.ID  `json:"category_id" gorm:"column:category_id;not null;index"`
	CompanyID   *snowflake.ID `json:"company_id,omitempty" gorm:"column:company_id;index"`
	Active      bool          `json:"active" gorm:"not null;default:true"`
	CreatedAt   time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time     `json:"updated_at" gorm:"not null"`
}

func (ProductTemplate) TableName() string { return "product_templates" }

// TelecomService is a template joined with its category.
type TelecomService struct {
	TemplateID       snowflake.ID
	Name             string
	DefaultCode      string
	CategoryID       snowflake.ID
	CategoryName     string
	CategoryCode     string
	CategoryParentID *snowflake.ID
}
