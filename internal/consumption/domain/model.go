// Package domain holds the consumption record and the types shared by its service and API.
package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	productdomain "github.com/smallbiznis/telecomservice/internal/product/domain"
)

const (
	DefaultName    = "New"
	NameTimeLayout = "2006-01-02 15:04:05"
)

// ConsumptionRecord is one unit of telecom service consumption.
type ConsumptionRecord struct {
	ID                   snowflake.ID  `gorm:"primaryKey"`
	Name                 string        `gorm:"type:text;not null;default:'New';index"`
	CompanyID            snowflake.ID  `gorm:"column:company_id;not null;index"`
	ProductTmplID        snowflake.ID  `gorm:"column:product_tmpl_id;not null;index"`
	CategoryID           *snowflake.ID `gorm:"column:category_id;index"`
	CategoryCode         string        `gorm:"column:category_code;type:text;index"`
	ConsumptionTimestamp time.Time     `gorm:"column:consumption_timestamp;not null;index"`
	ConsumptionQty       int64         `gorm:"column:consumption_qty;not null;default:1"`
	CreatedAt            time.Time     `gorm:"not null"`
	UpdatedAt            time.Time     `gorm:"not null"`
}

func (ConsumptionRecord) TableName() string { return "consumption_records" }

// ComposeName renders "{service} - {timestamp}". Without a service the default name is used.
func ComposeName(serviceName string, ts time.Time) string {
	if serviceName == "" || ts.IsZero() {
		return DefaultName
	}
	return fmt.Sprintf("%s - %s", serviceName, ts.UTC().Format(NameTimeLayout))
}

// ApplyService copies the name and category projections of svc onto the record.
func (r *ConsumptionRecord) ApplyService(svc *productdomain.TelecomService) {
	if svc == nil {
		r.ProductTmplID = 0
		r.CategoryID = nil
		r.CategoryCode = ""
		r.Name = DefaultName
		return
	}
	categoryID := svc.CategoryID
	r.ProductTmplID = svc.TemplateID
	r.CategoryID = &categoryID
	r.CategoryCode = svc.CategoryCode
	r.Name = ComposeName(svc.Name, r.ConsumptionTimestamp)
}

// OnChangeQuantity resets a non-positive quantity to 1.
func (r *ConsumptionRecord) OnChangeQuantity() {
	if r.ConsumptionQty <= 0 {
		r.ConsumptionQty = 1
	}
}

// Validate enforces the persistence invariants: a positive quantity and a
// service whose category sits directly under the Telecom root.
func (r *ConsumptionRecord) Validate(svc *productdomain.TelecomService, rootID snowflake.ID) error {
	if r.CompanyID == 0 {
		return ErrMissingCompany
	}
	if r.ConsumptionQty <= 0 {
		return ErrInvalidQuantity
	}
	if r.ConsumptionTimestamp.IsZero() {
		return ErrTimestampRequired
	}
	if svc == nil || svc.TemplateID != r.ProductTmplID {
		return ErrUnknownService
	}
	if svc.CategoryParentID == nil || *svc.CategoryParentID != rootID {
		return ErrUnknownService
	}
	return nil
}
