package domain

import (
	"encoding/json"

	"github.com/bwmarrin/snowflake"
	productdomain "github.com/smallbiznis/telecomservice/internal/product/domain"
)

// Pair is a many2one reference rendered as [id, display_name], or false when unset.
type Pair struct {
	ID   snowflake.ID
	Name string
}

func (p Pair) MarshalJSON() ([]byte, error) {
	if p.ID == 0 {
		return []byte("false"), nil
	}
	return json.Marshal([]string{p.ID.String(), p.Name})
}

// Char is a text field rendered as false when empty.
type Char string

func (c Char) MarshalJSON() ([]byte, error) {
	if c == "" {
		return []byte("false"), nil
	}
	return json.Marshal(string(c))
}

// Record is the API representation of a consumption record.
type Record struct {
	ID                   Char   `json:"id"`
	Name                 string `json:"name"`
	CompanyID            Pair   `json:"company_id"`
	ProductTmplID        Pair   `json:"product_tmpl_id"`
	TelecomServiceName   Char   `json:"telecom_service_name"`
	CategoryID           Pair   `json:"category_id"`
	CategoryName         Char   `json:"category_name"`
	CategoryCode         Char   `json:"category_code"`
	ConsumptionReference Char   `json:"consumption_reference"`
	ConsumptionTimestamp Char   `json:"consumption_timestamp"`
	ConsumptionQty       int64  `json:"consumption_qty"`
}

// ToRecord serializes r with its resolved company name and service projections.
// An unsaved record renders its id as false.
func ToRecord(r ConsumptionRecord, companyName string, svc *productdomain.TelecomService) Record {
	out := Record{
		Name:           r.Name,
		CompanyID:      Pair{ID: r.CompanyID, Name: companyName},
		ConsumptionQty: r.ConsumptionQty,
		CategoryCode:   Char(r.CategoryCode),
	}
	if r.ID != 0 {
		out.ID = Char(r.ID.String())
	}
	if !r.ConsumptionTimestamp.IsZero() {
		out.ConsumptionTimestamp = Char(r.ConsumptionTimestamp.UTC().Format(NameTimeLayout))
	}
	if svc != nil {
		out.ProductTmplID = Pair{ID: svc.TemplateID, Name: svc.Name}
		out.TelecomServiceName = Char(svc.Name)
		out.CategoryID = Pair{ID: svc.CategoryID, Name: svc.CategoryName}
		out.CategoryName = Char(svc.CategoryName)
		out.ConsumptionReference = Char(svc.DefaultCode)
	} else if r.ProductTmplID != 0 {
		out.ProductTmplID = Pair{ID: r.ProductTmplID}
	}
	if out.CategoryID.ID == 0 && r.CategoryID != nil {
		out.CategoryID = Pair{ID: *r.CategoryID}
	}
	return out
}
