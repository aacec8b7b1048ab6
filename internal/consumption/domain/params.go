package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	FieldProductTmplID      = "product_tmpl_id"
	FieldTelecomServiceName = "telecom_service_name"
	FieldCompanyID          = "company_id"
	FieldTimestamp          = "consumption_timestamp"
	FieldQty                = "consumption_qty"
)

// WritableFields are the only keys that reach persistence.
var WritableFields = []string{FieldProductTmplID, FieldCompanyID, FieldTimestamp, FieldQty}

// Params is the loosely typed field map received from API callers.
// Validators normalize values in place.
type Params map[string]any

// Clone returns a shallow copy so validation never mutates the caller's map.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Present reports whether key carries a usable value. Nil and blank strings count as missing.
func (p Params) Present(key string) bool {
	v, ok := p[key]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}

// Set is Present with numeric zero and false also counting as missing.
func (p Params) Set(key string) bool {
	if !p.Present(key) {
		return false
	}
	switch typed := p[key].(type) {
	case bool:
		return typed
	case json.Number:
		f, err := typed.Float64()
		return err != nil || f != 0
	case string:
		return true
	}
	if n, ok := ParseInt64(p[key]); ok {
		return n != 0
	}
	if f, ok := p[key].(float64); ok {
		return f != 0
	}
	return true
}

// WriteValues are the typed, whitelisted values of a validated Params.
type WriteValues struct {
	ProductTmplID *snowflake.ID
	CompanyID     *snowflake.ID
	Timestamp     *time.Time
	Qty           *int64
}

// Whitelist keeps only the writable fields of validated params. Everything else is dropped.
func Whitelist(p Params) WriteValues {
	var out WriteValues
	if id, ok := p[FieldProductTmplID].(snowflake.ID); ok {
		out.ProductTmplID = &id
	}
	if id, ok := p[FieldCompanyID].(snowflake.ID); ok {
		out.CompanyID = &id
	}
	if ts, ok := p[FieldTimestamp].(time.Time); ok {
		out.Timestamp = &ts
	}
	if qty, ok := p[FieldQty].(int64); ok {
		out.Qty = &qty
	}
	return out
}

// Empty reports whether no field will be written.
func (w WriteValues) Empty() bool {
	return w.ProductTmplID == nil && w.CompanyID == nil && w.Timestamp == nil && w.Qty == nil
}

// ParseInt64 reads an integer from a decoded JSON value, a numeric string, or a Go integer.
// Fractional numbers are rejected.
func ParseInt64(v any) (int64, bool) {
	switch typed := v.(type) {
	case int:
		return int64(typed), true
	case int32:
		return int64(typed), true
	case int64:
		return typed, true
	case snowflake.ID:
		return typed.Int64(), true
	case float64:
		if typed != math.Trunc(typed) || typed > math.MaxInt64 || typed < math.MinInt64 {
			return 0, false
		}
		return int64(typed), true
	case json.Number:
		n, err := typed.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// ParseID reads a snowflake id. Zero and negative values are rejected.
func ParseID(v any) (snowflake.ID, bool) {
	n, ok := ParseInt64(v)
	if !ok || n <= 0 {
		return 0, false
	}
	return snowflake.ID(n), true
}
