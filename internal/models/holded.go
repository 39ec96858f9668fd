package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/govalues/decimal"
)

// Order es un documento salesorder de Holded. Es inmutable dentro del pipeline:
// el filtro de referencias trabaja sobre copias (ver WithMatches).
type Order struct {
	ID          string          `json:"id"`
	DocNumber   string          `json:"docNumber,omitempty"`
	Date        time.Time       `json:"date"`
	ContactName string          `json:"contactName,omitempty"`
	Total       decimal.Decimal `json:"total"`
	Desc        string          `json:"desc,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	Custom      string          `json:"custom,omitempty"`
	Items       []LineItem      `json:"items"`

	// Referencias de catálogo encontradas; sólo en órdenes relevantes
	MatchingReferences []string `json:"matching_references,omitempty"`

	// DateInvalid indica que la fecha de origen no se pudo interpretar
	DateInvalid bool `json:"-"`

	// MalformedItems cuenta las líneas descartadas por no ser objetos
	MalformedItems int `json:"-"`
}

type LineItem struct {
	Name  string          `json:"name,omitempty"`
	Desc  string          `json:"desc,omitempty"`
	Code  string          `json:"code,omitempty"`
	SKU   string          `json:"sku,omitempty"`
	Units float64         `json:"units"`
	Price decimal.Decimal `json:"price"`
}

type rawOrder struct {
	ID          json.RawMessage `json:"id"`
	DocNumber   json.RawMessage `json:"docNumber"`
	Contact     json.RawMessage `json:"contact"`
	ContactName json.RawMessage `json:"contactName"`
	Date        json.RawMessage `json:"date"`
	Desc        json.RawMessage `json:"desc"`
	Description json.RawMessage `json:"description"`
	Notes       json.RawMessage `json:"notes"`
	Custom      json.RawMessage `json:"custom"`
	Total       json.RawMessage `json:"total"`
	Products    json.RawMessage `json:"products"`
	Items       json.RawMessage `json:"items"`
	Matching    json.RawMessage `json:"matching_references"`
}

// UnmarshalJSON acepta el formato de Holded (ids numéricos o string, fecha en epoch,
// productos en "products" o "items") y también el que produce json.Marshal sobre Order.
func (o *Order) UnmarshalJSON(data []byte) error {
	var raw rawOrder
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*o = Order{
		ID:          rawString(raw.ID),
		DocNumber:   rawString(raw.DocNumber),
		ContactName: rawString(raw.ContactName),
		Desc:        rawString(raw.Desc),
		Notes:       rawString(raw.Notes),
		Custom:      rawString(raw.Custom),
		Total:       rawDecimal(raw.Total),
	}
	// matching_references sólo existe en órdenes ya serializadas por nosotros
	if !isNull(raw.Matching) {
		if err := json.Unmarshal(raw.Matching, &o.MatchingReferences); err != nil {
			o.MatchingReferences = nil
		}
	}
	if o.Desc == "" {
		o.Desc = rawString(raw.Description)
	}
	if o.ContactName == "" {
		o.ContactName = contactName(raw.Contact)
	}

	// Holded manda "products"; algunos endpoints usan "items"
	items := raw.Products
	if isNull(items) {
		items = raw.Items
	}
	o.Items, o.MalformedItems = decodeItems(items)

	o.Date, o.DateInvalid = rawTime(raw.Date)
	return nil
}

// decodeItems decodifica las líneas una a una. Un valor que no es array, o una línea
// que no es objeto, se descarta y se cuenta; el resto de la orden sigue siendo válida.
func decodeItems(raw json.RawMessage) ([]LineItem, int) {
	if isNull(raw) {
		return nil, 0
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, 1
	}

	items := make([]LineItem, 0, len(elems))
	malformed := 0
	for _, elem := range elems {
		var li LineItem
		if isNull(elem) {
			malformed++
			continue
		}
		if err := json.Unmarshal(elem, &li); err != nil {
			malformed++
			continue
		}
		items = append(items, li)
	}
	return items, malformed
}

type rawLineItem struct {
	Name     json.RawMessage `json:"name"`
	Desc     json.RawMessage `json:"desc"`
	Code     json.RawMessage `json:"code"`
	SKU      json.RawMessage `json:"sku"`
	Units    json.RawMessage `json:"units"`
	Quantity json.RawMessage `json:"quantity"`
	Price    json.RawMessage `json:"price"`
}

func (li *LineItem) UnmarshalJSON(data []byte) error {
	var raw rawLineItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	units := raw.Units
	if len(units) == 0 || string(units) == "null" {
		units = raw.Quantity
	}

	*li = LineItem{
		Name:  rawString(raw.Name),
		Desc:  rawString(raw.Desc),
		Code:  rawString(raw.Code),
		SKU:   rawString(raw.SKU),
		Units: rawFloat(units, 1),
		Price: rawDecimal(raw.Price),
	}
	return nil
}

// SearchableText une los campos donde puede aparecer una referencia de catálogo:
// desc, notes, custom y nombre/desc/code/sku de cada línea.
func (o Order) SearchableText() string {
	fields := []string{o.Desc, o.Notes, o.Custom}
	for _, item := range o.Items {
		fields = append(fields, item.SearchableText())
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}

func (li LineItem) SearchableText() string {
	parts := make([]string, 0, 4)
	for _, f := range []string{li.Name, li.Desc, li.Code, li.SKU} {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}

// WithMatches devuelve una copia anotada; el slice de items se copia también.
func (o Order) WithMatches(refs []string) Order {
	cp := o
	cp.Items = append([]LineItem(nil), o.Items...)
	cp.MatchingReferences = append([]string(nil), refs...)
	return cp
}

// OrderIDs devuelve los ids no vacíos, en orden.
func OrderIDs(orders []Order) []string {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		if o.ID != "" {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// rawString convierte cualquier valor JSON escalar a string; objetos y arrays se
// devuelven compactados para que sigan siendo buscables.
func rawString(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	trimmed := bytes.TrimSpace(raw)
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed)
	}
	return buf.String()
}

func contactName(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Name
	}
	// contact como id de contacto: no tiene nombre
	return ""
}

func rawDecimal(raw json.RawMessage) decimal.Decimal {
	s := strings.Trim(rawString(raw), " ")
	if s == "" {
		return decimal.Decimal{}
	}
	d, err := decimal.Parse(s)
	if err != nil {
		return decimal.Decimal{}
	}
	return d
}

func rawFloat(raw json.RawMessage, def float64) float64 {
	s := rawString(raw)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

// rawTime acepta epoch en segundos (número o string) o RFC3339.
func rawTime(raw json.RawMessage) (time.Time, bool) {
	s := rawString(raw)
	if s == "" {
		return time.Time{}, false
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Unix(int64(f), 0).UTC(), false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false
	}
	return time.Time{}, true
}
