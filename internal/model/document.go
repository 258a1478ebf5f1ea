package model

import "encoding/json"

// Document is the payload accepted by the architecture repository's
// create-or-update endpoint. Field names are part of the wire contract.
type Document struct {
	SystemComponentName string  `json:"systemComponentName"`
	Schema              *Schema `json:"schema"`
}

// NewDocument wraps schema for the given system component.
func NewDocument(component string, schema *Schema) *Document {
	return &Document{SystemComponentName: component, Schema: schema}
}

// TableCount returns the number of tables in the document.
func (d *Document) TableCount() int {
	if d == nil || d.Schema == nil {
		return 0
	}
	return len(d.Schema.Tables)
}

// Marshal encodes the document as compact JSON.
func (d *Document) Marshal() ([]byte, error) {
	return json.Marshal(d)
}
