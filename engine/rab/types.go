// Package rab looks aircraft up in the RAB (Registro Aeronáutico Brasileiro)
// by tail number. It fetches the registry's HTML answer page, decodes it from
// Latin-1, and scrapes its two-column tables into an ordered record.
package rab

import (
	"bytes"
	"encoding/json"
	"time"
)

// TimestampLayout formats query timestamps in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Field is one label/value pair scraped from a table row.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Record is an ordered label → value mapping. Labels keep the position of
// their first occurrence; a repeated label overwrites the value.
type Record struct {
	fields []Field
	index  map[string]int
}

// Set stores value under label.
func (r *Record) Set(label, value string) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[label]; ok {
		r.fields[i].Value = value
		return
	}
	r.index[label] = len(r.fields)
	r.fields = append(r.fields, Field{Label: label, Value: value})
}

// Fields returns the pairs in document order.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Len returns the number of distinct labels.
func (r Record) Len() int { return len(r.fields) }

// MarshalJSON encodes the record as a JSON object preserving field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Label)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Link is an anchor found on the page.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Page is everything Parse extracts from one answer page.
type Page struct {
	Fields        Record
	Links         []Link
	MaybeNotFound bool
}

// Result is a completed lookup.
type Result struct {
	Marca         string
	Source        string
	QueriedAt     time.Time
	Fields        Record
	Links         []Link
	MaybeNotFound bool
}

// Timestamp renders QueriedAt with TimestampLayout.
func (r Result) Timestamp() string {
	return r.QueriedAt.UTC().Format(TimestampLayout)
}

// LookupEvent is published after every lookup that reached the registry
// or the cache.
type LookupEvent struct {
	Marca     string    `json:"marca"`
	Found     bool      `json:"found"`
	Fields    int       `json:"fields"`
	Links     int       `json:"links"`
	QueriedAt time.Time `json:"queried_at"`
}
