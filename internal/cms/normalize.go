package cms

import (
	"bytes"
	"encoding/json"
)

// normalize, CMS'in iki farklı varlık şeklini tek şekle indirger:
//
//	{"id": 1, "attributes": {"name": "x"}}  ->  {"id": 1, "name": "x"}
//	{"id": 1, "name": "x"}                  ->  aynen
//
// İlişki sarmalayıcıları ({"data": {...}} / {"data": [...]}) da açılır. İşlem özyinelemelidir;
// bu paketin dışına yalnızca düzleştirilmiş veri çıkar.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	case map[string]interface{}:
		if inner, ok := relationData(t); ok {
			return normalize(inner)
		}
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if k == "attributes" {
				continue
			}
			out[k] = normalize(val)
		}
		if attrs, ok := t["attributes"].(map[string]interface{}); ok {
			for k, val := range attrs {
				if _, exists := out[k]; exists && (k == "id" || k == "documentId") {
					continue
				}
				out[k] = normalize(val)
			}
		}
		return out
	default:
		return v
	}
}

// relationData reports whether m is a bare {"data": ...} wrapper (optionally with "meta").
func relationData(m map[string]interface{}) (interface{}, bool) {
	inner, ok := m["data"]
	if !ok {
		return nil, false
	}
	for k := range m {
		if k != "data" && k != "meta" {
			return nil, false
		}
	}
	switch inner.(type) {
	case nil, map[string]interface{}, []interface{}:
		return inner, true
	}
	return nil, false
}

// decodeNormalized, ham JSON'u normalleştirip out'a çözer.
func decodeNormalized(raw json.RawMessage, out interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return err
	}
	flat, err := json.Marshal(normalize(generic))
	if err != nil {
		return err
	}
	return json.Unmarshal(flat, out)
}
