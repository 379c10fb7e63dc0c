package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type AssetObject struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

// IsSHA1Hex reports whether h is a 40 character lowercase hex digest.
func IsSHA1Hex(h string) bool {
	if len(h) != 40 {
		return false
	}
	for i := 0; i < len(h); i++ {
		c := h[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// AssetIndex is the secondary manifest listing named assets. Names keeps the
// order in which objects appear in the document so planning is deterministic.
type AssetIndex struct {
	Objects        map[string]AssetObject `json:"objects"`
	Names          []string               `json:"-"`
	Virtual        bool                   `json:"virtual,omitempty"`
	MapToResources bool                   `json:"map_to_resources,omitempty"`
}

// UnmarshalJSON decodes the index and records object names in document order.
func (ai *AssetIndex) UnmarshalJSON(data []byte) error {
	var raw struct {
		Objects        json.RawMessage `json:"objects"`
		Virtual        bool            `json:"virtual"`
		MapToResources bool            `json:"map_to_resources"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ai.Virtual = raw.Virtual
	ai.MapToResources = raw.MapToResources
	ai.Objects = make(map[string]AssetObject)
	ai.Names = nil
	if len(raw.Objects) == 0 || string(raw.Objects) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw.Objects))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("asset objects: expected object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("asset objects: expected name")
		}
		var obj AssetObject
		if err := dec.Decode(&obj); err != nil {
			return fmt.Errorf("asset %q: %w", name, err)
		}
		if _, dup := ai.Objects[name]; !dup {
			ai.Names = append(ai.Names, name)
		}
		ai.Objects[name] = obj
	}
	_, err = dec.Token()
	return err
}
