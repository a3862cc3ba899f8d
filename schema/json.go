package schema

import jsoniter "github.com/json-iterator/go"

type fieldJSON struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Code int32  `json:"code"`
}

type snapshotJSON struct {
	TypeID   int32       `json:"type_id"`
	TypeName string      `json:"type_name"`
	Revision int64       `json:"revision"`
	Fields   []fieldJSON `json:"fields"`
}

// MarshalJSON renders a read-only view for tooling; the stored form is TLV.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	view := snapshotJSON{
		TypeID:   s.typeID,
		TypeName: s.typeName,
		Revision: s.revision,
		Fields:   make([]fieldJSON, 0, len(s.fields)),
	}
	for f := range s.Fields() {
		view.Fields = append(view.Fields, fieldJSON{ID: f.ID, Name: f.Name, Type: f.Type.String(), Code: int32(f.Type)})
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(view)
}
