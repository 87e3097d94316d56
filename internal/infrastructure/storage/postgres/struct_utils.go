package postgres

import (
	"reflect"
	"sync"
)

// ExtractDBColumns lists the "db" tags of T, descending into embedded
// structs. Fields tagged "-" or untagged are skipped.
//
//	cols := ExtractDBColumns[requisition.Requisition]()
//	// ["id", "company_id", "numero_requisicao", ...]
func ExtractDBColumns[T any]() []string {
	var zero T
	meta := metadataOf(reflect.TypeOf(zero))
	if meta == nil {
		return nil
	}
	return meta.columns()
}

type fieldInfo struct {
	index int
	tag   string
}

type typeMetadata struct {
	fields   []fieldInfo
	embedded []int
	t        reflect.Type
}

func (m *typeMetadata) columns() []string {
	cols := make([]string, 0, len(m.fields))
	for _, i := range m.embedded {
		if em := metadataOf(m.t.Field(i).Type); em != nil {
			cols = append(cols, em.columns()...)
		}
	}
	for _, f := range m.fields {
		cols = append(cols, f.tag)
	}
	return cols
}

var typeCache sync.Map // reflect.Type -> *typeMetadata

func metadataOf(t reflect.Type) *typeMetadata {
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeMetadata)
	}

	meta := &typeMetadata{t: t}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous {
			meta.embedded = append(meta.embedded, i)
			continue
		}
		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		meta.fields = append(meta.fields, fieldInfo{index: i, tag: tag})
	}
	typeCache.Store(t, meta)
	return meta
}

// StructToMap converts a struct into column -> value using its "db" tags.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	meta := metadataOf(rv.Type())
	if meta == nil {
		return nil
	}

	res := make(map[string]any, len(meta.fields))
	for _, i := range meta.embedded {
		for k, val := range StructToMap(rv.Field(i).Interface()) {
			res[k] = val
		}
	}
	for _, f := range meta.fields {
		res[f.tag] = rv.Field(f.index).Interface()
	}
	return res
}

// InsertMap is StructToMap restricted to cols.
func InsertMap(v any, cols []string) map[string]any {
	data := StructToMap(v)
	out := make(map[string]any, len(cols))
	for _, col := range cols {
		if val, ok := data[col]; ok {
			out[col] = val
		}
	}
	return out
}
