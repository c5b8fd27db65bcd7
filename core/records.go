package core

// TextField is the record column that holds document content.
const TextField = "text"

// Record is one row of retrieval output: the document content under
// TextField and every metadata entry flattened into its own column.
type Record map[string]any

// ToRecord flattens a document into a record. Content wins over a metadata
// entry that is also named TextField.
func ToRecord(doc Document) Record {
	rec := make(Record, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		rec[k] = v
	}
	rec[TextField] = doc.Content
	return rec
}

// ToRecords converts documents to records, preserving order.
func ToRecords(docs []Document) []Record {
	records := make([]Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, ToRecord(doc))
	}
	return records
}

// Text returns the content column of the record, if it holds a string.
func (r Record) Text(key string) (string, bool) {
	v, ok := r[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ToDocument splits a record back into content and metadata using the given
// content column.
func (r Record) ToDocument(key string) (Document, bool) {
	text, ok := r.Text(key)
	if !ok {
		return Document{}, false
	}
	var md Metadata
	for k, v := range r {
		if k == key {
			continue
		}
		if md == nil {
			md = make(Metadata, len(r)-1)
		}
		md[k] = v
	}
	return Document{Content: text, Metadata: md}, true
}
