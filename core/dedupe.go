package core

// Dedupe removes duplicate documents, keeping the first occurrence of each
// DocumentKey. Retained documents keep their relative input order. The input
// slice is never modified and the returned slice is never nil.
func Dedupe(docs []Document) []Document {
	seen := make(map[DocumentKey]struct{}, len(docs))
	unique := make([]Document, 0, len(docs))
	for _, doc := range docs {
		key := doc.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, doc)
	}
	return unique
}
