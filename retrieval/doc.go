// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package retrieval implements multi-query retrieval with deduplication.
//
// A Retriever turns one user query into several searches:
//   - a text generation model proposes alternative phrasings (package expand)
//   - a top-k similarity search runs for every phrasing, and for the original
//     query unless disabled
//   - the result lists are concatenated in query order and deduplicated,
//     keeping the first occurrence of every document
//
// Searches run concurrently on a worker pool, but the merged result depends
// only on what each search returned, never on completion order. The first
// failing search cancels the others and fails the whole retrieval; no
// partial results are returned.
package retrieval
