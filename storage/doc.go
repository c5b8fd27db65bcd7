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


// Package storage provides the storage abstraction behind the local index.
//
// DocumentRepository decouples the embedded index from its backend. The only
// backend today is storage/badger; tests use it in in-memory mode:
//
//	backend, err := badger.OpenBackend("", true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	repo, err := badger.NewDocumentRepository(backend)
//
// # Serialization
//
// Stored documents are encoded with mus-go. Metadata values carry a one-byte
// type tag, so a value written as an int comes back as an int64, an unsigned
// value as a uint64 and a float32 as a float64. Non-scalar metadata values
// are rejected before encoding.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
