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


// Package ai provides abstractions for the AI services used by multiquery.
//
// Query expansion needs a text Generator; the local index and the Qdrant
// builder need an Embedder. Both are plain interfaces so the retrieval core
// can be tested without a model server.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors (openai.NewProvider, openai.NewGenerator) return
// interface types. Test constructors (mock.NewMockGenerator,
// mock.NewMockEmbedder) return concrete types so tests can inject behavior
// and assert on call counts.
//
// # langchaingo
//
// NewModelGenerator turns any langchaingo llms.Model into a Generator, and
// AsLangchainEmbedder exposes an Embedder to langchaingo vector stores.
//
// # Usage Example
//
//	provider, err := openai.NewProvider(ai.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	reply, err := provider.Generator().Generate(ctx, prompt)
package ai
