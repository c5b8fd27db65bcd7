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


// Package expand turns one user query into several alternative phrasings.
//
// An Expander renders a prompt template with the question and the requested
// count, asks an ai.Generator for a reply and parses one query per line.
//
// # Prompt Templates
//
// Templates use single-brace placeholders: {question} for the user query and
// {n_queries} for the requested count. Literal braces are written {{ and }}.
// A template that does not mention {question} gets a trailing
// "User question: {question}" line so the model always sees the query.
//
// # Parsing
//
// Model output is parsed leniently. Each line is trimmed, list markers such
// as "1.", "2)", "-" or "*" and surrounding quotes are removed, blank lines
// are dropped and the result is capped at the requested count. A reply with
// fewer lines than requested is accepted as-is.
//
// # Ordering
//
// When the configuration includes the original query it is placed before the
// derived queries unless core.PlaceOriginalLast is selected.
package expand
