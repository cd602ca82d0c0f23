// Copyright 2024 Clyso GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package decode holds the protocol decoders: pure functions that turn the
// raw blocks returned by the transport façade into typed, interpreted
// records. Nothing in this package touches a device; everything here is
// byte shuffling and table lookups, which is what makes it safe to unit
// test without real hardware.
package decode
