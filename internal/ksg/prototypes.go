// Copyright 2025 Kadir Pekel
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

// Package ksg implements the Semantic Memory & Learning Graph: typed
// concepts instantiated from prototypes, versioned, embedded, and
// retrievable by text, vector, and prop filter.
package ksg

import (
	"context"
	"fmt"

	"github.com/kadirpekel/hectorassist/internal/graph"
)

// Fixed uuids for the seeded prototype set, mirroring the original's
// deterministic "proto-*" ids so references to them are stable across
// restarts without a lookup table.
const (
	ProtoAgent          = "proto-agent"
	ProtoContactMethod  = "proto-contact-method"
	ProtoPlace          = "proto-place"
	ProtoTimeInterval   = "proto-time-interval"
	ProtoEvent          = "proto-event"
	ProtoTask           = "proto-task"
	ProtoMessage        = "proto-message"
	ProtoDocument       = "proto-document"
	ProtoDevice         = "proto-device"
	ProtoPreferenceRule = "proto-preference-rule"
	ProtoList           = "proto-list"
	ProtoChain          = "proto-chain"
	ProtoDAG            = "proto-dag"
	ProtoProcedure      = "proto-procedure"
	ProtoCredential     = "proto-credential"
	ProtoFormPattern    = "proto-form-pattern"
	ProtoQueueItem      = "proto-queue-item"
	ProtoPerson         = "proto-person"
	ProtoName           = "proto-name"
	ProtoPropertyDef    = "proto-property-def"
)

// protoInherits maps a prototype to the parent it inherits_from, forming
// the fixed Prototype inheritance tree (spec §3 invariant: acyclic).
var protoInherits = map[string]string{
	ProtoChain: ProtoList,
	ProtoDAG:   ProtoChain,
}

// protoNames lists every seeded prototype uuid alongside its display name.
var protoNames = map[string]string{
	ProtoAgent:          "Agent",
	ProtoContactMethod:  "ContactMethod",
	ProtoPlace:          "Place",
	ProtoTimeInterval:   "TimeInterval",
	ProtoEvent:          "Event",
	ProtoTask:           "Task",
	ProtoMessage:        "Message",
	ProtoDocument:       "Document",
	ProtoDevice:         "Device",
	ProtoPreferenceRule: "PreferenceRule",
	ProtoList:           "List",
	ProtoChain:          "Chain",
	ProtoDAG:            "DAG",
	ProtoProcedure:      "Procedure",
	ProtoCredential:     "Credential",
	ProtoFormPattern:    "FormPattern",
	ProtoQueueItem:      "QueueItem",
	ProtoPerson:         "Person",
	ProtoName:           "Name",
	ProtoPropertyDef:    "PropertyDef",
}

// PropertyDef describes one of the built-in property definitions seeded as
// PropertyDef concepts at startup.
type PropertyDef struct {
	Prop  string
	Dtype string
}

var defaultPropertyDefs = []PropertyDef{
	{"name", "text"},
	{"description", "text"},
	{"tags", "list[text]"},
	{"createdAt", "date"},
	{"updatedAt", "date"},
	{"startAt", "date"},
	{"endAt", "date"},
	{"dueAt", "date"},
	{"status", "text"},
	{"priority", "int"},
	{"owner", "ref(Agent)"},
	{"participants", "list[ref(Agent)]"},
	{"location", "ref(Place)"},
	{"url", "url"},
	{"sender", "ref(Agent)"},
	{"recipient", "list[ref(Agent)]"},
}

// SeedPrototypes creates the fixed prototype set and their inheritance
// edges, and one Concept per PropertyDef instantiated from ProtoPropertyDef.
// Idempotent: re-running upserts the same nodes under the same uuids.
func (s *Service) SeedPrototypes(ctx context.Context) error {
	prov := graph.NewProvenance("doc", 1.0, "ksg-seed")

	for uuid, name := range protoNames {
		node := &graph.Node{
			UUID: uuid,
			Kind: graph.KindPrototype,
			Labels: []string{"Prototype", name},
			Props: map[string]any{
				"name":        name,
				"isPrototype": true,
			},
		}
		if _, err := s.store.UpsertNode(ctx, node, prov); err != nil {
			return fmt.Errorf("seed prototype %s: %w", name, err)
		}
	}

	for child, parent := range protoInherits {
		edge := &graph.Edge{UUID: child + "-inherits-from-" + parent, FromNode: child, ToNode: parent, Rel: graph.RelInheritsFrom}
		if _, err := s.store.UpsertEdge(ctx, edge, prov); err != nil {
			return fmt.Errorf("link prototype inheritance %s->%s: %w", child, parent, err)
		}
	}

	for _, def := range defaultPropertyDefs {
		node := &graph.Node{
			UUID:   ProtoPropertyDef + "-" + def.Prop,
			Kind:   graph.KindConcept,
			Labels: []string{"PropertyDef", def.Prop},
			Props: map[string]any{
				"prop":          def.Prop,
				"dtype":         def.Dtype,
				"prototype_uuid": ProtoPropertyDef,
				"isPrototype":   false,
			},
		}
		uuid, err := s.store.UpsertNode(ctx, node, prov)
		if err != nil {
			return fmt.Errorf("seed property def %s: %w", def.Prop, err)
		}
		edge := &graph.Edge{UUID: uuid + "-instantiates", FromNode: uuid, ToNode: ProtoPropertyDef, Rel: graph.RelInstantiates}
		if _, err := s.store.UpsertEdge(ctx, edge, prov); err != nil {
			return fmt.Errorf("link property def %s: %w", def.Prop, err)
		}
	}

	return nil
}
