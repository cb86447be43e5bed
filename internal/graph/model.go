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

// Package graph implements the typed Node/Edge/Provenance data model (spec
// §3) and the Store interface both SMLG and the procedure engine build on.
package graph

import "time"

// Node is a typed, versioned entity in the memory graph.
type Node struct {
	UUID      string         `json:"uuid"`
	Kind      string         `json:"kind"`
	Labels    []string       `json:"labels"`
	Props     map[string]any `json:"props"`
	Embedding []float32      `json:"embedding,omitempty"`
	Status    string         `json:"status,omitempty"`
}

// Edge relates two existing Node uuids.
type Edge struct {
	UUID     string         `json:"uuid"`
	FromNode string         `json:"from_node"`
	ToNode   string         `json:"to_node"`
	Rel      string         `json:"rel"`
	Props    map[string]any `json:"props"`
}

// Relation names used throughout the graph (spec §3).
const (
	RelInstantiates      = "instantiates"
	RelInheritsFrom      = "inherits_from"
	RelHasStep           = "has_step"
	RelHasNode           = "has_node"
	RelDependsOn         = "depends_on"
	RelBranchTrue        = "branch_true"
	RelBranchFalse       = "branch_false"
	RelLoopBack          = "loop_back"
	RelCallsProcedure    = "calls_procedure"
	RelHasSubprocedure   = "has_subprocedure"
	RelHasPattern        = "has_pattern"
	RelAdaptedFrom       = "adapted_from"
	RelRunOf             = "run_of"
	RelConformsTo        = "conforms_to"
	RelAssocGeneralized  = "association:generalized_from"
)

// Provenance is attached to every upsert (spec §3). It is not stored as a
// node; callers record it alongside the affected entity's props.
type Provenance struct {
	Source     string  `json:"source"` // "user", "tool", or "doc"
	Timestamp  string  `json:"ts"`     // ISO-8601 UTC
	Confidence float64 `json:"confidence"`
	TraceID    string  `json:"trace_id"`
}

// NewProvenance builds a Provenance stamped with the current UTC time.
func NewProvenance(source string, confidence float64, traceID string) Provenance {
	return Provenance{
		Source:     source,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Confidence: confidence,
		TraceID:    traceID,
	}
}

// Node kind discriminators used by the rest of the system (spec §3).
const (
	KindConcept       = "Concept"
	KindPrototype     = "Prototype"
	KindProcedure     = "Procedure"
	KindStep          = "Step"
	KindTask          = "Task"
	KindEvent         = "Event"
	KindPerson        = "Person"
	KindMessage       = "Message"
	KindCredential    = "Credential"
	KindFormData      = "FormData"
	KindFormPattern   = "FormPattern"
	KindQueue         = "Queue"
	KindProcedureRun  = "ProcedureRun"
	KindSchema        = "Schema"
)
