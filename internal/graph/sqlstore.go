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

package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	// SQLite driver registration, ported from the teacher's SQL session
	// service (pkg/memory/session_service_sql.go).
	_ "github.com/mattn/go-sqlite3"
)

const (
	createNodesTableSQL = `
CREATE TABLE IF NOT EXISTS nodes (
    uuid TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    labels TEXT NOT NULL,
    props TEXT NOT NULL,
    embedding TEXT,
    status TEXT
);
CREATE INDEX IF NOT EXISTS idx_nodes_kind ON nodes(kind);
`
	createEdgesTableSQL = `
CREATE TABLE IF NOT EXISTS edges (
    uuid TEXT PRIMARY KEY,
    from_node TEXT NOT NULL,
    to_node TEXT NOT NULL,
    rel TEXT NOT NULL,
    props TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_node);
CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_node);
CREATE INDEX IF NOT EXISTS idx_edges_rel ON edges(rel);
`
)

// SQLStore is a SQLite-backed durable Store (spec §3 "durable persistence
// backends"). Nodes and edges serialize props/embedding as JSON columns;
// search loads candidate rows by kind filter and scores them in Go with
// the same algorithm as MemStore, since SQLite has no native vector index
// (that's what the vector.Provider integration is for — see ksg package).
type SQLStore struct {
	db *sql.DB
}

// OpenSQLStore opens (creating if necessary) a SQLite-backed store at path.
func OpenSQLStore(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store at %s: %w", path, err)
	}
	if _, err := db.Exec(createNodesTableSQL); err != nil {
		return nil, fmt.Errorf("create nodes table: %w", err)
	}
	if _, err := db.Exec(createEdgesTableSQL); err != nil {
		return nil, fmt.Errorf("create edges table: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) UpsertNode(ctx context.Context, node *Node, prov Provenance) (string, error) {
	if node == nil {
		return "", fmt.Errorf("node is required")
	}
	if node.UUID == "" {
		node.UUID = uuid.NewString()
	}
	if node.Props == nil {
		node.Props = map[string]any{}
	}

	labelsJSON, err := json.Marshal(node.Labels)
	if err != nil {
		return "", fmt.Errorf("marshal labels: %w", err)
	}
	propsJSON, err := json.Marshal(node.Props)
	if err != nil {
		return "", fmt.Errorf("marshal props: %w", err)
	}
	embJSON, err := json.Marshal(node.Embedding)
	if err != nil {
		return "", fmt.Errorf("marshal embedding: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO nodes (uuid, kind, labels, props, embedding, status) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(uuid) DO UPDATE SET kind=excluded.kind, labels=excluded.labels, props=excluded.props, embedding=excluded.embedding, status=excluded.status
`, node.UUID, node.Kind, string(labelsJSON), string(propsJSON), string(embJSON), node.Status)
	if err != nil {
		return "", fmt.Errorf("upsert node %s: %w", node.UUID, err)
	}
	return node.UUID, nil
}

func (s *SQLStore) UpsertEdge(ctx context.Context, edge *Edge, prov Provenance) (string, error) {
	if edge == nil {
		return "", fmt.Errorf("edge is required")
	}
	if edge.FromNode == "" || edge.ToNode == "" {
		return "", fmt.Errorf("edge requires from_node and to_node")
	}
	if edge.UUID == "" {
		edge.UUID = uuid.NewString()
	}
	if edge.Props == nil {
		edge.Props = map[string]any{}
	}

	if _, ok, err := s.GetNode(ctx, edge.FromNode); err != nil {
		return "", err
	} else if !ok {
		return "", fmt.Errorf("edge from_node %q does not exist", edge.FromNode)
	}
	if _, ok, err := s.GetNode(ctx, edge.ToNode); err != nil {
		return "", err
	} else if !ok {
		return "", fmt.Errorf("edge to_node %q does not exist", edge.ToNode)
	}

	propsJSON, err := json.Marshal(edge.Props)
	if err != nil {
		return "", fmt.Errorf("marshal edge props: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO edges (uuid, from_node, to_node, rel, props) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(uuid) DO UPDATE SET from_node=excluded.from_node, to_node=excluded.to_node, rel=excluded.rel, props=excluded.props
`, edge.UUID, edge.FromNode, edge.ToNode, edge.Rel, string(propsJSON))
	if err != nil {
		return "", fmt.Errorf("upsert edge %s: %w", edge.UUID, err)
	}
	return edge.UUID, nil
}

func (s *SQLStore) GetNode(ctx context.Context, id string) (*Node, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT uuid, kind, labels, props, embedding, status FROM nodes WHERE uuid = ?`, id)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return n, true, nil
}

func (s *SQLStore) GetEdges(ctx context.Context, filter EdgeFilter) ([]*Edge, error) {
	query := `SELECT uuid, from_node, to_node, rel, props FROM edges WHERE 1=1`
	var args []any
	if filter.FromNode != "" {
		query += ` AND from_node = ?`
		args = append(args, filter.FromNode)
	}
	if filter.ToNode != "" {
		query += ` AND to_node = ?`
		args = append(args, filter.ToNode)
	}
	if filter.Rel != "" {
		query += ` AND rel = ?`
		args = append(args, filter.Rel)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	var out []*Edge
	for rows.Next() {
		var e Edge
		var propsJSON string
		if err := rows.Scan(&e.UUID, &e.FromNode, &e.ToNode, &e.Rel, &propsJSON); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		if err := json.Unmarshal([]byte(propsJSON), &e.Props); err != nil {
			return nil, fmt.Errorf("unmarshal edge props: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// Search loads candidate nodes (filtered by kind at the SQL layer when
// possible) and scores them with the same algorithm as MemStore.
func (s *SQLStore) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	query := `SELECT uuid, kind, labels, props, embedding, status FROM nodes WHERE 1=1`
	var args []any
	if kind, ok := q.Filters["kind"].(string); ok {
		query += ` AND kind = ?`
		args = append(args, kind)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	topK := q.TopK
	if topK <= 0 {
		topK = 10
	}
	queryLower := strings.ToLower(q.Text)
	queryWords := strings.Fields(queryLower)

	wantsPrototypes := false
	if kind, ok := q.Filters["kind"].(string); ok && kind == KindPrototype {
		wantsPrototypes = true
	}

	var scored []scoredNode
	for rows.Next() {
		n, err := scanNodeRows(rows)
		if err != nil {
			return nil, err
		}
		if !q.IncludePrototypes && !wantsPrototypes {
			if isProto, _ := n.Props["isPrototype"].(bool); isProto {
				continue
			}
		}
		if !matchesFilters(n, q.Filters) {
			continue
		}

		nodeText := strings.ToLower(strings.Join([]string{
			n.Kind, strings.Join(n.Labels, " "),
			stringProp(n.Props, "name"), stringProp(n.Props, "title"), stringProp(n.Props, "label"),
		}, " "))

		textScore := 0.0
		if queryLower != "" && strings.Contains(nodeText, queryLower) {
			textScore = 0.8
		} else {
			for _, w := range queryWords {
				if w != "" && strings.Contains(nodeText, w) {
					textScore = 0.5
					break
				}
			}
		}

		score := textScore
		if len(q.Embedding) > 0 && len(n.Embedding) > 0 {
			if sim := Cosine(q.Embedding, n.Embedding); sim > score {
				score = sim
			}
		}
		if score <= 0 {
			continue
		}
		scored = append(scored, scoredNode{node: n, textScore: textScore, score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		if scored[i].textScore != scored[j].textScore {
			return scored[i].textScore > scored[j].textScore
		}
		return scored[i].node.UUID < scored[j].node.UUID
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}

	out := make([]SearchResult, len(scored))
	for i, sn := range scored {
		out[i] = SearchResult{Node: sn.node, Score: sn.score}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*Node, error) {
	var n Node
	var labelsJSON, propsJSON, embJSON string
	var status sql.NullString
	if err := row.Scan(&n.UUID, &n.Kind, &labelsJSON, &propsJSON, &embJSON, &status); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(labelsJSON), &n.Labels); err != nil {
		return nil, fmt.Errorf("unmarshal labels: %w", err)
	}
	if err := json.Unmarshal([]byte(propsJSON), &n.Props); err != nil {
		return nil, fmt.Errorf("unmarshal props: %w", err)
	}
	if embJSON != "" && embJSON != "null" {
		if err := json.Unmarshal([]byte(embJSON), &n.Embedding); err != nil {
			return nil, fmt.Errorf("unmarshal embedding: %w", err)
		}
	}
	n.Status = status.String
	return &n, nil
}

func scanNodeRows(rows *sql.Rows) (*Node, error) { return scanNode(rows) }
