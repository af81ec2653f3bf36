package cypher

import (
	"reflect"
	"testing"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		params map[string]any
		body   string
	}{
		{
			name:   "no prefix",
			query:  "MATCH (n) RETURN n",
			params: nil,
			body:   "MATCH (n) RETURN n",
		},
		{
			name:   "scalar values",
			query:  "CYPHER name='Alice' age=30 score=1.5 ok=true missing=null MATCH (n) RETURN n",
			params: map[string]any{"name": "Alice", "age": int64(30), "score": 1.5, "ok": true, "missing": nil},
			body:   "MATCH (n) RETURN n",
		},
		{
			name:   "negative number",
			query:  "CYPHER delta=-7 RETURN $delta",
			params: map[string]any{"delta": int64(-7)},
			body:   "RETURN $delta",
		},
		{
			name:   "list value",
			query:  "CYPHER ids=[1, 2, 3] MATCH (n) RETURN n",
			params: map[string]any{"ids": []any{int64(1), int64(2), int64(3)}},
			body:   "MATCH (n) RETURN n",
		},
		{
			name:   "map value",
			query:  "CYPHER props={name: 'Bob', age: 40} CREATE (n $props)",
			params: map[string]any{"props": map[string]any{"name": "Bob", "age": int64(40)}},
			body:   "CREATE (n $props)",
		},
		{
			name:   "nested list",
			query:  "CYPHER grid=[[1, 2], [3]] RETURN $grid",
			params: map[string]any{"grid": []any{[]any{int64(1), int64(2)}, []any{int64(3)}}},
			body:   "RETURN $grid",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params, body, err := ParseParams(tc.query)
			if err != nil {
				t.Fatalf("ParseParams(%q) failed: %v", tc.query, err)
			}
			if body != tc.body {
				t.Errorf("body = %q, want %q", body, tc.body)
			}
			if !reflect.DeepEqual(params, tc.params) {
				t.Errorf("params = %#v, want %#v", params, tc.params)
			}
		})
	}
}

func TestParseParams_Errors(t *testing.T) {
	queries := []string{
		"CYPHER",
		"CYPHER name=",
		"CYPHER name='Alice'",
		"CYPHER =1 RETURN 1",
		"CYPHER ids=[1, RETURN 1",
	}
	for _, query := range queries {
		t.Run(query, func(t *testing.T) {
			if _, _, err := ParseParams(query); err == nil {
				t.Errorf("ParseParams(%q) should fail", query)
			}
		})
	}
}
