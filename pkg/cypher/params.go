package cypher

import (
	"strconv"
)

// Query parameters arrive as a textual prefix in the engine's wire format:
//
//	CYPHER name='Alice' age=30 MATCH (p:Person {name: $name}) RETURN p
//
// ParseParams strips the prefix into a parameter map and returns the
// remaining query body. The front-end stores the map; substitution happens
// at evaluation time, never by string interpolation.

// ParseParams splits an optional CYPHER parameter prefix off the query
// text. Queries without a prefix are returned unchanged with a nil map.
func ParseParams(query string) (map[string]any, string, error) {
	lx := newLexer(query)
	tokens, _, lexErr := lx.run()
	if len(tokens) == 0 || !tokens[0].IsKeyword("CYPHER") {
		return nil, query, nil
	}
	if lexErr != nil {
		return nil, "", &Error{Code: ErrParser, Message: lexErr.Error()}
	}

	params := make(map[string]any)
	pos := 1
	for pos+1 < len(tokens) && tokens[pos].Kind == TokenIdent && tokens[pos+1].Kind == TokenEq {
		name := tokens[pos].Literal
		value, next, err := parseParamValue(tokens, pos+2)
		if err != nil {
			return nil, "", err
		}
		params[name] = value
		pos = next
	}

	if len(params) == 0 {
		return nil, "", paramError(tokens, pos, "expected parameter assignments after CYPHER")
	}
	if pos >= len(tokens) {
		return nil, "", paramError(tokens, pos, "missing query body after parameters")
	}

	body := query[tokens[pos].Range.Start.Offset:]
	return params, body, nil
}

func paramError(tokens []Token, pos int, msg string) error {
	position := InputPosition{Line: 1, Column: 1}
	if pos < len(tokens) {
		position = tokens[pos].Range.Start
	} else if len(tokens) > 0 {
		position = tokens[len(tokens)-1].Range.End
	}
	return &Error{
		Code:    ErrParser,
		Message: newParseError(msg, position, errContext{}).Error(),
	}
}

// parseParamValue parses one literal parameter value starting at pos,
// returning the value and the index of the first unconsumed token.
func parseParamValue(tokens []Token, pos int) (any, int, error) {
	if pos >= len(tokens) {
		return nil, pos, paramError(tokens, pos, "missing parameter value")
	}
	t := tokens[pos]
	switch t.Kind {
	case TokenInteger:
		v, err := strconv.ParseInt(t.Literal, 0, 64)
		if err != nil {
			return nil, pos, paramError(tokens, pos, "invalid integer parameter")
		}
		return v, pos + 1, nil
	case TokenFloat:
		v, err := strconv.ParseFloat(t.Literal, 64)
		if err != nil {
			return nil, pos, paramError(tokens, pos, "invalid float parameter")
		}
		return v, pos + 1, nil
	case TokenString:
		return t.Literal, pos + 1, nil
	case TokenMinus:
		v, next, err := parseParamValue(tokens, pos+1)
		if err != nil {
			return nil, pos, err
		}
		switch n := v.(type) {
		case int64:
			return -n, next, nil
		case float64:
			return -n, next, nil
		}
		return nil, pos, paramError(tokens, pos, "invalid negated parameter value")
	case TokenLBracket:
		var list []any
		pos++
		if pos < len(tokens) && tokens[pos].Kind == TokenRBracket {
			return list, pos + 1, nil
		}
		for {
			v, next, err := parseParamValue(tokens, pos)
			if err != nil {
				return nil, pos, err
			}
			list = append(list, v)
			pos = next
			if pos < len(tokens) && tokens[pos].Kind == TokenComma {
				pos++
				continue
			}
			break
		}
		if pos >= len(tokens) || tokens[pos].Kind != TokenRBracket {
			return nil, pos, paramError(tokens, pos, "expected ']' in parameter list")
		}
		return list, pos + 1, nil
	case TokenLBrace:
		m := make(map[string]any)
		pos++
		if pos < len(tokens) && tokens[pos].Kind == TokenRBrace {
			return m, pos + 1, nil
		}
		for {
			if pos+1 >= len(tokens) || tokens[pos].Kind != TokenIdent || tokens[pos+1].Kind != TokenColon {
				return nil, pos, paramError(tokens, pos, "expected key: value in parameter map")
			}
			key := tokens[pos].Literal
			v, next, err := parseParamValue(tokens, pos+2)
			if err != nil {
				return nil, pos, err
			}
			m[key] = v
			pos = next
			if pos < len(tokens) && tokens[pos].Kind == TokenComma {
				pos++
				continue
			}
			break
		}
		if pos >= len(tokens) || tokens[pos].Kind != TokenRBrace {
			return nil, pos, paramError(tokens, pos, "expected '}' in parameter map")
		}
		return m, pos + 1, nil
	case TokenIdent:
		switch t.Upper() {
		case "TRUE":
			return true, pos + 1, nil
		case "FALSE":
			return false, pos + 1, nil
		case "NULL":
			return nil, pos + 1, nil
		}
	}
	return nil, pos, paramError(tokens, pos, "invalid parameter value")
}
