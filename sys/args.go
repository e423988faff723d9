package sys

import (
	"slices"
	"strings"

	"github.com/disgoorg/snowflake/v2"
)

type ParamKind int

const (
	// ParamString consumes one whitespace-separated token.
	ParamString ParamKind = iota
	// ParamRest consumes the remainder of the message verbatim.
	ParamRest
	// ParamGreedyID consumes leading tokens for as long as they parse as
	// snowflakes. It never fails.
	ParamGreedyID
	// ParamChoice consumes the next token if it is one of Choices.
	ParamChoice
)

type Param struct {
	Name        string
	Description string
	Kind        ParamKind
	Optional    bool
	Choices     []string
}

// Args holds parsed prefix command arguments.
type Args struct {
	values map[string]string
	ids    map[string][]snowflake.ID
}

func (a Args) String(name string) string { return a.values[name] }

func (a Args) IDs(name string) []snowflake.ID { return a.ids[name] }

// ParseArgs converts the text following the command name into Args.
func ParseArgs(params []Param, input string) (Args, error) {
	args := Args{values: map[string]string{}, ids: map[string][]snowflake.ID{}}
	remaining := strings.TrimSpace(input)

	for _, p := range params {
		switch p.Kind {
		case ParamRest:
			if remaining == "" {
				if !p.Optional {
					return args, &MissingArgumentError{Param: p.Name}
				}
				continue
			}
			args.values[p.Name] = remaining
			remaining = ""

		case ParamGreedyID:
			for remaining != "" {
				tok, rest := nextToken(remaining)
				id, err := snowflake.Parse(tok)
				if err != nil {
					break
				}
				args.ids[p.Name] = append(args.ids[p.Name], id)
				remaining = rest
			}

		case ParamChoice:
			if remaining == "" {
				if !p.Optional {
					return args, &MissingArgumentError{Param: p.Name}
				}
				continue
			}
			tok, rest := nextToken(remaining)
			if !slices.Contains(p.Choices, tok) {
				if p.Optional {
					continue
				}
				return args, &BadArgumentError{Param: p.Name, Value: tok, Err: errInvalidChoice(p.Choices)}
			}
			args.values[p.Name] = tok
			remaining = rest

		default:
			if remaining == "" {
				if !p.Optional {
					return args, &MissingArgumentError{Param: p.Name}
				}
				continue
			}
			tok, rest := nextToken(remaining)
			args.values[p.Name] = tok
			remaining = rest
		}
	}
	return args, nil
}

func nextToken(s string) (string, string) {
	s = strings.TrimLeft(s, " \t\n")
	idx := strings.IndexAny(s, " \t\n")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimLeft(s[idx:], " \t\n")
}

type choiceError []string

func (e choiceError) Error() string {
	return "expected one of " + strings.Join(e, ", ")
}

func errInvalidChoice(choices []string) error { return choiceError(choices) }

// Usage renders a compact signature such as "sync [guilds...] [~|*|^]".
func Usage(name string, params []Param) string {
	var sb strings.Builder
	sb.WriteString(name)
	for _, p := range params {
		label := p.Name
		switch p.Kind {
		case ParamGreedyID:
			label += "..."
		case ParamChoice:
			label = strings.Join(p.Choices, "|")
		}
		if p.Optional || p.Kind == ParamGreedyID {
			sb.WriteString(" [" + label + "]")
		} else {
			sb.WriteString(" <" + label + ">")
		}
	}
	return sb.String()
}
