package devices

import (
	"fmt"
	"strconv"
	"strings"

	"garden-link/config"
)

// Grammar decodes one telemetry frame into a moisture value.
type Grammar interface {
	Name() string
	Decode(line string) (int, error)
}

// ParseGrammar selects a grammar by its config name.
func ParseGrammar(name string) (Grammar, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", config.GrammarLoose:
		return LooseGrammar{}, nil
	case config.GrammarTagged:
		return TaggedGrammar{}, nil
	default:
		return nil, fmt.Errorf("unknown telemetry grammar %q", name)
	}
}

// LooseGrammar takes the last run of ASCII digits anywhere in the line.
// Signs are not recognised: "-12" decodes to 12.
type LooseGrammar struct{}

func (LooseGrammar) Name() string { return config.GrammarLoose }

func (LooseGrammar) Decode(line string) (int, error) {
	end := strings.LastIndexFunc(line, isDigit)
	if end < 0 {
		return 0, errNoDigits
	}
	start := end
	for start > 0 && isDigit(rune(line[start-1])) {
		start--
	}
	v, err := strconv.Atoi(line[start : end+1])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errBadValue, err)
	}
	return v, nil
}

const moisturePrefix = "MOISTURE:"

// TaggedGrammar accepts only "MOISTURE:<int>", whitespace allowed around the value.
type TaggedGrammar struct{}

func (TaggedGrammar) Name() string { return config.GrammarTagged }

func (TaggedGrammar) Decode(line string) (int, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), moisturePrefix)
	if !ok {
		return 0, errMissingPrefix
	}
	rest = strings.TrimSpace(rest)
	if rest == "" || strings.IndexFunc(rest, func(r rune) bool { return !isDigit(r) }) >= 0 {
		return 0, errBadValue
	}
	v, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errBadValue, err)
	}
	return v, nil
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
