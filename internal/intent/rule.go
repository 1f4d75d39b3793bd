package intent

import (
	"context"
	"strings"
	"unicode"
)

// RuleClassifier is the default keyword-grammar backend. Recognized shapes:
//
//	DELIVERED <code> <qty>[unit] [grade <g>]
//	CONFIRM <code>
//	HELP
//	SELL <crop> <qty>[unit] [location]
//	<Crop> <qty>kg [location]     (legacy SMS listing form)
//
// Anything else classifies as TagUnknown.
type RuleClassifier struct{}

func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

func (c *RuleClassifier) Classify(_ context.Context, rawText string) Parsed {
	raw := strings.TrimSpace(rawText)
	words := strings.Fields(raw)
	if len(words) == 0 {
		return Parsed{Tag: TagUnknown, Raw: raw}
	}

	switch strings.ToUpper(words[0]) {
	case "DELIVERED", "DELIVERY":
		return classifyDelivery(raw, words[1:])
	case "CONFIRM", "CONFIRMED":
		fields := map[string]string{}
		if len(words) > 1 {
			fields[FieldCode] = words[1]
		}
		return Parsed{Tag: TagBuyerConfirm, Fields: fields, Raw: raw}
	case "HELP", "?":
		return Parsed{Tag: TagHelpRequest, Raw: raw}
	case "SELL", "LIST":
		return classifyListing(raw, words[1:])
	}

	// Legacy form: a crop name followed by a quantity ("Maize 200kg Kisumu").
	if len(words) >= 2 && startsWithDigit(words[1]) {
		return classifyListing(raw, words)
	}
	return Parsed{Tag: TagUnknown, Raw: raw}
}

func classifyDelivery(raw string, args []string) Parsed {
	fields := map[string]string{}
	if len(args) > 0 {
		fields[FieldCode] = args[0]
	}
	if len(args) > 1 {
		qty, unit := splitQuantity(args[1])
		fields[FieldQuantity] = qty
		if unit != "" {
			fields[FieldUnit] = unit
		}
	}
	for i := 2; i < len(args)-1; i++ {
		if strings.EqualFold(args[i], "grade") {
			fields[FieldGrade] = strings.ToUpper(args[i+1])
			break
		}
	}
	return Parsed{Tag: TagDeliveryConfirmation, Fields: fields, Raw: raw}
}

func classifyListing(raw string, args []string) Parsed {
	fields := map[string]string{}
	if len(args) > 0 {
		fields[FieldCrop] = args[0]
	}
	if len(args) > 1 {
		qty, unit := splitQuantity(args[1])
		fields[FieldQuantity] = qty
		if unit != "" {
			fields[FieldUnit] = unit
		}
	}
	if len(args) > 2 {
		fields[FieldLocation] = args[2]
	}
	return Parsed{Tag: TagNewListing, Fields: fields, Raw: raw}
}

// splitQuantity separates a token like "200kg" into its numeric prefix and
// trailing unit. A token with no digits yields ("", token).
func splitQuantity(token string) (qty, unit string) {
	i := 0
	for i < len(token) && (unicode.IsDigit(rune(token[i])) || token[i] == '.') {
		i++
	}
	return token[:i], strings.ToLower(token[i:])
}

func startsWithDigit(token string) bool {
	return len(token) > 0 && unicode.IsDigit(rune(token[0]))
}
