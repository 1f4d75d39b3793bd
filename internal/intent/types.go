package intent

// Tag identifies the recognized shape of an inbound message.
type Tag string

const (
	TagDeliveryConfirmation Tag = "delivery_confirmation"
	TagBuyerConfirm         Tag = "buyer_confirm"
	TagHelpRequest          Tag = "help_request"
	TagNewListing           Tag = "new_listing"
	TagUnknown              Tag = "unknown"
)

// Field keys populated by classifiers. Values are raw strings; the workflow
// engine owns validation and numeric parsing.
const (
	FieldCode     = "code"
	FieldQuantity = "quantity"
	FieldUnit     = "unit"
	FieldGrade    = "grade"
	FieldCrop     = "crop"
	FieldLocation = "location"
)

// Parsed is the structured result of classifying one raw message.
// Immutable once produced.
type Parsed struct {
	Tag    Tag               `json:"tag"`
	Fields map[string]string `json:"fields,omitempty"`
	Raw    string            `json:"raw"`
}

// Field returns the named field or "".
func (p Parsed) Field(key string) string {
	if p.Fields == nil {
		return ""
	}
	return p.Fields[key]
}
