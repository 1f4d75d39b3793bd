package intent

import (
	"context"
	"testing"
)

func TestRuleClassifierDelivery(t *testing.T) {
	c := NewRuleClassifier()
	p := c.Classify(context.Background(), "DELIVERED 553904 200kg grade A")

	if p.Tag != TagDeliveryConfirmation {
		t.Fatalf("Tag = %q, want %q", p.Tag, TagDeliveryConfirmation)
	}
	if p.Field(FieldCode) != "553904" {
		t.Fatalf("code = %q, want %q", p.Field(FieldCode), "553904")
	}
	if p.Field(FieldQuantity) != "200" {
		t.Fatalf("quantity = %q, want %q", p.Field(FieldQuantity), "200")
	}
	if p.Field(FieldUnit) != "kg" {
		t.Fatalf("unit = %q, want %q", p.Field(FieldUnit), "kg")
	}
	if p.Field(FieldGrade) != "A" {
		t.Fatalf("grade = %q, want %q", p.Field(FieldGrade), "A")
	}
}

func TestRuleClassifierConfirm(t *testing.T) {
	c := NewRuleClassifier()

	p := c.Classify(context.Background(), "confirm 553904")
	if p.Tag != TagBuyerConfirm {
		t.Fatalf("Tag = %q, want %q", p.Tag, TagBuyerConfirm)
	}
	if p.Field(FieldCode) != "553904" {
		t.Fatalf("code = %q, want %q", p.Field(FieldCode), "553904")
	}

	// A bare CONFIRM still classifies; the missing code is the engine's call.
	p = c.Classify(context.Background(), "CONFIRM")
	if p.Tag != TagBuyerConfirm {
		t.Fatalf("Tag = %q, want %q", p.Tag, TagBuyerConfirm)
	}
	if p.Field(FieldCode) != "" {
		t.Fatalf("code = %q, want empty", p.Field(FieldCode))
	}
}

func TestRuleClassifierListingForms(t *testing.T) {
	c := NewRuleClassifier()

	p := c.Classify(context.Background(), "SELL maize 200kg Kisumu")
	if p.Tag != TagNewListing {
		t.Fatalf("Tag = %q, want %q", p.Tag, TagNewListing)
	}
	if p.Field(FieldCrop) != "maize" {
		t.Fatalf("crop = %q, want %q", p.Field(FieldCrop), "maize")
	}
	if p.Field(FieldLocation) != "Kisumu" {
		t.Fatalf("location = %q, want %q", p.Field(FieldLocation), "Kisumu")
	}

	legacy := c.Classify(context.Background(), "Maize 200kg Kisumu")
	if legacy.Tag != TagNewListing {
		t.Fatalf("legacy Tag = %q, want %q", legacy.Tag, TagNewListing)
	}
	if legacy.Field(FieldQuantity) != "200" {
		t.Fatalf("legacy quantity = %q, want %q", legacy.Field(FieldQuantity), "200")
	}
}

func TestRuleClassifierUnknownAndDeterminism(t *testing.T) {
	c := NewRuleClassifier()

	if p := c.Classify(context.Background(), "what is going on"); p.Tag != TagUnknown {
		t.Fatalf("Tag = %q, want %q", p.Tag, TagUnknown)
	}
	if p := c.Classify(context.Background(), "   "); p.Tag != TagUnknown {
		t.Fatalf("blank Tag = %q, want %q", p.Tag, TagUnknown)
	}

	first := c.Classify(context.Background(), "DELIVERED 1 5kg")
	second := c.Classify(context.Background(), "DELIVERED 1 5kg")
	if first.Tag != second.Tag || first.Field(FieldCode) != second.Field(FieldCode) {
		t.Fatalf("classification not deterministic: %+v vs %+v", first, second)
	}
}

func TestFactoryModes(t *testing.T) {
	if _, err := New("auto"); err != nil {
		t.Fatalf("New(auto) error = %v", err)
	}
	if _, err := New("mock"); err != nil {
		t.Fatalf("New(mock) error = %v", err)
	}
	if _, err := New("llm"); err == nil {
		t.Fatalf("New(llm) error = nil, want invalid mode error")
	}
}
