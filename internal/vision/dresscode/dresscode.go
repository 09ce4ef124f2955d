// Package dresscode implements the garment color compliance rule:
// shirt white or black, pants black, shoes black. A slot with no matching
// detection counts as a failure.
package dresscode

import "strings"

type SlotPick string

const (
	// SlotPickLast keeps the last detection mapped to a slot, matching the
	// historical behavior of the analysis endpoints.
	SlotPickLast SlotPick = "last"
	// SlotPickConfidence keeps the highest-confidence detection instead.
	SlotPickConfidence SlotPick = "confidence"
)

type ViolationStyle string

const (
	// ViolationFolded reports undetected slots with the same wording as
	// color mismatches ("shirt must be white or black").
	ViolationFolded ViolationStyle = "folded"
	// ViolationSeparate reports undetected slots as "shirt not detected".
	ViolationSeparate ViolationStyle = "separate"
)

type Policy struct {
	SlotPick   SlotPick
	Violations ViolationStyle
}

func DefaultPolicy() Policy {
	return Policy{SlotPick: SlotPickLast, Violations: ViolationFolded}
}

// LabeledColor is one detection after color classification.
type LabeledColor struct {
	Label      string
	Confidence float64
	Color      string
}

type Outcome struct {
	Status  string
	Message string
	Shirt   *string
	Pant    *string
	Shoe    *string
}

const (
	StatusCompliant    = "compliant"
	StatusNonCompliant = "non_compliant"
)

var (
	shirtKeywords = []string{"shirt", "blouse", "top", "t-shirt", "tee"}
	pantKeywords  = []string{"pant", "trouser", "jean", "slacks"}
	shoeKeywords  = []string{"shoe", "footwear", "sneaker", "boot"}
)

type slot struct {
	color      string
	confidence float64
	set        bool
}

func (s *slot) take(item LabeledColor, pick SlotPick) {
	if pick == SlotPickConfidence && s.set && item.Confidence < s.confidence {
		return
	}
	s.color = item.Color
	s.confidence = item.Confidence
	s.set = true
}

func matchesAny(label string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(label, kw) {
			return true
		}
	}
	return false
}

// Evaluate assigns each labeled detection to a garment slot and applies the
// compliance predicate.
func Evaluate(items []LabeledColor, p Policy) Outcome {
	var shirt, pant, shoe slot

	for _, item := range items {
		label := strings.ToLower(item.Label)
		switch {
		case matchesAny(label, shirtKeywords):
			shirt.take(item, p.SlotPick)
		case matchesAny(label, pantKeywords):
			pant.take(item, p.SlotPick)
		case matchesAny(label, shoeKeywords):
			shoe.take(item, p.SlotPick)
		}
	}

	outcome := Outcome{
		Shirt: slotColor(shirt),
		Pant:  slotColor(pant),
		Shoe:  slotColor(shoe),
	}

	shirtOK := shirt.set && (shirt.color == "white" || shirt.color == "black")
	pantOK := pant.set && pant.color == "black"
	shoeOK := shoe.set && shoe.color == "black"

	if shirtOK && pantOK && shoeOK {
		outcome.Status = StatusCompliant
		outcome.Message = "Dress code is appropriate."
		return outcome
	}

	var violations []string
	if !shirtOK {
		violations = append(violations, violation(shirt, "shirt", "shirt must be white or black", p.Violations))
	}
	if !pantOK {
		violations = append(violations, violation(pant, "pants", "pants must be black", p.Violations))
	}
	if !shoeOK {
		violations = append(violations, violation(shoe, "shoes", "shoes must be black", p.Violations))
	}

	outcome.Status = StatusNonCompliant
	outcome.Message = "Dress code violation: " + strings.Join(violations, ", ")
	return outcome
}

func violation(s slot, name, mismatch string, style ViolationStyle) string {
	if style == ViolationSeparate && !s.set {
		return name + " not detected"
	}
	return mismatch
}

func slotColor(s slot) *string {
	if !s.set {
		return nil
	}
	c := s.color
	return &c
}
