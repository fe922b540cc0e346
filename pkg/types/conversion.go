package types

var numberIDs = []int{ByteID, ShortID, IntegerID, LongID, FloatID, DoubleID, NumericID}

// allowedConversions maps a source id to the ids its values may be cast to.
// Pairs missing from the table are not convertible.
var allowedConversions = map[int]map[int]bool{}

func init() {
	allow := func(from int, to ...int) {
		set, ok := allowedConversions[from]
		if !ok {
			set = map[int]bool{}
			allowedConversions[from] = set
		}
		for _, id := range to {
			set[id] = true
		}
	}

	for _, n := range numberIDs {
		allow(n, numberIDs...)
		allow(n, BooleanID, StringID, TimestampID)
	}
	allow(StringID, numberIDs...)
	allow(StringID, BooleanID, TimestampID, ObjectID)
	allow(BooleanID, StringID)
	allow(TimestampID, LongID, DoubleID, StringID)
}

func convertible(from, to int) bool {
	if from == to || from == UndefinedID {
		return true
	}
	return allowedConversions[from][to]
}

// precedence orders types from narrow to wide. Overload resolution prefers
// the narrowest widening and falls back to the widest candidate.
var precedence = map[int]int{
	UndefinedID:    0,
	NotSupportedID: 1,
	BooleanID:      2,
	ByteID:         3,
	ShortID:        4,
	IntegerID:      5,
	LongID:         6,
	TimestampID:    7,
	FloatID:        8,
	DoubleID:       9,
	NumericID:      10,
	StringID:       11,
	ObjectID:       12,
}

// Precedence returns the rank of t in the widening order.
func Precedence(t DataType) int {
	return precedence[t.ID()]
}

// IsNumeric reports whether t is one of the number types.
func IsNumeric(t DataType) bool {
	for _, id := range numberIDs {
		if t.ID() == id {
			return true
		}
	}
	return false
}
