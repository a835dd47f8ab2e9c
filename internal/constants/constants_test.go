package constants

import (
	"sort"
	"testing"
)

func TestEventTypesSortedAndValid(t *testing.T) {
	types := EventTypes()
	if len(types) == 0 || !sort.StringsAreSorted(types) {
		t.Fatalf("event types should be a non-empty sorted list, got %v", types)
	}
	for _, eventType := range types {
		if !IsValidEventType(eventType) {
			t.Fatalf("%s should be a valid event type", eventType)
		}
	}
}
