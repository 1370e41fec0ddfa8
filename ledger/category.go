package ledger

import "fmt"

// EventCategory classifies an event.
type EventCategory uint8

const (
	CategoryOwambe EventCategory = iota
	CategoryConcert
	CategoryTechMeetup
	CategoryWedding
	CategoryChurchEvent
	CategoryCampusEvent
	CategoryConference
	CategoryFestival
	CategorySports
	CategoryOther
)

var eventCategoryNames = [...]string{
	"owambe", "concert", "tech_meetup", "wedding", "church_event",
	"campus_event", "conference", "festival", "sports", "other",
}

func (c EventCategory) String() string {
	if int(c) < len(eventCategoryNames) {
		return eventCategoryNames[c]
	}
	return fmt.Sprintf("EventCategory(%d)", uint8(c))
}

// Valid reports whether c is a known category.
func (c EventCategory) Valid() bool { return int(c) < len(eventCategoryNames) }

// ParseEventCategory maps a name to its category.
func ParseEventCategory(name string) (EventCategory, error) {
	for i, n := range eventCategoryNames {
		if n == name {
			return EventCategory(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown event category %q", ErrInvalidArgument, name)
}

// BudgetCategory classifies a budget line.
type BudgetCategory uint8

const (
	BudgetVenue BudgetCategory = iota
	BudgetCatering
	BudgetEntertainment
	BudgetLogistics
	BudgetMarketing
	BudgetStaff
	BudgetEquipment
	BudgetOther
)

var budgetCategoryNames = [...]string{
	"venue", "catering", "entertainment", "logistics",
	"marketing", "staff", "equipment", "other",
}

func (c BudgetCategory) String() string {
	if int(c) < len(budgetCategoryNames) {
		return budgetCategoryNames[c]
	}
	return fmt.Sprintf("BudgetCategory(%d)", uint8(c))
}

// Valid reports whether c is a known category.
func (c BudgetCategory) Valid() bool { return int(c) < len(budgetCategoryNames) }
