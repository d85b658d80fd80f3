package domain

// BookingType identifies which call a booking token lets a client schedule.
type BookingType string

const (
	BookingFocusStudioKickoff   BookingType = "focus_studio_kickoff"
	BookingCoreServiceDiscovery BookingType = "core_services_discovery"
)

var bookingTypeLabels = map[BookingType]string{
	BookingFocusStudioKickoff:   "Build Kickoff",
	BookingCoreServiceDiscovery: "Transformation Discovery",
}

// Scheduler is the external scheduling resource presented to a valid
// booking session. URLs live here and nowhere else.
type Scheduler struct {
	URL    string
	Active bool
}

var bookingSchedulers = map[BookingType]Scheduler{
	BookingFocusStudioKickoff: {
		URL:    "https://calendly.com/bertrandbrands/focus-studio-kickoff",
		Active: true,
	},
	BookingCoreServiceDiscovery: {
		URL:    "https://calendly.com/bertrandbrands/core-services-discovery",
		Active: true,
	},
}

func (b BookingType) Valid() bool {
	_, ok := bookingTypeLabels[b]
	return ok
}

func (b BookingType) Label() string {
	return bookingTypeLabels[b]
}

func (b BookingType) Scheduler() (Scheduler, bool) {
	s, ok := bookingSchedulers[b]
	return s, ok
}

// BookingTypes lists the recognized types, for validation error payloads.
func BookingTypes() []BookingType {
	return []BookingType{BookingFocusStudioKickoff, BookingCoreServiceDiscovery}
}
