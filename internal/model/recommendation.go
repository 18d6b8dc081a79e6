package model

type RecommendationKind string

const (
	KindEvent      = RecommendationKind("event")
	KindRestaurant = RecommendationKind("restaurant")
)

// Event mirrors the backend event record.
type Event struct {
	EventID        string   `json:"event_id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	StartDatetime  string   `json:"start_datetime"`
	EndDatetime    string   `json:"end_datetime"`
	Timezone       string   `json:"timezone"`
	VenueName      string   `json:"venue_name"`
	VenueCity      string   `json:"venue_city"`
	VenueCountry   string   `json:"venue_country"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	OrganizerName  string   `json:"organizer_name"`
	TicketMinPrice string   `json:"ticket_min_price"`
	TicketMaxPrice string   `json:"ticket_max_price"`
	IsFree         bool     `json:"is_free"`
	Categories     []string `json:"categories"`
	ImageURL       string   `json:"image_url"`
	EventURL       string   `json:"event_url"`
	Source         string   `json:"source"`
}

// Restaurant mirrors the backend restaurant record.
type Restaurant struct {
	RestaurantID string   `json:"restaurant_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	CuisineType  string   `json:"cuisine_type"`
	PriceRange   string   `json:"price_range"`
	Rating       float64  `json:"rating"`
	VenueCity    string   `json:"venue_city"`
	VenueCountry string   `json:"venue_country"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Phone        string   `json:"phone"`
	Website      string   `json:"website"`
	Categories   []string `json:"categories"`
	ImageURL     string   `json:"image_url"`
	IsOpenNow    bool     `json:"is_open_now"`
	Source       string   `json:"source"`
}

// RecommendationItem is one result card. Exactly one of Event/Restaurant is
// set depending on Kind.
type RecommendationItem struct {
	Kind           RecommendationKind `json:"type"`
	Event          *Event             `json:"-"`
	Restaurant     *Restaurant        `json:"-"`
	RelevanceScore float64            `json:"relevance_score"`
	Explanation    string             `json:"explanation"`
}

// StableID is the identity used for deduplication. It comes from the id
// embedded in the payload, never from object identity.
func (r RecommendationItem) StableID() string {
	switch r.Kind {
	case KindEvent:
		if r.Event != nil {
			return r.Event.EventID
		}
	case KindRestaurant:
		if r.Restaurant != nil {
			return r.Restaurant.RestaurantID
		}
	}
	return ""
}

// Title is the display heading of the card.
func (r RecommendationItem) Title() string {
	switch r.Kind {
	case KindEvent:
		if r.Event != nil {
			return r.Event.Title
		}
	case KindRestaurant:
		if r.Restaurant != nil {
			return r.Restaurant.Name
		}
	}
	return ""
}
