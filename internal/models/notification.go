package models

// Profile is the subset of a user profile the engine needs to
// address a notification.
type Profile struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// NotificationPayload carries everything a transport needs to render
// a transactional email for one recipient.
type NotificationPayload struct {
	RecipientEmail string `json:"recipient_email"`
	RecipientName  string `json:"recipient_name"`
	CoachName      string `json:"coach_name"`
	TalentName     string `json:"talent_name"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Timezone       string `json:"timezone"`
	Duration       int    `json:"duration"`
	SessionType    string `json:"session_type"`
	MeetLink       string `json:"meet_link,omitempty"`
}
