package notify

import (
	"fmt"

	"coachly/internal/models"
)

func subjectFor(kind EventKind, p models.NotificationPayload) string {
	switch kind {
	case EventNewAppointment:
		return fmt.Sprintf("New coaching session request: %s at %s", p.Date, p.Time)
	case EventConfirmed:
		return fmt.Sprintf("Session confirmed: %s at %s", p.Date, p.Time)
	default:
		return fmt.Sprintf("Session update: %s at %s", p.Date, p.Time)
	}
}

func htmlFor(kind EventKind, p models.NotificationPayload) string {
	var lead string
	switch kind {
	case EventNewAppointment:
		lead = fmt.Sprintf("%s requested a %d-minute %s session with %s.",
			p.TalentName, p.Duration, sessionLabel(p.SessionType), p.CoachName)
	case EventConfirmed:
		lead = fmt.Sprintf("Your %s session between %s and %s is confirmed.",
			sessionLabel(p.SessionType), p.CoachName, p.TalentName)
	default:
		lead = fmt.Sprintf("Your session between %s and %s was updated.",
			p.CoachName, p.TalentName)
	}

	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>%s</p><p><b>%s at %s (%s)</b></p>",
		p.RecipientName, lead, p.Date, p.Time, p.Timezone)
	if p.MeetLink != "" {
		body += fmt.Sprintf(`<p>Join here: <a href="%s">%s</a></p>`, p.MeetLink, p.MeetLink)
	}
	return body
}

func sessionLabel(sessionType string) string {
	switch sessionType {
	case models.TypeCVReview:
		return "CV review"
	case models.TypeInterview:
		return "interview prep"
	case models.TypeConfidence:
		return "confidence coaching"
	default:
		return "coaching"
	}
}
