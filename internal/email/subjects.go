package email

const (
	subjectAppointmentRequestFmt  = "New appointment request from %s"
	subjectAppointmentReceived    = "We received your appointment request"
	subjectAppointmentStatusFmt   = "Your appointment has been %s"
	subjectAppointmentReminderFmt = "Reminder: your appointment with %s"
)
