package pubsub

// Trigger identifies one notification channel within the broker. Two
// triggers are equal iff they were built from the same event category and
// suffix.
type Trigger string

// EventCategory namespaces triggers by the kind of event they carry.
type EventCategory string

// EventLnPaymentStatus carries Lightning invoice payment status updates.
// The suffix is the invoice's payment hash, or the raw payment request when
// the hash could not be determined.
const EventLnPaymentStatus EventCategory = "LN_PAYMENT_STATUS"

// BuildTrigger derives the trigger for an event category and a
// disambiguating suffix. The category is a fixed prefix, so triggers from
// distinct categories can never collide. The suffix is passed through
// verbatim; validating it is the caller's responsibility.
func BuildTrigger(event EventCategory, suffix string) Trigger {
	return Trigger(string(event) + "-" + suffix)
}
