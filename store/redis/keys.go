package redis

import "strconv"

// Key prefixes for primary entity storage.
const (
	prefixSubscription = "conduit:sub:"
	prefixEvent        = "conduit:evt:"
	prefixAttempt      = "conduit:att:"
)

// Key prefixes for unique indexes.
const (
	// uniqueAttemptNumber + eventID + ":" + attempt number guards the
	// one-row-per-attempt-number invariant; the value is the attempt ID.
	uniqueAttemptNumber = "conduit:u:att:"
)

// Key prefixes for sorted set indexes.
const (
	zSubscriptionAll = "conduit:z:sub:all"
	zEventAll        = "conduit:z:evt:all"
	zEventSub        = "conduit:z:evt:sub:" // + subscription ID
	zAttemptAll      = "conduit:z:att:all"
	zAttemptEvt      = "conduit:z:att:evt:" // + event ID, scored by attempt number
	zAttemptSub      = "conduit:z:att:sub:" // + subscription ID
	zJobPending      = "conduit:z:job:pending"
)

// Key prefixes for set indexes.
const (
	sAttemptStatus = "conduit:s:att:status:" // + status
)

// entityKey returns the primary key for an entity.
func entityKey(prefix, id string) string {
	return prefix + id
}

// attemptNumberKey returns the unique index key for an (event, number) pair.
func attemptNumberKey(eventID string, number int) string {
	return uniqueAttemptNumber + eventID + ":" + strconv.Itoa(number)
}
