package service

import "time"

// DateKeyLayout is the calendar-day key format used for all deadline
// comparisons and for work dates on time entries.
const DateKeyLayout = "2006-01-02"

// DateKey normalizes a time to its local calendar-day key. All deadline
// logic compares these keys so time-of-day and timezone offsets within a
// day never shift a decision.
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// IsOverdue reports whether a due date lies strictly before the reference
// date, by calendar day. A nil due date is never overdue, and a task due
// exactly on the reference day is not yet overdue.
func IsOverdue(dueDate *time.Time, referenceDate time.Time) bool {
	if dueDate == nil || dueDate.IsZero() {
		return false
	}
	return DateKey(*dueDate) < DateKey(referenceDate)
}

// DueDateMatches reports whether a due date falls on the target calendar
// day. This is the gate's inclusion predicate: a task can be pending
// resolution on its due date without being overdue yet.
func DueDateMatches(dueDate *time.Time, targetDate time.Time) bool {
	if dueDate == nil || dueDate.IsZero() {
		return false
	}
	return DateKey(*dueDate) == DateKey(targetDate)
}

// ParseDateKey parses a yyyy-mm-dd key into a local-midnight time.
func ParseDateKey(key string) (time.Time, error) {
	return time.ParseInLocation(DateKeyLayout, key, time.Local)
}
