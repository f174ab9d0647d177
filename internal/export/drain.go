package export

import (
	"log"

	"kiosk/internal/attendance"
	"kiosk/internal/queue"
)

// Appender receives exported events.
type Appender interface {
	Append(evt attendance.Event) error
}

// Drain exports every attendance.recorded message until messages closes and
// returns how many events were written. Other message types are skipped.
func Drain(messages <-chan queue.Message, out Appender) int {
	n := 0
	for msg := range messages {
		if msg.Type != queue.TypeAttendanceRecorded {
			log.Printf("skipping message type %q", msg.Type)
			continue
		}
		evt, err := queue.DecodeEvent(msg)
		if err != nil {
			log.Printf("decode notification failed: %v", err)
			continue
		}
		if err := out.Append(evt); err != nil {
			log.Printf("export event %s failed: %v", evt.ID, err)
			continue
		}
		log.Printf("exported event %s employee=%s", evt.ID, evt.EmployeeID)
		n++
	}
	return n
}
