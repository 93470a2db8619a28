package events

import (
	"fmt"
	"io"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
)

// PrinterFunc returns a watermill handler that renders a stream of chat
// events as plain console output: deltas as they arrive, a newline when the
// stream settles.
func PrinterFunc(name string, w io.Writer) func(msg *message.Message) error {
	isFirst := true

	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := NewEventFromJSON(msg.Payload)
		if err != nil {
			return err
		}

		switch p := e.(type) {
		case *EventError:
			_, err = fmt.Fprintf(w, "\nerror: %s\n", p.ErrorString)
			if err != nil {
				return err
			}

		case *EventPartialCompletion:
			if isFirst && name != "" {
				isFirst = false
				if _, err = fmt.Fprintf(w, "\n%s: \n", name); err != nil {
					return err
				}
			}
			if _, err = fmt.Fprintf(w, "%s", p.Delta); err != nil {
				return err
			}

		case *EventFinal:
			if !strings.HasSuffix(p.Text, "\n") {
				if _, err = fmt.Fprintf(w, "\n"); err != nil {
					return err
				}
			}
		}

		return nil
	}
}
